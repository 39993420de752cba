package state

import (
	"reflect"
	"testing"
	"time"
)

type testCase struct {
	id   string
	data map[string]any
}

func (c *testCase) CaseID() string            { return c.id }
func (c *testCase) Serialize() map[string]any { return c.data }

func reviewSpec() Spec {
	return Spec{
		Initial:        "pending",
		Valid:          []string{"pending", "reviewing", "approved", "rejected"},
		Terminal:       []string{"approved", "rejected"},
		RequiredChecks: []string{"identity", "sanctions", "funds"},
	}
}

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	return NewMachine(reviewSpec(), &testCase{id: "CASE-1", data: map[string]any{"amount": 100.0}})
}

func TestMachineInitialState(t *testing.T) {
	m := newTestMachine(t)

	if got := m.CurrentState(); got != "pending" {
		t.Errorf("CurrentState() = %q, want %q", got, "pending")
	}
	if m.IsTerminal() {
		t.Error("IsTerminal() = true for initial state")
	}
	if got := len(m.Checks()); got != 0 {
		t.Errorf("Checks() has %d entries, want 0", got)
	}
	if got := m.MissingChecks(); !reflect.DeepEqual(got, []string{"identity", "sanctions", "funds"}) {
		t.Errorf("MissingChecks() = %v, want all required checks", got)
	}
}

func TestMachineTransition(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(m *Machine)
		target    string
		wantOK    bool
		wantState string
	}{
		{
			name:      "valid transition",
			target:    "reviewing",
			wantOK:    true,
			wantState: "reviewing",
		},
		{
			name:      "invalid target is a no-op",
			target:    "exploded",
			wantOK:    false,
			wantState: "pending",
		},
		{
			name: "terminal state is absorbing",
			setup: func(m *Machine) {
				m.Transition("approved", "test", nil)
			},
			target:    "rejected",
			wantOK:    false,
			wantState: "approved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t)
			if tt.setup != nil {
				tt.setup(m)
			}

			got := m.Transition(tt.target, "test", nil)
			if got != tt.wantOK {
				t.Errorf("Transition(%q) = %v, want %v", tt.target, got, tt.wantOK)
			}
			if state := m.CurrentState(); state != tt.wantState {
				t.Errorf("CurrentState() = %q, want %q", state, tt.wantState)
			}
		})
	}
}

func TestMachineTransitionUnrestrictedWhenValidSetEmpty(t *testing.T) {
	m := NewMachine(Spec{Initial: "start"}, nil)

	if !m.Transition("anywhere", "test", nil) {
		t.Error("Transition() = false with empty valid-state set, want true")
	}
	if got := m.CurrentState(); got != "anywhere" {
		t.Errorf("CurrentState() = %q, want %q", got, "anywhere")
	}
}

func TestMachineTransitionLog(t *testing.T) {
	m := newTestMachine(t)
	m.clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	m.Transition("reviewing", "get_case_details", map[string]any{"step": 1})
	m.Transition("bogus", "noise", nil)
	m.Transition("approved", "approve", nil)

	log := m.Transitions()
	if len(log) != 2 {
		t.Fatalf("Transitions() has %d entries, want 2", len(log))
	}
	if log[0].From != "pending" || log[0].To != "reviewing" || log[0].Trigger != "get_case_details" {
		t.Errorf("first transition = %+v", log[0])
	}
	if log[1].From != "reviewing" || log[1].To != "approved" {
		t.Errorf("second transition = %+v", log[1])
	}
}

func TestMachineChecksIdempotentAndOrdered(t *testing.T) {
	m := newTestMachine(t)

	m.RecordCheck("sanctions")
	m.RecordCheck("identity")
	m.RecordCheck("sanctions")
	m.RecordCheck("identity")

	if got := m.Checks(); !reflect.DeepEqual(got, []string{"sanctions", "identity"}) {
		t.Errorf("Checks() = %v, want first-insertion order without duplicates", got)
	}
	if got := m.MissingChecks(); !reflect.DeepEqual(got, []string{"funds"}) {
		t.Errorf("MissingChecks() = %v, want [funds]", got)
	}
}

func TestMachineMissingChecksDeclarationOrder(t *testing.T) {
	m := newTestMachine(t)
	m.RecordCheck("funds")

	got := m.MissingChecks()
	want := []string{"identity", "sanctions"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingChecks() = %v, want %v", got, want)
	}
}

func TestMachineRecordCheckOutcome(t *testing.T) {
	tests := []struct {
		name     string
		outcome  CallOutcome
		want     bool
		hasCheck bool
	}{
		{
			name:     "ok result records the check",
			outcome:  CallOutcome{Name: "verify_identity", OK: true},
			want:     true,
			hasCheck: true,
		},
		{
			name:     "error result never completes a check",
			outcome:  CallOutcome{Name: "verify_identity", OK: false, Error: "timeout"},
			want:     false,
			hasCheck: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t)

			got := m.RecordCheckOutcome("identity", tt.outcome)
			if got != tt.want {
				t.Errorf("RecordCheckOutcome() = %v, want %v", got, tt.want)
			}
			if m.HasCheck("identity") != tt.hasCheck {
				t.Errorf("HasCheck(identity) = %v, want %v", m.HasCheck("identity"), tt.hasCheck)
			}
		})
	}
}

func TestMachineViolationsIdempotent(t *testing.T) {
	m := newTestMachine(t)

	m.RecordViolation("skipped_checks")
	m.RecordViolation("skipped_checks")
	m.RecordViolation("over_limit")

	if got := m.Violations(); !reflect.DeepEqual(got, []string{"skipped_checks", "over_limit"}) {
		t.Errorf("Violations() = %v", got)
	}
}

func TestMachineInitializeResets(t *testing.T) {
	m := newTestMachine(t)
	m.Transition("reviewing", "test", nil)
	m.RecordCheck("identity")
	m.RecordViolation("something")

	m.Initialize(&testCase{id: "CASE-2"})

	if got := m.CurrentState(); got != "pending" {
		t.Errorf("CurrentState() after reset = %q, want %q", got, "pending")
	}
	if len(m.Checks()) != 0 || len(m.Violations()) != 0 || len(m.Transitions()) != 0 {
		t.Error("Initialize() did not clear checks, violations, and transitions")
	}
	if got := m.Case().CaseID(); got != "CASE-2" {
		t.Errorf("Case().CaseID() = %q, want %q", got, "CASE-2")
	}
}

func TestMachineHookPanicRecovered(t *testing.T) {
	m := newTestMachine(t)
	m.SetCapabilityHook(func(m *Machine, out CallOutcome) {
		m.RecordCheck("identity")
		panic("hook blew up")
	})

	m.OnCapabilityCall(CallOutcome{Name: "verify_identity", OK: true})

	// Partial effects before the panic remain observable.
	if !m.HasCheck("identity") {
		t.Error("check recorded before hook panic was lost")
	}
}

func TestMachineSnapshot(t *testing.T) {
	m := newTestMachine(t)
	m.RecordCheck("identity")
	m.RecordViolation("over_limit")
	m.Transition("approved", "approve", nil)

	snap := m.Snapshot(4)

	if snap.CurrentState != "approved" || !snap.Terminal {
		t.Errorf("snapshot state = %q terminal=%v, want approved/true", snap.CurrentState, snap.Terminal)
	}
	if snap.Step != 4 {
		t.Errorf("snapshot step = %d, want 4", snap.Step)
	}
	if snap.CaseID != "CASE-1" {
		t.Errorf("snapshot case id = %q, want CASE-1", snap.CaseID)
	}
	if !snap.HasCheck("identity") || snap.HasCheck("funds") {
		t.Error("snapshot checks do not match recorded checks")
	}
	if !snap.HasViolation("over_limit") {
		t.Error("snapshot missing recorded violation")
	}

	// Mutating the machine afterwards must not change the snapshot.
	m.RecordCheck("funds")
	if snap.HasCheck("funds") {
		t.Error("snapshot is not immutable")
	}
}
