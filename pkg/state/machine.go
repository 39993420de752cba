package state

import (
	"log/slog"
	"time"
)

// Machine tracks business-process progress and compliance bookkeeping for
// one episode. It is exclusively owned by the episode that drives it and
// performs no internal locking.
type Machine struct {
	spec    Spec
	current string

	checks      []string
	checkSet    map[string]struct{}
	violations  []string
	violSet     map[string]struct{}
	transitions []Transition

	caseData CaseData
	hook     CapabilityHook

	logger *slog.Logger
	clock  func() time.Time
}

// NewMachine creates a machine for the given spec and initializes it with
// the case data.
func NewMachine(spec Spec, caseData CaseData) *Machine {
	m := &Machine{
		spec:   spec,
		logger: slog.Default().With("component", "state.machine"),
		clock:  time.Now,
	}
	m.Initialize(caseData)
	return m
}

// Initialize resets the machine to the initial state and clears checks,
// violations, and the transition log.
func (m *Machine) Initialize(caseData CaseData) {
	m.current = m.spec.Initial
	m.checks = nil
	m.checkSet = make(map[string]struct{})
	m.violations = nil
	m.violSet = make(map[string]struct{})
	m.transitions = nil
	m.caseData = caseData
}

// SetCapabilityHook installs the scenario seam invoked after every
// executed capability call. Must be set before the episode starts.
func (m *Machine) SetCapabilityHook(hook CapabilityHook) {
	m.hook = hook
}

// CurrentState returns the current process state.
func (m *Machine) CurrentState() string {
	return m.current
}

// Case returns the episode's case data.
func (m *Machine) Case() CaseData {
	return m.caseData
}

// RecordCheck records a completed compliance check. Insertion is
// idempotent; declaration order of first insertion is preserved.
func (m *Machine) RecordCheck(name string) {
	if _, ok := m.checkSet[name]; ok {
		return
	}
	m.checkSet[name] = struct{}{}
	m.checks = append(m.checks, name)
}

// RecordCheckOutcome records a check only when the triggering capability
// result was not an error. An error result never completes a check.
func (m *Machine) RecordCheckOutcome(name string, out CallOutcome) bool {
	if !out.OK {
		return false
	}
	m.RecordCheck(name)
	return true
}

// HasCheck reports whether the named check has been recorded.
func (m *Machine) HasCheck(name string) bool {
	_, ok := m.checkSet[name]
	return ok
}

// Checks returns recorded checks in insertion order.
func (m *Machine) Checks() []string {
	out := make([]string, len(m.checks))
	copy(out, m.checks)
	return out
}

// MissingChecks returns required-but-unrecorded checks in declaration
// order. The result is always a subset of the spec's required checks.
func (m *Machine) MissingChecks() []string {
	missing := []string{}
	for _, name := range m.spec.RequiredChecks {
		if _, ok := m.checkSet[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// RecordViolation records a violation tag. Insertion is idempotent and
// preserves first-insertion order.
func (m *Machine) RecordViolation(tag string) {
	if _, ok := m.violSet[tag]; ok {
		return
	}
	m.violSet[tag] = struct{}{}
	m.violations = append(m.violations, tag)
}

// Violations returns recorded violation tags in insertion order.
func (m *Machine) Violations() []string {
	out := make([]string, len(m.violations))
	copy(out, m.violations)
	return out
}

// Transition moves the machine to newState and appends a Transition
// record iff newState is a member of the declared valid-state set (or the
// set is empty, meaning unrestricted) and the machine is not already in a
// terminal state. Otherwise it is a silent no-op returning false; callers
// that need correctness must check the return value.
func (m *Machine) Transition(newState, trigger string, details map[string]any) bool {
	if m.IsTerminal() {
		m.logger.Debug("transition ignored: terminal state is absorbing",
			"current", m.current,
			"requested", newState,
			"trigger", trigger,
		)
		return false
	}
	if !m.isValidState(newState) {
		m.logger.Debug("transition ignored: target not in valid-state set",
			"current", m.current,
			"requested", newState,
			"trigger", trigger,
		)
		return false
	}

	m.transitions = append(m.transitions, Transition{
		From:      m.current,
		To:        newState,
		Trigger:   trigger,
		Details:   details,
		Timestamp: m.clock(),
	})
	m.current = newState
	return true
}

// Transitions returns the append-only transition log.
func (m *Machine) Transitions() []Transition {
	out := make([]Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// IsTerminal reports whether the current state is in the terminal set.
func (m *Machine) IsTerminal() bool {
	for _, t := range m.spec.Terminal {
		if t == m.current {
			return true
		}
	}
	return false
}

// OnCapabilityCall forwards an executed capability result to the scenario
// hook, if one is installed. Hook panics are recovered; the machine is
// left in whatever state the hook reached before panicking, which is
// observable by re-querying.
func (m *Machine) OnCapabilityCall(out CallOutcome) {
	if m.hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("capability hook panic recovered",
				"capability", out.Name,
				"panic", r,
			)
		}
	}()
	m.hook(m, out)
}

// Snapshot captures an immutable view of the machine at the given step.
func (m *Machine) Snapshot(step int) Snapshot {
	snap := Snapshot{
		CurrentState: m.current,
		Step:         step,
		Checks:       m.Checks(),
		Violations:   m.Violations(),
		Terminal:     m.IsTerminal(),
	}
	if m.caseData != nil {
		snap.CaseID = m.caseData.CaseID()
		snap.Case = m.caseData.Serialize()
	}
	return snap
}

// RequiredChecks returns the spec's required checks in declaration order.
func (m *Machine) RequiredChecks() []string {
	out := make([]string, len(m.spec.RequiredChecks))
	copy(out, m.spec.RequiredChecks)
	return out
}

func (m *Machine) isValidState(s string) bool {
	if len(m.spec.Valid) == 0 {
		return true
	}
	for _, v := range m.spec.Valid {
		if v == s {
			return true
		}
	}
	return false
}
