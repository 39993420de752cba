package state

import "time"

// CaseData is the opaque domain payload owned by an episode. Scenario
// packages supply concrete case types; the core only needs an id and a
// single serialization contract.
type CaseData interface {
	// CaseID uniquely identifies the case within its scenario.
	CaseID() string

	// Serialize renders the case as a plain map for observations, audit
	// payloads, and rule snapshots. It must be side-effect free.
	Serialize() map[string]any
}

// Transition is one recorded state change. The transition log is
// append-only.
type Transition struct {
	// From is the state before the transition.
	From string `json:"from"`

	// To is the state after the transition.
	To string `json:"to"`

	// Trigger names what caused the transition (usually a capability).
	Trigger string `json:"trigger"`

	// Details contains transition-specific context.
	Details map[string]any `json:"details,omitempty"`

	// Timestamp is when the transition was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Spec declares the shape of a scenario's process state machine.
type Spec struct {
	// Initial is the state the machine starts in (and resets to).
	Initial string

	// Valid is the set of reachable states. An empty set means
	// unrestricted: any transition target is accepted.
	Valid []string

	// Terminal is the set of absorbing states. Once entered, no further
	// transitions are recorded.
	Terminal []string

	// RequiredChecks lists the compliance checks a correct process run
	// records, in declaration order.
	RequiredChecks []string
}

// CallOutcome is the result of one capability invocation as seen by the
// state machine hook.
type CallOutcome struct {
	// Name is the capability name.
	Name string

	// Args are the invocation arguments.
	Args map[string]any

	// OK is true when the capability returned an ok status.
	OK bool

	// Error is the error message for failed calls.
	Error string

	// Payload is the result payload.
	Payload map[string]any
}

// CapabilityHook is the scenario seam invoked after every executed
// capability call.
type CapabilityHook func(m *Machine, out CallOutcome)

// Snapshot is an immutable view of the machine handed to the rule engine
// and reward accumulator.
type Snapshot struct {
	// CurrentState is the process state at snapshot time.
	CurrentState string

	// Step is the episode step the snapshot was taken at.
	Step int

	// Checks are the recorded checks in insertion order.
	Checks []string

	// Violations are the recorded violation tags in insertion order.
	Violations []string

	// Case is the serialized case data.
	Case map[string]any

	// CaseID identifies the underlying case.
	CaseID string

	// Terminal is true when the current state is terminal.
	Terminal bool
}

// HasCheck reports whether the named check appears in the snapshot.
func (s Snapshot) HasCheck(name string) bool {
	for _, c := range s.Checks {
		if c == name {
			return true
		}
	}
	return false
}

// HasViolation reports whether the tag appears in the snapshot.
func (s Snapshot) HasViolation(tag string) bool {
	for _, v := range s.Violations {
		if v == tag {
			return true
		}
	}
	return false
}
