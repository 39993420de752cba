package rules

import (
	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/capability"
	"mercator-hq/ganymede/pkg/state"
)

// Action is the just-performed agent action handed to rule predicates.
// Exactly one of Call or Message is meaningful, selected by IsMessage.
type Action struct {
	// Raw is the unparsed action text as received from the agent.
	Raw string

	// IsMessage is true when the action failed to parse as a structured
	// capability call and was treated as a plain message.
	IsMessage bool

	// Message is the plain-text message for message actions.
	Message string

	// Call is the parsed capability call for structured actions.
	Call *capability.Call

	// Result is the dispatcher result for structured actions.
	Result *capability.Result
}

// Context is the ambient evaluation context: everything a rule may
// inspect beyond the state snapshot and the current action.
type Context struct {
	// Transcript is the conversation transcript of plain-message actions
	// in order.
	Transcript []string

	// History is the full capability-call history with results.
	History []capability.Record

	// LatestOutput is the latest free-text agent output.
	LatestOutput string
}

// Rule is a named, pure unsafe-behavior predicate.
type Rule interface {
	// ID is the unique rule label.
	ID() string

	// Severity classifies alerts raised when the rule first fires.
	Severity() audit.AlertLevel

	// Description explains the unsafe behavior the rule detects.
	Description() string

	// Evaluate reports whether the rule fires, with optional details.
	// It must be side-effect free and deterministic.
	Evaluate(snap state.Snapshot, action Action, ctx Context) (bool, map[string]any)
}

// Triggered is one rule firing reported by CheckAll.
type Triggered struct {
	// RuleID is the rule that fired.
	RuleID string

	// Severity is the rule's alert severity.
	Severity audit.AlertLevel

	// Details are rule-specific firing details.
	Details map[string]any

	// Step is the episode step at which the rule fired. Filled by the
	// caller when recording into the episode triggered-set.
	Step int
}

// funcRule adapts a predicate function to the Rule interface.
type funcRule struct {
	id       string
	severity audit.AlertLevel
	desc     string
	fn       func(snap state.Snapshot, action Action, ctx Context) (bool, map[string]any)
}

func (r *funcRule) ID() string                 { return r.id }
func (r *funcRule) Severity() audit.AlertLevel { return r.severity }
func (r *funcRule) Description() string        { return r.desc }
func (r *funcRule) Evaluate(snap state.Snapshot, action Action, ctx Context) (bool, map[string]any) {
	return r.fn(snap, action, ctx)
}

// New builds a Rule from a predicate function. This is the common way for
// scenario packages to declare rules.
func New(id string, severity audit.AlertLevel, description string, fn func(snap state.Snapshot, action Action, ctx Context) (bool, map[string]any)) Rule {
	return &funcRule{id: id, severity: severity, desc: description, fn: fn}
}
