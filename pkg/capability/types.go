package capability

import (
	"fmt"
	"time"

	"mercator-hq/ganymede/pkg/state"
)

// EnforcementMode selects how the dispatcher treats non-compliant calls.
type EnforcementMode string

const (
	// ModeSoft always executes effects and defers all judgment to the
	// vulnerability rule engine. This is the default harness mode.
	ModeSoft EnforcementMode = "soft"

	// ModeStrict lets the dispatcher and effects refuse non-compliant
	// calls with an error result.
	ModeStrict EnforcementMode = "strict"
)

// ParamType is the schema type tag of a capability parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
	ParamArray   ParamType = "array"
)

// Param describes one capability parameter.
type Param struct {
	// Name is the parameter key in the call arguments.
	Name string

	// Type is the schema type tag.
	Type ParamType

	// Required marks parameters that must be present for the call to
	// execute.
	Required bool

	// Dangerous flags parameters whose values are consequential enough
	// that rule predicates commonly inspect them.
	Dangerous bool

	// Description is the human-readable parameter description exported
	// in the wire schema.
	Description string
}

// EffectFunc is the core effect of a capability. It receives the call
// arguments, the episode state machine, and the enforcement mode. A
// returned error (or a panic) is converted to an error Result at the
// dispatcher boundary and never propagates.
type EffectFunc func(args map[string]any, m *state.Machine, mode EnforcementMode) (Result, error)

// Definition is a registered, schema-described capability.
type Definition struct {
	// Name is the unique catalogue key.
	Name string

	// Description is the human-readable capability description.
	Description string

	// Permission is the 1-4 ordinal classifying how consequential or
	// irreversible the capability is.
	Permission int

	// Params is the declared parameter list.
	Params []Param

	// Prerequisites lists checks that must be recorded on the state
	// machine before this capability executes. Enforced only in strict
	// mode; in soft mode the list is advisory and rule predicates judge
	// violations.
	Prerequisites []string

	// Effect is the capability's core effect.
	Effect EffectFunc
}

// Call is one requested capability invocation.
type Call struct {
	// Name is the requested capability name.
	Name string `json:"tool"`

	// Args are the invocation arguments.
	Args map[string]any `json:"args"`

	// Timestamp is when the call was received.
	Timestamp time.Time `json:"timestamp"`
}

// Status is the outcome classification of a capability result.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is the outcome of one capability invocation.
type Result struct {
	// Status is ok or error.
	Status Status `json:"status"`

	// Error is the failure message for error results.
	Error string `json:"error,omitempty"`

	// Payload is the result payload for ok results, or additional
	// context for error results.
	Payload map[string]any `json:"payload,omitempty"`
}

// IsError reports whether the result carries an error status.
func (r Result) IsError() bool {
	return r.Status == StatusError
}

// OK builds a success result with the given payload.
func OK(payload map[string]any) Result {
	return Result{Status: StatusOK, Payload: payload}
}

// Errorf builds an error result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}

// Record pairs a call with its result in the per-episode history.
type Record struct {
	Call   Call   `json:"call"`
	Result Result `json:"result"`
}

// PreHook runs before a capability effect. Returning abort=true
// short-circuits execution; the hook's result is returned to the caller
// verbatim and the effect never runs.
type PreHook func(call Call, m *state.Machine) (abort bool, result Result)

// PostHook runs after a capability effect and may replace the result.
type PostHook func(call Call, m *state.Machine, result Result) Result

// WireParameters is the parameter object of an exported function-calling
// schema.
type WireParameters struct {
	Type       string               `json:"type"`
	Properties map[string]WireParam `json:"properties"`
	Required   []string             `json:"required"`
}

// WireParam is a single exported parameter schema.
type WireParam struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// WireSchema is a capability rendered as a generic function-calling
// schema for an external agent client.
type WireSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  WireParameters `json:"parameters"`
}

// ToWireFormat renders the definition into a generic function-calling
// schema. It is pure and side-effect free.
func (d *Definition) ToWireFormat() WireSchema {
	params := WireParameters{
		Type:       "object",
		Properties: make(map[string]WireParam, len(d.Params)),
		Required:   []string{},
	}
	for _, p := range d.Params {
		params.Properties[p.Name] = WireParam{
			Type:        string(p.Type),
			Description: p.Description,
		}
		if p.Required {
			params.Required = append(params.Required, p.Name)
		}
	}
	return WireSchema{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  params,
	}
}
