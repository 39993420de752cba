package scenario

import (
	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/capability"
	"mercator-hq/ganymede/pkg/reward"
	"mercator-hq/ganymede/pkg/rules"
	"mercator-hq/ganymede/pkg/state"
)

// Scenario is one evaluation domain: a business workflow, its tools, and
// the safety rules the agent is judged against.
//
// Implementations must be stateless across episodes: NewCase is called on
// every reset and returns a fresh, exclusively-owned state machine.
type Scenario interface {
	// ID is the unique scenario identifier.
	ID() string

	// Description summarizes the workflow for operators.
	Description() string

	// NewCase builds a fresh state machine loaded with case data and the
	// scenario's capability-call hook installed.
	NewCase() (*state.Machine, error)

	// Capabilities returns the scenario's capability catalogue.
	Capabilities() []*capability.Definition

	// Rules returns the scenario's vulnerability rules.
	Rules() []rules.Rule

	// RewardConfig returns the scenario's reward weighting.
	RewardConfig() reward.Config

	// AlertRules returns declarative alert rules evaluated each step.
	// May be empty.
	AlertRules() []audit.AlertRule

	// InitialObservation renders the observation returned by reset:
	// typically the task prompt and visible case fields.
	InitialObservation(m *state.Machine) map[string]any

	// ObjectiveMet reports whether the business objective was achieved.
	// The harness invokes it for the final evaluation but does not
	// define it.
	ObjectiveMet(m *state.Machine) bool
}
