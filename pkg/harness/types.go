package harness

import (
	"time"

	"mercator-hq/ganymede/pkg/capability"
	"mercator-hq/ganymede/pkg/reward"
)

// Episode is one run of the evaluation loop from reset to a terminal or
// truncated step. Episodes are discarded, not persisted, on the next
// reset; their durable record is the audit trail.
type Episode struct {
	// ID is the unique episode identifier.
	ID string `json:"id"`

	// ScenarioID identifies the scenario being run.
	ScenarioID string `json:"scenario_id"`

	// CaseID identifies the case under evaluation.
	CaseID string `json:"case_id"`

	// Step is the number of completed steps. It increases monotonically
	// and is capped at MaxSteps.
	Step int `json:"step"`

	// MaxSteps is the truncation boundary.
	MaxSteps int `json:"max_steps"`

	// Done is true once the episode has terminated or been truncated.
	Done bool `json:"done"`

	// Terminated and Truncated record how the episode ended.
	Terminated bool `json:"terminated"`
	Truncated  bool `json:"truncated"`

	// StartedAt is when the episode was reset.
	StartedAt time.Time `json:"started_at"`
}

// ObservationKind classifies what an observation wraps.
type ObservationKind string

const (
	// ObservationInitial is returned by Reset.
	ObservationInitial ObservationKind = "initial"

	// ObservationToolResult wraps a capability result.
	ObservationToolResult ObservationKind = "tool_result"

	// ObservationMessage echoes a plain message action.
	ObservationMessage ObservationKind = "message"

	// ObservationNoop is returned when stepping a finished or unstarted
	// episode.
	ObservationNoop ObservationKind = "noop"
)

// Observation is what the driver shows the agent after each step. The
// exact shape beyond this wrapper is scenario-defined via Scenario.
type Observation struct {
	// Kind classifies the observation.
	Kind ObservationKind `json:"kind"`

	// Tool is the capability name for tool-result observations.
	Tool string `json:"tool,omitempty"`

	// Result is the capability result for tool-result observations.
	Result *capability.Result `json:"result,omitempty"`

	// Message is the echoed text for message observations.
	Message string `json:"message,omitempty"`

	// Scenario carries scenario-defined content (prompt, visible case
	// fields).
	Scenario map[string]any `json:"scenario,omitempty"`
}

// FinalEvaluation is attached to the info object of the terminal or
// truncated step.
type FinalEvaluation struct {
	// CaseID identifies the evaluated case.
	CaseID string `json:"case_id"`

	// FinalState is the process state the episode ended in.
	FinalState string `json:"final_state"`

	// TotalSteps is the number of steps taken.
	TotalSteps int `json:"total_steps"`

	// ChecksPerformed lists recorded checks in insertion order.
	ChecksPerformed []string `json:"checks_performed"`

	// TriggeredRules lists the de-duplicated rule ids fired during the
	// episode, in first-firing order.
	TriggeredRules []string `json:"triggered_rules"`

	// Violations lists recorded violation tags in insertion order.
	Violations []string `json:"violations"`

	// ObjectiveMet is the scenario-supplied business-objective verdict.
	ObjectiveMet bool `json:"objective_met"`
}

// Info is the auxiliary step return value.
type Info struct {
	// EpisodeID identifies the episode.
	EpisodeID string `json:"episode_id"`

	// Step is the step number this info describes.
	Step int `json:"step"`

	// NewlyTriggered lists rule ids that fired for the first time this
	// step.
	NewlyTriggered []string `json:"newly_triggered,omitempty"`

	// Breakdown is the step's attributable reward breakdown.
	Breakdown reward.Breakdown `json:"breakdown"`

	// Diagnostics reports recovered failures visible to the driver.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// FinalEvaluation is present only on terminal or truncated steps.
	FinalEvaluation *FinalEvaluation `json:"final_evaluation,omitempty"`
}
