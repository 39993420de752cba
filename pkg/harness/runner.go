package harness

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/capability"
	"mercator-hq/ganymede/pkg/reward"
	"mercator-hq/ganymede/pkg/rules"
	"mercator-hq/ganymede/pkg/scenario"
	"mercator-hq/ganymede/pkg/state"
)

// Metrics is the telemetry seam. The telemetry/metrics Collector
// implements it; a nil Metrics disables instrumentation.
type Metrics interface {
	EpisodeStarted(scenarioID string)
	EpisodeEnded(scenarioID, outcome string, steps int, totalReward float64)
	StepCompleted(scenarioID string)
	CapabilityCalled(scenarioID, capabilityName, status string)
	RuleTriggered(scenarioID, ruleID string)
	AlertRaised(level string)
}

// Config contains runner configuration.
type Config struct {
	// MaxSteps is the truncation boundary. Default: 20.
	MaxSteps int

	// Mode is the enforcement mode threaded through capability
	// execution. Default: soft.
	Mode capability.EnforcementMode
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		MaxSteps: 20,
		Mode:     capability.ModeSoft,
	}
}

// Deps are the runner's collaborators, passed explicitly. There is no
// global registry: concurrent episodes are independent because each
// runner exclusively owns its dependency set.
type Deps struct {
	Scenario    scenario.Scenario
	Dispatcher  *capability.Dispatcher
	Engine      *rules.Engine
	Accumulator *reward.Accumulator
	Trail       *audit.Trail
	Alerts      *audit.AlertSystem
	Metrics     Metrics // optional
}

// Runner orchestrates the evaluation loop for one scenario. A Runner must
// be driven by a single goroutine; concurrent episodes require separate
// Runner instances.
type Runner struct {
	config Config
	deps   Deps
	logger *slog.Logger
	clock  func() time.Time

	episode *Episode
	machine *state.Machine

	// triggered is the episode-level de-duplicated triggered-set, in
	// first-firing order.
	triggered    []rules.Triggered
	triggeredSet map[string]struct{}

	history      []capability.Record
	transcript   []string
	latestOutput string
	totalReward  float64
}

// New creates a runner from explicit dependencies.
func New(config Config, deps Deps) (*Runner, error) {
	if deps.Scenario == nil {
		return nil, fmt.Errorf("harness: scenario is required")
	}
	if deps.Dispatcher == nil || deps.Engine == nil || deps.Accumulator == nil {
		return nil, fmt.Errorf("harness: dispatcher, engine, and accumulator are required")
	}
	if deps.Trail == nil {
		deps.Trail = audit.NewTrail(nil, nil)
	}
	if deps.Alerts == nil {
		deps.Alerts = audit.NewAlertSystem(nil)
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultConfig().MaxSteps
	}
	if config.Mode == "" {
		config.Mode = capability.ModeSoft
	}

	return &Runner{
		config: config,
		deps:   deps,
		logger: slog.Default().With("component", "harness.runner", "scenario", deps.Scenario.ID()),
		clock:  time.Now,
	}, nil
}

// ForScenario is the composition root for the common case: it constructs
// a dispatcher, rule engine, accumulator, and alert system from the
// scenario's declarations and wires them into a runner. metrics may be
// nil.
func ForScenario(sc scenario.Scenario, config Config, trail *audit.Trail, metrics Metrics) (*Runner, error) {
	dispatcher := capability.NewDispatcher()
	for _, def := range sc.Capabilities() {
		if err := dispatcher.Register(def); err != nil {
			return nil, fmt.Errorf("harness: scenario %q: %w", sc.ID(), err)
		}
	}

	engine := rules.NewEngine()
	for _, rule := range sc.Rules() {
		if err := engine.Register(rule); err != nil {
			return nil, fmt.Errorf("harness: scenario %q: %w", sc.ID(), err)
		}
	}

	return New(config, Deps{
		Scenario:    sc,
		Dispatcher:  dispatcher,
		Engine:      engine,
		Accumulator: reward.NewAccumulator(sc.RewardConfig()),
		Trail:       trail,
		Alerts:      audit.NewAlertSystem(sc.AlertRules()),
		Metrics:     metrics,
	})
}

// Episode returns the current episode, or nil before the first reset.
func (r *Runner) Episode() *Episode {
	return r.episode
}

// Machine returns the current episode's state machine, or nil before the
// first reset.
func (r *Runner) Machine() *state.Machine {
	return r.machine
}

// TriggeredRules returns the episode triggered-set in first-firing order.
func (r *Runner) TriggeredRules() []rules.Triggered {
	out := make([]rules.Triggered, len(r.triggered))
	copy(out, r.triggered)
	return out
}

// Reset discards any previous episode and begins a fresh one. It returns
// the initial observation.
func (r *Runner) Reset() (Observation, error) {
	machine, err := r.deps.Scenario.NewCase()
	if err != nil {
		return Observation{}, fmt.Errorf("harness: scenario %q case setup: %w", r.deps.Scenario.ID(), err)
	}

	caseID := ""
	if machine.Case() != nil {
		caseID = machine.Case().CaseID()
	}

	r.episode = &Episode{
		ID:         uuid.New().String(),
		ScenarioID: r.deps.Scenario.ID(),
		CaseID:     caseID,
		MaxSteps:   r.config.MaxSteps,
		StartedAt:  r.clock(),
	}
	r.machine = machine
	r.triggered = nil
	r.triggeredSet = make(map[string]struct{})
	r.history = nil
	r.transcript = nil
	r.latestOutput = ""
	r.totalReward = 0

	r.deps.Trail.LogEpisodeStart(r.episode.ID, map[string]any{
		"scenario_id": r.episode.ScenarioID,
		"case_id":     r.episode.CaseID,
		"max_steps":   r.episode.MaxSteps,
		"mode":        string(r.config.Mode),
	})
	if r.deps.Metrics != nil {
		r.deps.Metrics.EpisodeStarted(r.episode.ScenarioID)
	}

	return Observation{
		Kind:     ObservationInitial,
		Scenario: r.deps.Scenario.InitialObservation(machine),
	}, nil
}

// Step advances the episode by one action and returns the observation,
// step reward, termination and truncation flags, and the info object.
// It never panics: internal panics are recovered into a noop observation
// with a diagnostic.
func (r *Runner) Step(action string) (obs Observation, rew float64, terminated, truncated bool, info Info) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("step panic recovered", "panic", rec)
			obs = Observation{Kind: ObservationNoop}
			rew = 0
			if r.episode != nil {
				terminated = r.episode.Terminated
				truncated = r.episode.Truncated
				info.EpisodeID = r.episode.ID
				info.Step = r.episode.Step
			}
			info.Diagnostics = append(info.Diagnostics, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	if r.episode == nil {
		return Observation{Kind: ObservationNoop}, 0, false, false, Info{
			Diagnostics: []string{"episode not started: call Reset first"},
		}
	}
	if r.episode.Done {
		return Observation{Kind: ObservationNoop}, 0, r.episode.Terminated, r.episode.Truncated, Info{
			EpisodeID:   r.episode.ID,
			Step:        r.episode.Step,
			Diagnostics: []string{"episode already finished"},
		}
	}

	r.episode.Step++

	act := parseAction(action, r.clock())
	obs = r.perform(&act)

	snap := r.machine.Snapshot(r.episode.Step)
	ctx := rules.Context{
		Transcript:   r.transcript,
		History:      r.history,
		LatestOutput: r.latestOutput,
	}

	fired := r.deps.Engine.CheckAll(snap, act, ctx)
	newly := r.recordTriggered(fired, act)

	for _, alert := range r.deps.Alerts.CheckRules(r.alertContext(snap, act)) {
		r.deps.Trail.LogAlert(r.episode.ID, map[string]any{
			"alert_id": alert.ID,
			"level":    string(alert.Level),
			"rule_id":  alert.RuleID,
			"message":  alert.Message,
		})
		if r.deps.Metrics != nil {
			r.deps.Metrics.AlertRaised(string(alert.Level))
		}
	}

	breakdown := r.deps.Accumulator.Breakdown(snap, act, newly)
	rew = breakdown.Total
	r.totalReward += rew

	terminated = r.machine.IsTerminal()
	truncated = !terminated && r.episode.Step >= r.episode.MaxSteps

	info = Info{
		EpisodeID:      r.episode.ID,
		Step:           r.episode.Step,
		NewlyTriggered: newly,
		Breakdown:      breakdown,
	}

	r.deps.Trail.LogStep(r.episode.ID, map[string]any{
		"step":       r.episode.Step,
		"action":     summarizeAction(act),
		"reward":     rew,
		"state":      snap.CurrentState,
		"terminated": terminated,
		"truncated":  truncated,
	})
	if r.deps.Metrics != nil {
		r.deps.Metrics.StepCompleted(r.episode.ScenarioID)
	}

	if terminated || truncated {
		r.finish(terminated, truncated, &info)
	}

	return obs, rew, terminated, truncated, info
}

// perform executes the action: dispatch for structured calls, transcript
// append for messages.
func (r *Runner) perform(act *rules.Action) Observation {
	if act.IsMessage {
		r.transcript = append(r.transcript, act.Message)
		r.latestOutput = act.Message
		return Observation{
			Kind:    ObservationMessage,
			Message: act.Message,
		}
	}

	result := r.deps.Dispatcher.Execute(*act.Call, r.machine, r.config.Mode)
	act.Result = &result
	r.history = append(r.history, capability.Record{Call: *act.Call, Result: result})

	r.deps.Trail.LogToolCall(r.episode.ID, map[string]any{
		"tool":   act.Call.Name,
		"args":   act.Call.Args,
		"status": string(result.Status),
		"error":  result.Error,
	})
	if r.deps.Metrics != nil {
		r.deps.Metrics.CapabilityCalled(r.episode.ScenarioID, act.Call.Name, string(result.Status))
	}

	return Observation{
		Kind:   ObservationToolResult,
		Tool:   act.Call.Name,
		Result: &result,
	}
}

// recordTriggered folds raw firings into the episode triggered-set. The
// first firing of each rule raises an alert and an audit entry; re-firing
// is ignored.
func (r *Runner) recordTriggered(fired []rules.Triggered, act rules.Action) []string {
	var newly []string
	for _, t := range fired {
		if _, seen := r.triggeredSet[t.RuleID]; seen {
			continue
		}
		r.triggeredSet[t.RuleID] = struct{}{}
		t.Step = r.episode.Step
		r.triggered = append(r.triggered, t)
		newly = append(newly, t.RuleID)

		r.deps.Trail.LogVulnerability(r.episode.ID, map[string]any{
			"rule_id": t.RuleID,
			"step":    t.Step,
			"details": t.Details,
		})

		alert := r.deps.Alerts.Trigger(audit.Alert{
			Level:   t.Severity,
			RuleID:  t.RuleID,
			Message: fmt.Sprintf("vulnerability rule %s triggered", t.RuleID),
			Details: map[string]any{
				"step":   t.Step,
				"action": summarizeAction(act),
			},
		})
		r.deps.Trail.LogAlert(r.episode.ID, map[string]any{
			"alert_id": alert.ID,
			"level":    string(alert.Level),
			"rule_id":  alert.RuleID,
		})

		if r.deps.Metrics != nil {
			r.deps.Metrics.RuleTriggered(r.episode.ScenarioID, t.RuleID)
			r.deps.Metrics.AlertRaised(string(t.Severity))
		}
	}
	return newly
}

// finish closes out the episode and attaches the final evaluation.
func (r *Runner) finish(terminated, truncated bool, info *Info) {
	r.episode.Done = true
	r.episode.Terminated = terminated
	r.episode.Truncated = truncated

	ruleIDs := make([]string, 0, len(r.triggered))
	for _, t := range r.triggered {
		ruleIDs = append(ruleIDs, t.RuleID)
	}

	info.FinalEvaluation = &FinalEvaluation{
		CaseID:          r.episode.CaseID,
		FinalState:      r.machine.CurrentState(),
		TotalSteps:      r.episode.Step,
		ChecksPerformed: r.machine.Checks(),
		TriggeredRules:  ruleIDs,
		Violations:      r.machine.Violations(),
		ObjectiveMet:    r.objectiveMet(),
	}

	outcome := "truncated"
	if terminated {
		outcome = "terminated"
	}
	r.deps.Trail.LogEpisodeEnd(r.episode.ID, map[string]any{
		"outcome":          outcome,
		"final_state":      r.machine.CurrentState(),
		"total_steps":      r.episode.Step,
		"triggered_rules":  ruleIDs,
		"violations":       r.machine.Violations(),
		"objective_met":    info.FinalEvaluation.ObjectiveMet,
		"total_reward":     r.totalReward,
		"checks_performed": r.machine.Checks(),
	})
	if r.deps.Metrics != nil {
		r.deps.Metrics.EpisodeEnded(r.episode.ScenarioID, outcome, r.episode.Step, r.totalReward)
	}
}

// objectiveMet calls the scenario predicate with panic recovery; a
// panicking predicate reports false.
func (r *Runner) objectiveMet() (met bool) {
	defer func() {
		if rec := recover(); rec != nil {
			met = false
			r.logger.Error("objective predicate panic recovered", "panic", rec)
		}
	}()
	return r.deps.Scenario.ObjectiveMet(r.machine)
}

// alertContext builds the context map handed to declarative alert rules.
func (r *Runner) alertContext(snap state.Snapshot, act rules.Action) map[string]any {
	ctx := map[string]any{
		"episode_id": r.episode.ID,
		"case_id":    snap.CaseID,
		"step":       r.episode.Step,
		"state":      snap.CurrentState,
		"violations": len(snap.Violations),
	}
	if act.IsMessage {
		ctx["message"] = act.Message
	} else if act.Call != nil {
		ctx["tool"] = act.Call.Name
		if act.Result != nil {
			ctx["status"] = string(act.Result.Status)
		}
	}
	return ctx
}

func summarizeAction(act rules.Action) string {
	if act.IsMessage {
		return "message"
	}
	if act.Call != nil {
		return "tool:" + act.Call.Name
	}
	return "unknown"
}
