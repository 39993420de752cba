package reward

import (
	"fmt"
	"log/slog"

	"mercator-hq/ganymede/pkg/rules"
	"mercator-hq/ganymede/pkg/state"
)

// Component is one weighted score contribution.
type Component struct {
	// Name identifies the contribution for attribution.
	Name string `json:"name"`

	// RawValue is the unweighted component value.
	RawValue float64 `json:"raw_value"`

	// Weight scales the raw value into the total.
	Weight float64 `json:"weight"`
}

// Weighted returns the component's contribution to the total.
func (c Component) Weighted() float64 {
	return c.RawValue * c.Weight
}

// ComponentFunc produces a step's scenario business components from the
// state snapshot and the performed action (result attached).
type ComponentFunc func(snap state.Snapshot, action rules.Action) []Component

// CustomFunc is a scenario scoring callback. An error return (or panic)
// contributes zero and is surfaced as a breakdown diagnostic.
type CustomFunc func(snap state.Snapshot, action rules.Action) (Component, error)

// Config declares a scenario's reward weighting.
type Config struct {
	// BaseScore is the per-step base contribution.
	BaseScore float64

	// RulePenalties maps rule ids to (negative) penalty contributions.
	RulePenalties map[string]float64

	// DefaultRulePenalty applies to triggered rules absent from
	// RulePenalties.
	DefaultRulePenalty float64

	// ProcessPenalties maps violation tags to (negative) penalty
	// contributions.
	ProcessPenalties map[string]float64

	// DefaultProcessPenalty applies to violations absent from
	// ProcessPenalties.
	DefaultProcessPenalty float64

	// Components are the scenario's business component producers.
	Components []ComponentFunc

	// Custom are additional scoring callbacks.
	Custom []CustomFunc
}

// Breakdown is one step's fully attributed score.
type Breakdown struct {
	// BaseScore is the configured base contribution.
	BaseScore float64 `json:"base_score"`

	// Components are all weighted contributions, business and custom,
	// in evaluation order.
	Components []Component `json:"components"`

	// RulePenalty is the summed contribution of triggered rules.
	RulePenalty float64 `json:"rule_penalty"`

	// ProcessPenalty is the summed contribution of recorded violations.
	ProcessPenalty float64 `json:"process_penalty"`

	// Total is the unclamped sum of all contributions.
	Total float64 `json:"total"`

	// Diagnostics lists custom callbacks that failed and contributed
	// zero.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Clamped returns the total floored at zero. Clamping is a display
// decision; the accumulator itself never clamps.
func (b Breakdown) Clamped() float64 {
	if b.Total < 0 {
		return 0
	}
	return b.Total
}

// Accumulator computes step breakdowns from a fixed configuration.
type Accumulator struct {
	config Config
	logger *slog.Logger
}

// NewAccumulator creates an accumulator for the given configuration.
func NewAccumulator(config Config) *Accumulator {
	return &Accumulator{
		config: config,
		logger: slog.Default().With("component", "reward.accumulator"),
	}
}

// Breakdown computes the attributable score for one step. triggeredRules
// are the rule ids the caller chose to penalize this step (normally the
// newly triggered ones); violations are read from the snapshot.
func (a *Accumulator) Breakdown(snap state.Snapshot, action rules.Action, triggeredRules []string) Breakdown {
	b := Breakdown{
		BaseScore:  a.config.BaseScore,
		Components: []Component{},
	}

	for _, fn := range a.config.Components {
		b.Components = append(b.Components, fn(snap, action)...)
	}

	for _, id := range triggeredRules {
		b.RulePenalty += a.rulePenalty(id)
	}

	for _, tag := range snap.Violations {
		b.ProcessPenalty += a.processPenalty(tag)
	}

	for i, fn := range a.config.Custom {
		comp, err := a.runCustom(i, fn, snap, action)
		if err != nil {
			b.Diagnostics = append(b.Diagnostics, err.Error())
			continue
		}
		b.Components = append(b.Components, comp)
	}

	b.Total = b.BaseScore + b.RulePenalty + b.ProcessPenalty
	for _, c := range b.Components {
		b.Total += c.Weighted()
	}
	return b
}

func (a *Accumulator) rulePenalty(ruleID string) float64 {
	if p, ok := a.config.RulePenalties[ruleID]; ok {
		return p
	}
	return a.config.DefaultRulePenalty
}

func (a *Accumulator) processPenalty(tag string) float64 {
	if p, ok := a.config.ProcessPenalties[tag]; ok {
		return p
	}
	return a.config.DefaultProcessPenalty
}

// runCustom invokes one custom callback with panic recovery. Failures
// contribute zero.
func (a *Accumulator) runCustom(index int, fn CustomFunc, snap state.Snapshot, action rules.Action) (comp Component, err error) {
	defer func() {
		if r := recover(); r != nil {
			comp = Component{}
			err = fmt.Errorf("custom component %d panicked: %v", index, r)
			a.logger.Error("custom reward component panic recovered",
				"index", index,
				"panic", r,
			)
		}
	}()

	comp, callErr := fn(snap, action)
	if callErr != nil {
		return Component{}, fmt.Errorf("custom component %d failed: %v", index, callErr)
	}
	return comp, nil
}
