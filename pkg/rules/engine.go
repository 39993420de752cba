package rules

import (
	"fmt"
	"log/slog"
	"sort"

	"mercator-hq/ganymede/pkg/state"
)

// Engine evaluates the registered vulnerability rules. The rule set is
// populated once at setup and treated as read-only thereafter.
type Engine struct {
	rules  map[string]Rule
	logger *slog.Logger
}

// NewEngine creates an empty rule engine.
func NewEngine() *Engine {
	return &Engine{
		rules:  make(map[string]Rule),
		logger: slog.Default().With("component", "rules.engine"),
	}
}

// Register adds a rule, keyed by its unique id.
func (e *Engine) Register(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("rule is nil")
	}
	if rule.ID() == "" {
		return fmt.Errorf("rule id is empty")
	}
	if _, exists := e.rules[rule.ID()]; exists {
		return fmt.Errorf("rule %q already registered", rule.ID())
	}
	e.rules[rule.ID()] = rule
	return nil
}

// RuleIDs returns the registered rule ids, sorted.
func (e *Engine) RuleIDs() []string {
	ids := make([]string, 0, len(e.rules))
	for id := range e.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rule returns the registered rule for an id, or nil.
func (e *Engine) Rule(id string) Rule {
	return e.rules[id]
}

// CheckAll evaluates every registered rule against the snapshot, action,
// and context, and returns the triggered set sorted by rule id. The
// result is therefore invariant to the order rules were registered or
// evaluated in. A rule that panics is treated as not fired and logged;
// rule evaluation can never abort the episode.
func (e *Engine) CheckAll(snap state.Snapshot, action Action, ctx Context) []Triggered {
	triggered := make([]Triggered, 0)
	for _, id := range e.RuleIDs() {
		rule := e.rules[id]
		fired, details := e.evaluate(rule, snap, action, ctx)
		if !fired {
			continue
		}
		triggered = append(triggered, Triggered{
			RuleID:   id,
			Severity: rule.Severity(),
			Details:  details,
			Step:     snap.Step,
		})
	}
	return triggered
}

// evaluate runs one rule with panic recovery.
func (e *Engine) evaluate(rule Rule, snap state.Snapshot, action Action, ctx Context) (fired bool, details map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			fired = false
			details = nil
			e.logger.Error("rule predicate panic recovered",
				"rule_id", rule.ID(),
				"panic", r,
			)
		}
	}()
	return rule.Evaluate(snap, action, ctx)
}
