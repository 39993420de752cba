// Package reward turns one step's outcome into a numeric, fully
// attributable score.
//
// The breakdown formula is:
//
//	total = baseScore
//	      + Σ component.RawValue × component.Weight   (scenario components)
//	      + Σ rulePenalty(ruleID)                     (triggered rules)
//	      + Σ processPenalty(tag)                     (recorded violations)
//	      + Σ customComponent(snapshot, action)       (scenario callbacks)
//
// Penalties are negative contributions supplied as negative weights in the
// configuration. A custom callback that returns an error or panics
// contributes zero and is reported in the breakdown's diagnostics list.
//
// The accumulator never floor-clamps the total: scenarios historically
// clamped inconsistently, so clamping is an explicit caller decision via
// Breakdown.Clamped. For fixed inputs the computation is pure and safe to
// call repeatedly for inspection.
package reward
