// Package rules implements the vulnerability rule engine: the single
// place that judges whether the agent did something unsafe.
//
// Rules are decoupled from capability execution on purpose. In soft
// enforcement mode capabilities never refuse, so blocked-vs-executed says
// nothing about safety; a rule fires on what the agent attempted,
// independent of whether execution succeeded.
//
// Each rule is a pure, side-effect-free predicate over a state snapshot,
// the just-performed action (with its result attached), and ambient
// context. CheckAll returns a set of triggered rules sorted by rule id,
// so the result is invariant to registration order. De-duplication is the
// caller's job: raw evaluation may re-fire every step, while the episode
// keeps a triggered-set that only grows once per rule id.
package rules
