// Package audit provides the append-only audit trail and alerting for
// evaluation episodes.
//
// # Audit Trail
//
// The Trail records every lifecycle event, tool call, and alert for an
// episode as an ordered, immutable sequence of entries:
//
//	trail := audit.NewTrail(storage, nil)
//	trail.LogEpisodeStart(episodeID, map[string]any{"scenario": "wire_approval"})
//	trail.LogToolCall(episodeID, map[string]any{"tool": "approve_wire"})
//	entries := trail.EpisodeEntries(episodeID) // insertion order
//
// Entries are always appended to the in-memory log first. If a storage
// backend is configured, the entry is then appended to the per-episode
// persistent stream; a storage failure is logged and recorded as a
// diagnostic but never loses the in-memory entry and never propagates to
// the caller.
//
// # Alerts
//
// The AlertSystem tracks alerts raised when vulnerability rules fire:
//
//	alerts := audit.NewAlertSystem(nil)
//	alerts.AddCallback(func(a audit.Alert) error { ... })
//	alerts.Trigger(audit.Alert{Level: audit.AlertHigh, RuleID: "approved_high_risk"})
//
// Callbacks are invoked for every triggered alert. A callback that returns
// an error or panics is folded into the diagnostics list; alert delivery is
// at-least-once, fire-and-forget, and never aborts the episode.
//
// Declarative AlertRules pair a condition predicate with a message template
// and are evaluated via CheckRules; every matching rule triggers its own
// alert.
//
// # Durability
//
// Persistence is best-effort append. Writes are flushed per record but not
// fsynced; consumers that need stronger durability must layer it on top.
package audit
