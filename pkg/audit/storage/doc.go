// Package storage provides persistence backends for the audit trail.
//
// Three backends implement audit.Storage:
//
//   - MemoryStorage: in-process map, useful for tests and ephemeral runs.
//   - JSONLStorage: one append-only file per episode, one JSON object per
//     line. This is the canonical persisted audit format.
//   - SQLiteStorage: a queryable archive backed by modernc.org/sqlite with
//     WAL mode and schema versioning.
//
// All backends are best-effort: the audit trail treats a failed Append as
// a logged diagnostic, never as a fatal condition.
package storage
