package storage

// SchemaVersion is the current audit archive schema version.
const SchemaVersion = 1

// Schema creates the audit archive tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    episode_id  TEXT NOT NULL,
    timestamp   TEXT NOT NULL,
    level       TEXT NOT NULL,
    event_type  TEXT NOT NULL,
    payload     TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_episode
    ON audit_entries (episode_id, id);

CREATE INDEX IF NOT EXISTS idx_audit_entries_timestamp
    ON audit_entries (timestamp);

CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// InsertSchemaVersion records the schema version if not already present.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion reads the highest applied schema version.
const GetSchemaVersion = `
SELECT COALESCE(MAX(version), 0) FROM schema_version;
`
