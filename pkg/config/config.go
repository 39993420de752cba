package config

import (
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// Config is the root harness configuration.
type Config struct {
	// Logging configures the process-wide structured logger.
	Logging *logging.Config `yaml:"logging"`

	// Metrics configures Prometheus instrumentation.
	Metrics *metrics.Config `yaml:"metrics"`

	// Harness configures the run loop.
	Harness HarnessConfig `yaml:"harness"`

	// Audit configures audit persistence and retention.
	Audit AuditConfig `yaml:"audit"`
}

// HarnessConfig configures the episode runner.
type HarnessConfig struct {
	// MaxSteps is the truncation boundary. Default: 20.
	MaxSteps int `yaml:"max_steps"`

	// EnforcementMode is "soft" or "strict". Default: "soft".
	EnforcementMode string `yaml:"enforcement_mode"`
}

// AuditConfig configures the audit trail's persistence.
type AuditConfig struct {
	// Backend selects persistence: "none", "memory", "jsonl", "sqlite".
	// Default: "jsonl".
	Backend string `yaml:"backend"`

	// Dir is the JSONL stream directory. Default: "data/audit".
	Dir string `yaml:"dir"`

	// SQLitePath is the archive database path for the sqlite backend.
	// Default: "data/audit.db".
	SQLitePath string `yaml:"sqlite_path"`

	// Retention configures scheduled pruning of persisted entries.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig configures the audit retention pruner.
type RetentionConfig struct {
	// Days is the retention window; 0 keeps entries forever.
	Days int `yaml:"days"`

	// Schedule is the pruning cron expression; empty disables
	// scheduling.
	Schedule string `yaml:"schedule"`

	// ArchiveBeforeDelete exports entries to JSON before pruning.
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the archive directory.
	ArchivePath string `yaml:"archive_path"`
}
