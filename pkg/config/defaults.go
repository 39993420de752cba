package config

import (
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging == nil {
		cfg.Logging = logging.DefaultConfig()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultConfig()
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "ganymede"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "harness"
	}

	if cfg.Harness.MaxSteps == 0 {
		cfg.Harness.MaxSteps = 20
	}
	if cfg.Harness.EnforcementMode == "" {
		cfg.Harness.EnforcementMode = "soft"
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "jsonl"
	}
	if cfg.Audit.Dir == "" {
		cfg.Audit.Dir = "data/audit"
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = "data/audit.db"
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = 90
	}
	if cfg.Audit.Retention.ArchivePath == "" {
		cfg.Audit.Retention.ArchivePath = "data/archives"
	}
}
