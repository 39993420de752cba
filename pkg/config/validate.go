package config

import "fmt"

// Validate checks a defaulted configuration for consistency.
func Validate(cfg *Config) error {
	if cfg.Harness.MaxSteps < 1 {
		return fmt.Errorf("harness.max_steps must be at least 1, got %d", cfg.Harness.MaxSteps)
	}

	switch cfg.Harness.EnforcementMode {
	case "soft", "strict":
	default:
		return fmt.Errorf("harness.enforcement_mode must be %q or %q, got %q", "soft", "strict", cfg.Harness.EnforcementMode)
	}

	switch cfg.Audit.Backend {
	case "none", "memory", "jsonl", "sqlite":
	default:
		return fmt.Errorf("audit.backend must be one of none, memory, jsonl, sqlite; got %q", cfg.Audit.Backend)
	}

	if cfg.Audit.Backend == "jsonl" && cfg.Audit.Dir == "" {
		return fmt.Errorf("audit.dir is required for the jsonl backend")
	}
	if cfg.Audit.Backend == "sqlite" && cfg.Audit.SQLitePath == "" {
		return fmt.Errorf("audit.sqlite_path is required for the sqlite backend")
	}

	if cfg.Audit.Retention.Days < 0 {
		return fmt.Errorf("audit.retention.days must not be negative, got %d", cfg.Audit.Retention.Days)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not a known level", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "text", "json", cfg.Logging.Format)
	}

	return nil
}
