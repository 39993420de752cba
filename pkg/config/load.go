package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies GANYMEDE_* environment variable overrides. Environment
// variables always take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file (applies defaults)
//  2. Apply environment variable overrides
//  3. Re-validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after env overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides mutates cfg from GANYMEDE_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GANYMEDE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("GANYMEDE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}

	if v := os.Getenv("GANYMEDE_HARNESS_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Harness.MaxSteps = n
		}
	}
	if v := os.Getenv("GANYMEDE_HARNESS_MODE"); v != "" {
		cfg.Harness.EnforcementMode = strings.ToLower(v)
	}

	if v := os.Getenv("GANYMEDE_AUDIT_BACKEND"); v != "" {
		cfg.Audit.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("GANYMEDE_AUDIT_DIR"); v != "" {
		cfg.Audit.Dir = v
	}
	if v := os.Getenv("GANYMEDE_AUDIT_SQLITE_PATH"); v != "" {
		cfg.Audit.SQLitePath = v
	}

	if v := os.Getenv("GANYMEDE_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("GANYMEDE_METRICS_LISTEN_ADDRESS"); v != "" {
		cfg.Metrics.ListenAddress = v
	}
}
