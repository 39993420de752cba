// Package logging configures the process-wide structured logger.
//
// All components log through log/slog with a "component" attribute; this
// package owns handler construction so the CLI and tests configure
// logging in exactly one place.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	// Default: "info".
	Level string `yaml:"level"`

	// Format selects the handler: "text" or "json". Default: "text".
	Format string `yaml:"format"`

	// Output selects the destination: "stderr" or "stdout".
	// Default: "stderr".
	Output string `yaml:"output"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}

// Setup builds a logger from the configuration and installs it as the
// slog default. It returns the logger for direct use.
func Setup(config *Config) *slog.Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var out io.Writer = os.Stderr
	if strings.EqualFold(config.Output, "stdout") {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(config.Level)}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLevel maps a level name to a slog level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
