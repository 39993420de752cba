package audit

import (
	"context"
	"time"
)

// EventType identifies the kind of lifecycle event recorded in a log entry.
type EventType string

const (
	// EventEpisodeStart marks the beginning of an episode.
	EventEpisodeStart EventType = "episode_start"

	// EventStep records one completed step of the run loop.
	EventStep EventType = "step"

	// EventToolCall records a capability invocation and its result.
	EventToolCall EventType = "tool_call"

	// EventVulnerabilityTriggered records the first firing of a
	// vulnerability rule within an episode.
	EventVulnerabilityTriggered EventType = "vulnerability_triggered"

	// EventAlert records an alert raised by the alert system.
	EventAlert EventType = "alert"

	// EventEpisodeEnd marks episode termination or truncation.
	EventEpisodeEnd EventType = "episode_end"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Entry is a single append-only audit record. Entries are never mutated
// after being logged.
type Entry struct {
	// Timestamp is when the entry was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Level is the entry severity.
	Level Level `json:"level"`

	// EpisodeID identifies the episode this entry belongs to.
	EpisodeID string `json:"episode_id"`

	// Event is the lifecycle event type.
	Event EventType `json:"event_type"`

	// Payload contains event-specific details.
	Payload map[string]any `json:"payload,omitempty"`
}

// Storage is the persistence boundary for audit entries. Implementations
// live in the storage subpackage; the Trail treats all of them as
// best-effort append streams.
type Storage interface {
	// Append persists a single entry to the episode's append-only stream.
	Append(ctx context.Context, entry Entry) error

	// EpisodeEntries returns all persisted entries for an episode in
	// insertion order. An unknown episode id yields an empty slice.
	EpisodeEntries(ctx context.Context, episodeID string) ([]Entry, error)

	// EpisodeIDs returns the ids of all episodes with persisted entries.
	EpisodeIDs(ctx context.Context) ([]string, error)

	// DeleteBefore removes all entries recorded before the cutoff and
	// returns the number of entries deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases backend resources.
	Close() error
}

// AlertLevel classifies alert severity.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertHigh     AlertLevel = "HIGH"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is a single raised alert.
type Alert struct {
	// ID uniquely identifies the alert.
	ID string `json:"id"`

	// Level is the alert severity.
	Level AlertLevel `json:"level"`

	// RuleID names the vulnerability or alert rule that raised the alert,
	// if any.
	RuleID string `json:"rule_id,omitempty"`

	// Message is the human-readable alert text.
	Message string `json:"message"`

	// Details contains alert-specific context.
	Details map[string]any `json:"details,omitempty"`

	// Timestamp is when the alert was triggered.
	Timestamp time.Time `json:"timestamp"`

	// Acknowledged indicates whether the alert has been acknowledged.
	Acknowledged bool `json:"acknowledged"`
}

// AlertRule is a declarative alert: a condition predicate paired with a
// message template. Rules are evaluated by AlertSystem.CheckRules; every
// matching rule triggers one alert.
type AlertRule struct {
	// Name identifies the rule.
	Name string

	// Level is the severity of alerts raised by this rule.
	Level AlertLevel

	// Condition decides whether the rule matches the given context.
	Condition func(ctx map[string]any) bool

	// Message is the alert message template. Occurrences of {key} are
	// replaced with the corresponding context value.
	Message string
}

// AlertCallback receives every triggered alert. A callback returning an
// error (or panicking) is recorded as a diagnostic and never aborts the
// trigger.
type AlertCallback func(Alert) error

// Diagnostic records a recovered side-channel failure (storage write or
// alert callback).
type Diagnostic struct {
	// Source identifies where the failure occurred ("storage", "callback").
	Source string `json:"source"`

	// EpisodeID is the episode being processed, if known.
	EpisodeID string `json:"episode_id,omitempty"`

	// Message describes the failure.
	Message string `json:"message"`

	// Timestamp is when the failure was recorded.
	Timestamp time.Time `json:"timestamp"`
}
