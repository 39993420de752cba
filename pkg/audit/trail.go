package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TrailConfig contains configuration for the audit trail.
type TrailConfig struct {
	// PersistTimeout is the timeout for writes to the storage backend.
	// Default: 5 seconds
	PersistTimeout time.Duration

	// MaxDiagnostics caps the diagnostics list; older diagnostics are
	// dropped once the cap is reached. Default: 1000
	MaxDiagnostics int
}

// DefaultTrailConfig returns the default trail configuration.
func DefaultTrailConfig() *TrailConfig {
	return &TrailConfig{
		PersistTimeout: 5 * time.Second,
		MaxDiagnostics: 1000,
	}
}

// Trail is the durable, ordered, per-episode audit log.
//
// Every log method appends to the in-memory per-episode list first and
// then, if a storage backend is configured, to the persistent stream. A
// persistence failure never loses the in-memory entry and never propagates
// to the caller; it is recorded as a Diagnostic instead.
type Trail struct {
	mu          sync.Mutex
	entries     map[string][]Entry
	storage     Storage
	config      *TrailConfig
	diagnostics []Diagnostic
	logger      *slog.Logger

	// clock is overridable for tests.
	clock func() time.Time
}

// NewTrail creates a new audit trail. storage may be nil, in which case
// entries are kept in memory only.
func NewTrail(storage Storage, config *TrailConfig) *Trail {
	if config == nil {
		config = DefaultTrailConfig()
	}
	return &Trail{
		entries: make(map[string][]Entry),
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.trail"),
		clock:   time.Now,
	}
}

// Log appends an entry for the given episode. The timestamp is assigned at
// append time; callers never set it.
func (t *Trail) Log(episodeID string, level Level, event EventType, payload map[string]any) Entry {
	entry := Entry{
		Timestamp: t.clock(),
		Level:     level,
		EpisodeID: episodeID,
		Event:     event,
		Payload:   payload,
	}

	t.mu.Lock()
	t.entries[episodeID] = append(t.entries[episodeID], entry)
	t.mu.Unlock()

	t.persist(entry)
	return entry
}

// LogEpisodeStart records the beginning of an episode.
func (t *Trail) LogEpisodeStart(episodeID string, payload map[string]any) Entry {
	return t.Log(episodeID, LevelInfo, EventEpisodeStart, payload)
}

// LogStep records one completed step.
func (t *Trail) LogStep(episodeID string, payload map[string]any) Entry {
	return t.Log(episodeID, LevelInfo, EventStep, payload)
}

// LogToolCall records a capability invocation and its result.
func (t *Trail) LogToolCall(episodeID string, payload map[string]any) Entry {
	return t.Log(episodeID, LevelInfo, EventToolCall, payload)
}

// LogVulnerability records the first firing of a vulnerability rule.
func (t *Trail) LogVulnerability(episodeID string, payload map[string]any) Entry {
	return t.Log(episodeID, LevelWarning, EventVulnerabilityTriggered, payload)
}

// LogAlert records a raised alert.
func (t *Trail) LogAlert(episodeID string, payload map[string]any) Entry {
	return t.Log(episodeID, LevelWarning, EventAlert, payload)
}

// LogEpisodeEnd records episode termination or truncation.
func (t *Trail) LogEpisodeEnd(episodeID string, payload map[string]any) Entry {
	return t.Log(episodeID, LevelInfo, EventEpisodeEnd, payload)
}

// EpisodeEntries returns the in-memory entries for an episode in insertion
// order. An unknown episode id returns an empty slice, not an error. The
// returned slice is a copy; the trail's internal log is never exposed.
func (t *Trail) EpisodeEntries(episodeID string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	src := t.entries[episodeID]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// EpisodeIDs returns the ids of all episodes with in-memory entries.
func (t *Trail) EpisodeIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}

// Diagnostics returns recovered side-channel failures in occurrence order.
func (t *Trail) Diagnostics() []Diagnostic {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Diagnostic, len(t.diagnostics))
	copy(out, t.diagnostics)
	return out
}

// Close closes the storage backend, if any.
func (t *Trail) Close() error {
	if t.storage == nil {
		return nil
	}
	return t.storage.Close()
}

// persist appends the entry to the storage backend, folding any failure
// into the diagnostics list.
func (t *Trail) persist(entry Entry) {
	if t.storage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.config.PersistTimeout)
	defer cancel()

	if err := t.storage.Append(ctx, entry); err != nil {
		t.logger.Error("audit persistence failed",
			"episode_id", entry.EpisodeID,
			"event_type", entry.Event,
			"error", err,
		)
		t.recordDiagnostic(Diagnostic{
			Source:    "storage",
			EpisodeID: entry.EpisodeID,
			Message:   err.Error(),
			Timestamp: t.clock(),
		})
	}
}

func (t *Trail) recordDiagnostic(d Diagnostic) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.diagnostics) >= t.config.MaxDiagnostics {
		t.diagnostics = t.diagnostics[1:]
	}
	t.diagnostics = append(t.diagnostics, d)
}
