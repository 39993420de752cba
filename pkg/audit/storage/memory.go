package storage

import (
	"context"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/audit"
)

// MemoryStorage is an in-process audit storage backend. It is primarily
// useful for tests and for runs where persistence is disabled but the
// storage interface is still exercised.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string][]audit.Entry
	order   []string
	closed  bool
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string][]audit.Entry),
	}
}

// Append stores an entry in the episode's in-memory stream.
func (m *MemoryStorage) Append(ctx context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return audit.NewStorageError("memory", "append", errClosed)
	}

	if _, ok := m.entries[entry.EpisodeID]; !ok {
		m.order = append(m.order, entry.EpisodeID)
	}
	m.entries[entry.EpisodeID] = append(m.entries[entry.EpisodeID], entry)
	return nil
}

// EpisodeEntries returns all entries for an episode in insertion order.
func (m *MemoryStorage) EpisodeEntries(ctx context.Context, episodeID string) ([]audit.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.entries[episodeID]
	out := make([]audit.Entry, len(src))
	copy(out, src)
	return out, nil
}

// EpisodeIDs returns episode ids in first-seen order.
func (m *MemoryStorage) EpisodeIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.order))
	copy(out, m.order)
	return out, nil
}

// DeleteBefore removes all entries recorded before the cutoff.
func (m *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	var keptOrder []string
	for _, id := range m.order {
		var kept []audit.Entry
		for _, e := range m.entries[id] {
			if e.Timestamp.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(m.entries, id)
			continue
		}
		m.entries[id] = kept
		keptOrder = append(keptOrder, id)
	}
	m.order = keptOrder
	return deleted, nil
}

// Close marks the backend closed; subsequent appends fail.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
