package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/audit"
)

var errClosed = errors.New("storage is closed")

// JSONLConfig contains configuration for the JSONL storage backend.
type JSONLConfig struct {
	// Dir is the directory holding per-episode .jsonl streams.
	Dir string

	// FileMode is the permission mode for created stream files.
	// Default: 0o644
	FileMode os.FileMode
}

// DefaultJSONLConfig returns the default JSONL configuration.
func DefaultJSONLConfig() *JSONLConfig {
	return &JSONLConfig{
		Dir:      "data/audit",
		FileMode: 0o644,
	}
}

// JSONLStorage persists audit entries as one append-only file per episode,
// one JSON object per line. Writes are flushed per record but not fsynced;
// durability is best-effort.
type JSONLStorage struct {
	config  *JSONLConfig
	mu      sync.Mutex
	files   map[string]*os.File
	writers map[string]*bufio.Writer
	closed  bool
	logger  *slog.Logger
}

// NewJSONLStorage creates a new JSONL storage backend rooted at the
// configured directory, creating it if necessary.
func NewJSONLStorage(config *JSONLConfig) (*JSONLStorage, error) {
	if config == nil {
		config = DefaultJSONLConfig()
	}
	if config.FileMode == 0 {
		config.FileMode = 0o644
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, audit.NewStorageError("jsonl", "mkdir", err)
	}

	return &JSONLStorage{
		config:  config,
		files:   make(map[string]*os.File),
		writers: make(map[string]*bufio.Writer),
		logger:  slog.Default().With("component", "audit.storage.jsonl"),
	}, nil
}

// Append writes the entry as one JSON line to the episode's stream and
// flushes the buffered writer.
func (j *JSONLStorage) Append(ctx context.Context, entry audit.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return audit.NewStorageError("jsonl", "marshal", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return audit.NewStorageError("jsonl", "append", errClosed)
	}

	w, err := j.writerLocked(entry.EpisodeID)
	if err != nil {
		return err
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return audit.NewStorageError("jsonl", "append", err)
	}
	if err := w.Flush(); err != nil {
		return audit.NewStorageError("jsonl", "flush", err)
	}
	return nil
}

// EpisodeEntries reads the episode's stream back in insertion order. An
// unknown episode id yields an empty slice. Lines that fail to parse are
// skipped with a logged diagnostic rather than failing the whole read.
func (j *JSONLStorage) EpisodeEntries(ctx context.Context, episodeID string) ([]audit.Entry, error) {
	path := j.streamPath(episodeID)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []audit.Entry{}, nil
		}
		return nil, audit.NewStorageError("jsonl", "open", err)
	}
	defer f.Close()

	var entries []audit.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry audit.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			j.logger.Warn("skipping unparseable audit line",
				"episode_id", episodeID,
				"error", err,
			)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, audit.NewStorageError("jsonl", "scan", err)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}

// EpisodeIDs lists all episodes with a persisted stream, sorted.
func (j *JSONLStorage) EpisodeIDs(ctx context.Context) ([]string, error) {
	names, err := os.ReadDir(j.config.Dir)
	if err != nil {
		return nil, audit.NewStorageError("jsonl", "readdir", err)
	}

	var ids []string
	for _, de := range names {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".jsonl") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(de.Name(), ".jsonl"))
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteBefore rewrites each stream without entries older than the cutoff
// and removes streams that become empty.
func (j *JSONLStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ids, err := j.EpisodeIDs(ctx)
	if err != nil {
		return 0, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		entries, err := j.EpisodeEntries(ctx, id)
		if err != nil {
			return deleted, err
		}

		var kept []audit.Entry
		for _, e := range entries {
			if e.Timestamp.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == len(entries) {
			continue
		}

		j.closeStreamLocked(id)

		path := j.streamPath(id)
		if len(kept) == 0 {
			if err := os.Remove(path); err != nil {
				return deleted, audit.NewStorageError("jsonl", "delete", err)
			}
			continue
		}

		if err := j.rewriteStream(path, kept); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// Close flushes and closes all open streams.
func (j *JSONLStorage) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true

	var firstErr error
	for id := range j.files {
		if err := j.closeStreamLocked(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (j *JSONLStorage) writerLocked(episodeID string) (*bufio.Writer, error) {
	if w, ok := j.writers[episodeID]; ok {
		return w, nil
	}

	f, err := os.OpenFile(j.streamPath(episodeID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, j.config.FileMode)
	if err != nil {
		return nil, audit.NewStorageError("jsonl", "open", err)
	}

	w := bufio.NewWriter(f)
	j.files[episodeID] = f
	j.writers[episodeID] = w
	return w, nil
}

func (j *JSONLStorage) closeStreamLocked(episodeID string) error {
	w, ok := j.writers[episodeID]
	if !ok {
		return nil
	}

	flushErr := w.Flush()
	closeErr := j.files[episodeID].Close()
	delete(j.writers, episodeID)
	delete(j.files, episodeID)

	if flushErr != nil {
		return audit.NewStorageError("jsonl", "flush", flushErr)
	}
	if closeErr != nil {
		return audit.NewStorageError("jsonl", "close", closeErr)
	}
	return nil
}

func (j *JSONLStorage) rewriteStream(path string, entries []audit.Entry) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, j.config.FileMode)
	if err != nil {
		return audit.NewStorageError("jsonl", "rewrite", err)
	}

	w := bufio.NewWriter(f)
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			f.Close()
			return audit.NewStorageError("jsonl", "marshal", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			f.Close()
			return audit.NewStorageError("jsonl", "rewrite", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return audit.NewStorageError("jsonl", "flush", err)
	}
	if err := f.Close(); err != nil {
		return audit.NewStorageError("jsonl", "close", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return audit.NewStorageError("jsonl", "rename", err)
	}
	return nil
}

// streamPath returns the stream file path for an episode id. Path
// separators in the id are replaced so an id can never escape the
// configured directory.
func (j *JSONLStorage) streamPath(episodeID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(episodeID)
	return filepath.Join(j.config.Dir, fmt.Sprintf("%s.jsonl", safe))
}
