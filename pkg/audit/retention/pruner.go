package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/ganymede/pkg/audit"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain audit entries.
	// 0 means keep entries forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	PruneSchedule string

	// ArchiveBeforeDelete enables archiving entries before deletion.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory for JSON archives.
	ArchivePath string

	// PruneTimeout bounds a single pruning run. Default: 1 minute.
	PruneTimeout time.Duration
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
		ArchivePath:   "data/archives",
		PruneTimeout:  time.Minute,
	}
}

// Pruner enforces the retention policy against an audit storage backend.
type Pruner struct {
	storage   audit.Storage
	config    *Config
	scheduler *scheduler
	logger    *slog.Logger

	clock func() time.Time
}

// NewPruner creates a new retention pruner for the given storage backend.
func NewPruner(storage audit.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if config.PruneTimeout == 0 {
		config.PruneTimeout = time.Minute
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
		clock:   time.Now,
	}
	p.scheduler = newScheduler(config.PruneSchedule, p.scheduledPrune, p.logger)
	return p
}

// Start begins scheduled pruning. If no schedule is configured, Start is a
// no-op returning nil.
func (p *Pruner) Start() error {
	return p.scheduler.start()
}

// Stop stops scheduled pruning, waiting for a running job to finish.
func (p *Pruner) Stop() {
	p.scheduler.stop()
}

// NextPruning returns the next scheduled pruning time, or nil if
// scheduling is disabled or not started.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.next()
}

// Prune deletes entries older than the retention window and returns the
// number of entries deleted. With RetentionDays of 0 it does nothing.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := p.clock().AddDate(0, 0, -p.config.RetentionDays)

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, cutoff); err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}

	if deleted > 0 {
		p.logger.Info("pruned audit entries",
			"deleted", deleted,
			"cutoff", cutoff,
			"retention_days", p.config.RetentionDays,
		)
	}
	return deleted, nil
}

// archive exports entries older than the cutoff to a dated JSON file.
func (p *Pruner) archive(ctx context.Context, cutoff time.Time) error {
	ids, err := p.storage.EpisodeIDs(ctx)
	if err != nil {
		return err
	}

	var doomed []audit.Entry
	for _, id := range ids {
		entries, err := p.storage.EpisodeEntries(ctx, id)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Timestamp.Before(cutoff) {
				doomed = append(doomed, e)
			}
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return err
	}

	name := fmt.Sprintf("audit-%s.json", p.clock().Format("2006-01-02"))
	path := filepath.Join(p.config.ArchivePath, name)

	data, err := json.MarshalIndent(doomed, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	p.logger.Info("archived audit entries before pruning",
		"archive", path,
		"count", len(doomed),
	)
	return nil
}

// scheduledPrune is the cron entry point. Failures are logged, never
// propagated into the scheduler.
func (p *Pruner) scheduledPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PruneTimeout)
	defer cancel()

	if _, err := p.Prune(ctx); err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
	}
}
