package retention

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduler wraps a cron runner around a pruning job. With an empty
// schedule it is inert: start succeeds and does nothing.
type scheduler struct {
	schedule string
	job      func()
	cron     *cron.Cron
	entryID  cron.EntryID
	started  bool
	logger   *slog.Logger
}

func newScheduler(schedule string, job func(), logger *slog.Logger) *scheduler {
	return &scheduler{
		schedule: schedule,
		job:      job,
		logger:   logger,
	}
}

// start validates the cron expression and begins scheduled execution.
func (s *scheduler) start() error {
	if s.schedule == "" {
		return nil
	}
	if s.started {
		return fmt.Errorf("retention scheduler already started")
	}

	s.cron = cron.New()
	id, err := s.cron.AddFunc(s.schedule, s.job)
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", s.schedule, err)
	}
	s.entryID = id
	s.cron.Start()
	s.started = true

	s.logger.Info("retention scheduler started", "schedule", s.schedule)
	return nil
}

// stop halts scheduling and waits for a running job to complete.
func (s *scheduler) stop() {
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	s.logger.Info("retention scheduler stopped")
}

// next returns the next scheduled run time, or nil when not running.
func (s *scheduler) next() *time.Time {
	if !s.started {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}
