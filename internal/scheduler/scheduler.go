package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Evicter drops idle sessions and reports how many were removed.
type Evicter interface {
	Evict(maxIdle time.Duration) int
}

// Scheduler periodically evicts idle page sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sessions  Evicter
	maxIdle   time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(sessions Evicter, maxIdle, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sessions:  sessions,
		maxIdle:   maxIdle,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.maxIdle <= 0 {
		s.logger.Info("scheduler: session eviction disabled")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.sweep)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) sweep() {
	if n := s.sessions.Evict(s.maxIdle); n > 0 {
		s.logger.Info("scheduler: evicted idle sessions", "count", n)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
