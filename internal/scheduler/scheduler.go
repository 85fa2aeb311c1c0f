// Package scheduler drives the recurring scrape cycle.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

// Runner is one source's orchestrator. Run never propagates failures; it
// reports how many records were saved.
type Runner interface {
	Source() events.Source
	Run(ctx context.Context) int
}

// Scheduler owns the recurring trigger for "run all sources once". Sources
// run strictly sequentially within a cycle: each run holds an exclusive
// headless browser session, and overlapping heavy browser processes are
// avoided by construction rather than by locking.
type Scheduler struct {
	cron     *cron.Cron
	runners  []Runner
	interval time.Duration
	baseCtx  context.Context
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
}

// New constructs a Scheduler over the given per-source runners. baseCtx
// bounds every scheduled cycle.
func New(baseCtx context.Context, interval time.Duration, runners []Runner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		runners:  runners,
		interval: interval,
		baseCtx:  baseCtx,
		logger:   logger.Named("scheduler"),
	}
}

// Start registers the recurring trigger and performs one cycle synchronously
// before returning, so the store is populated without waiting for the first
// interval tick.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Warn("scheduler already started")
		return nil
	}
	s.started = true
	s.mu.Unlock()

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.runCycle); err != nil {
		return fmt.Errorf("register scrape trigger: %w", err)
	}

	s.logger.Info("running initial scrape cycle")
	s.runCycle()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels future cycles and waits for any in-flight cycle to finish.
// There is no mid-run cancellation beyond the per-page fetch timeouts.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunCycle runs all sources once, sequentially, and returns the total saved
// count. One source's failure never prevents the next from running.
func (s *Scheduler) RunCycle() int {
	total := 0
	for _, r := range s.runners {
		total += s.runOne(r)
	}
	s.logger.Info("scrape cycle completed", zap.Int("total_saved", total))
	return total
}

func (s *Scheduler) runCycle() {
	if s.baseCtx.Err() != nil {
		return
	}
	s.RunCycle()
}

func (s *Scheduler) runOne(r Runner) (saved int) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("scraper panicked",
				zap.String("source", string(r.Source())),
				zap.Any("panic", rec))
			saved = 0
		}
	}()
	saved = r.Run(s.baseCtx)
	s.logger.Info("scraper completed",
		zap.String("source", string(r.Source())), zap.Int("saved", saved))
	return saved
}
