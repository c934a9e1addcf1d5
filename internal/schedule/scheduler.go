// Package schedule drives polling cycles on a fixed interval.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TickFunc runs one polling cycle.
type TickFunc func(ctx context.Context) error

// Scheduler fires a tick immediately on start and then once per interval.
// Ticks never overlap: if a cycle is still running when the next interval
// elapses, that interval's tick is skipped. Cancelling the run context stops
// the scheduling of further ticks but lets the in-flight cycle finish and
// persist whatever it fetched.
type Scheduler struct {
	interval time.Duration
	tick     TickFunc
	logger   *slog.Logger

	busy atomic.Bool
	wg   sync.WaitGroup
}

// New creates a Scheduler.
func New(interval time.Duration, tick TickFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, then waits for the in-flight tick.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)

	s.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

// dispatch starts one tick in the background unless the previous one is
// still running. The tick runs on a context that survives cancellation of
// ctx: a stop signal only prevents future ticks, it does not abort in-flight
// fetches.
func (s *Scheduler) dispatch(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous cycle still running, skipping tick")
		return
	}

	tickCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)

		if err := s.tick(tickCtx); err != nil {
			s.logger.Error("polling cycle failed", "err", err)
		}
	}()
}
