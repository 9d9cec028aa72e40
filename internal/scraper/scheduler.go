package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/itcaat/bazalert/internal/metrics"
)

// ErrCycleRunning is returned when a trigger finds a cycle still in flight.
var ErrCycleRunning = errors.New("scrape cycle already running")

// Runner executes one scrape cycle.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler triggers cycles on a fixed interval. At most one cycle runs at
// a time; a trigger that lands while one is in flight is skipped, never
// queued.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	cron     *cron.Cron
	inFlight atomic.Bool
	log      *zap.Logger
}

// NewScheduler builds a scheduler around a cycle runner.
func NewScheduler(runner Runner, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		cron:     cron.New(),
		log:      log,
	}
}

// Start registers the interval trigger, runs one cycle immediately and
// starts the cron loop. It returns once the schedule is live.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.Trigger(ctx); err != nil && !errors.Is(err, ErrCycleRunning) {
			s.log.Error("scheduled cycle failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("register schedule %q: %w", spec, err)
	}

	go func() {
		if err := s.Trigger(ctx); err != nil && !errors.Is(err, ErrCycleRunning) {
			s.log.Error("initial cycle failed", zap.Error(err))
		}
	}()

	s.cron.Start()
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Trigger runs a cycle now, or returns ErrCycleRunning if one is in flight.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.CyclesSkipped.Inc()
		s.log.Warn("cycle trigger skipped, previous cycle still running")
		return ErrCycleRunning
	}
	defer s.inFlight.Store(false)
	return s.runner.Run(ctx)
}

// Stop halts the cron loop and waits for a running trigger callback to end.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
