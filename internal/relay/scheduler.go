package relay

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner runs one relay cycle.
type Runner interface {
	Run(ctx context.Context) Summary
}

// Scheduler runs cycles on a fixed interval, plus on demand via Trigger.
// Its own runs never overlap.
type Scheduler struct {
	cycle      Runner
	interval   time.Duration
	runOnStart bool
	trigger    chan struct{}
	log        *zap.Logger
}

func NewScheduler(cycle Runner, interval time.Duration, runOnStart bool, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Scheduler{
		cycle:      cycle,
		interval:   interval,
		runOnStart: runOnStart,
		trigger:    make(chan struct{}, 1),
		log:        log,
	}
}

// Trigger asks for an extra cycle as soon as the scheduler is free. Requests
// made while one is already queued are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("relay scheduler started",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_start", s.runOnStart),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.cycle.Run(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info("relay scheduler stopped")
			return nil
		case <-ticker.C:
			s.cycle.Run(ctx)
		case <-s.trigger:
			s.cycle.Run(ctx)
		}
	}
}
