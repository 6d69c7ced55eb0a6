package relay

import (
	"context"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/publisher"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Summary reports what one cycle did.
type Summary struct {
	Claimed       int           `json:"claimed"`
	Delivered     int           `json:"delivered"`
	Retried       int           `json:"retried"`
	DeadLettered  int           `json:"dead_lettered"`
	OutcomeErrors int           `json:"outcome_errors"`
	Empty         bool          `json:"empty"`
	ClaimFailed   bool          `json:"claim_failed"`
	Duration      time.Duration `json:"duration_ns"`
}

func (s *Summary) add(r Result) {
	switch r {
	case ResultDelivered:
		s.Delivered++
	case ResultRetryScheduled:
		s.Retried++
	case ResultDeadLettered:
		s.DeadLettered++
	case ResultOutcomeError:
		s.OutcomeErrors++
	}
}

// Cycle claims one batch and delivers it. Cycles are safe to run
// concurrently, in one process or many, because claims skip locked rows.
type Cycle struct {
	store Store
	exec  *Executor
	cfg   Config
}

func NewCycle(store Store, pub publisher.Publisher, opts ...Option) *Cycle {
	cfg := newConfig(opts)

	return &Cycle{
		store: store,
		exec:  newExecutor(store, pub, cfg),
		cfg:   cfg,
	}
}

// Run performs one cycle. A claim failure is logged and reported in the
// summary, never returned.
func (c *Cycle) Run(ctx context.Context) Summary {
	ctx, span := tracer.Start(ctx, "relay.cycle")
	defer span.End()

	start := time.Now()
	s := c.run(ctx)
	s.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("outbox.claimed", s.Claimed),
		attribute.Int("outbox.delivered", s.Delivered),
	)
	if s.ClaimFailed {
		span.SetStatus(codes.Error, "claim failed")
	}

	c.cfg.Observer.CycleCompleted(ctx, s)
	c.sampleBacklog(ctx)

	return s
}

func (c *Cycle) run(ctx context.Context) Summary {
	var s Summary
	log := c.cfg.Logger

	records, err := c.store.ClaimPending(ctx, c.cfg.BatchSize)
	if err != nil {
		log.Error("outbox claim failed", zap.Error(err))
		s.ClaimFailed = true
		return s
	}
	if len(records) == 0 {
		log.Info("no eligible outbox events")
		s.Empty = true
		return s
	}

	s.Claimed = len(records)
	for _, r := range c.dispatch(ctx, records) {
		s.add(r)
	}

	log.Info("outbox relay cycle completed",
		zap.Int("claimed", s.Claimed),
		zap.Int("delivered", s.Delivered),
		zap.Int("retried", s.Retried),
		zap.Int("dead_lettered", s.DeadLettered),
		zap.Int("outcome_errors", s.OutcomeErrors),
	)

	return s
}

func (c *Cycle) dispatch(ctx context.Context, records []model.ClaimedRecord) []Result {
	results := make([]Result, len(records))
	if c.cfg.Concurrency <= 1 {
		for i, rec := range records {
			results[i] = c.exec.Deliver(ctx, rec)
		}
		return results
	}

	p := pool.New().WithMaxGoroutines(c.cfg.Concurrency)
	for i, rec := range records {
		i, rec := i, rec
		p.Go(func() {
			results[i] = c.exec.Deliver(ctx, rec)
		})
	}
	p.Wait()

	return results
}

func (c *Cycle) sampleBacklog(ctx context.Context) {
	counter, ok := c.store.(PendingCounter)
	if !ok {
		return
	}
	n, err := counter.CountPending(ctx)
	if err != nil {
		c.cfg.Logger.Warn("count pending outbox events", zap.Error(err))
		return
	}
	c.cfg.Observer.Backlog(ctx, n)
}
