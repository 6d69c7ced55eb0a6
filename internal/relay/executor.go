package relay

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/publisher"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Result is the outcome of one delivery attempt.
type Result int

const (
	ResultDelivered Result = iota
	ResultRetryScheduled
	ResultDeadLettered
	// ResultOutcomeError means the outcome could not be written; the record
	// stays pending and a later claim counts another attempt.
	ResultOutcomeError
)

func (r Result) String() string {
	switch r {
	case ResultDelivered:
		return "delivered"
	case ResultRetryScheduled:
		return "retry_scheduled"
	case ResultDeadLettered:
		return "dead_lettered"
	case ResultOutcomeError:
		return "outcome_error"
	default:
		return "unknown"
	}
}

// Executor performs one publish attempt for a claimed record and records
// the outcome. It never returns an error; failures are folded into Result.
type Executor struct {
	store   Store
	pub     publisher.Publisher
	obs     Observer
	log     *zap.Logger
	timeout time.Duration
}

func NewExecutor(store Store, pub publisher.Publisher, opts ...Option) *Executor {
	return newExecutor(store, pub, newConfig(opts))
}

func newExecutor(store Store, pub publisher.Publisher, c Config) *Executor {
	return &Executor{
		store:   store,
		pub:     pub,
		obs:     c.Observer,
		log:     c.Logger,
		timeout: c.PublishTimeout,
	}
}

func (e *Executor) Deliver(ctx context.Context, rec model.ClaimedRecord) Result {
	attempt := rec.Attempt()
	traceID := rec.TraceID()
	log := e.log.With(
		zap.String("event_id", rec.EventID),
		zap.String("trace_id", traceID),
		zap.Int("attempt", attempt),
		zap.String("topic", rec.Topic),
	)

	ctx, span := tracer.Start(ctx, "relay.deliver", trace.WithAttributes(
		attribute.Int64("outbox.id", rec.ID),
		attribute.String("outbox.event_id", rec.EventID),
		attribute.String("outbox.topic", rec.Topic),
		attribute.Int("outbox.attempt", attempt),
	))
	defer span.End()

	start := time.Now()
	pubErr := e.publish(ctx, rec, traceID)
	latency := time.Since(start)

	// Outcome writes must land even if the caller is shutting down.
	writeCtx := context.WithoutCancel(ctx)

	if pubErr == nil {
		if err := e.store.MarkDelivered(writeCtx, rec.ID); err != nil {
			return e.outcomeWriteFailed(ctx, span, log, rec, err)
		}
		e.obs.Delivered(ctx, rec, latency)
		log.Info("outbox event delivered", zap.Duration("latency", latency))
		return ResultDelivered
	}

	span.RecordError(pubErr)
	span.SetStatus(codes.Error, "publish failed")

	out, err := e.store.MarkFailed(writeCtx, rec.ID, attempt, pubErr.Error())
	if err != nil {
		return e.outcomeWriteFailed(ctx, span, log, rec, err)
	}
	e.obs.Failed(ctx, rec, pubErr, out, latency)

	if out.DeadLettered {
		span.SetAttributes(attribute.Bool("outbox.dead_lettered", true))
		log.Error("outbox event dead-lettered", zap.Error(pubErr))
		return ResultDeadLettered
	}
	log.Warn("outbox event delivery failed, retry scheduled",
		zap.Error(pubErr),
		zap.Time("next_attempt_at", out.NextAttemptAt),
	)

	return ResultRetryScheduled
}

func (e *Executor) publish(ctx context.Context, rec model.ClaimedRecord, traceID string) (err error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publisher panic: %v", r)
		}
	}()

	headers := map[string]string{
		"event_id": rec.EventID,
		"attempt":  strconv.Itoa(rec.Attempt()),
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}

	return e.pub.Publish(ctx, publisher.Message{
		Topic:   rec.Topic,
		Key:     rec.EventID,
		Payload: rec.Payload,
		Headers: headers,
	})
}

func (e *Executor) outcomeWriteFailed(ctx context.Context, span trace.Span, log *zap.Logger, rec model.ClaimedRecord, err error) Result {
	span.RecordError(err)
	span.SetStatus(codes.Error, "outcome write failed")
	e.obs.OutcomeWriteFailed(ctx, rec, err)
	log.Error("outbox outcome write failed, record will be reclaimed", zap.Error(err))

	return ResultOutcomeError
}
