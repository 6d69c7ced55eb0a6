package relay

import (
	"context"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/model"
	"go.uber.org/zap"
)

// AttemptWriter appends attempt audit rows.
type AttemptWriter interface {
	Insert(ctx context.Context, a model.AttemptLog) error
}

// AttemptLogObserver writes one audit row per delivery attempt. Write
// errors are logged and dropped.
type AttemptLogObserver struct {
	NopObserver
	w   AttemptWriter
	log *zap.Logger
	now func() time.Time
}

func NewAttemptLogObserver(w AttemptWriter, log *zap.Logger) *AttemptLogObserver {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttemptLogObserver{w: w, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (o *AttemptLogObserver) Delivered(ctx context.Context, rec model.ClaimedRecord, latency time.Duration) {
	o.write(ctx, rec, model.AttemptOutcomeDelivered, "", latency)
}

func (o *AttemptLogObserver) Failed(ctx context.Context, rec model.ClaimedRecord, err error, out model.FailureOutcome, latency time.Duration) {
	outcome := model.AttemptOutcomeRetry
	if out.DeadLettered {
		outcome = model.AttemptOutcomeDeadLettered
	}
	o.write(ctx, rec, outcome, err.Error(), latency)
}

func (o *AttemptLogObserver) write(ctx context.Context, rec model.ClaimedRecord, outcome, errMsg string, latency time.Duration) {
	err := o.w.Insert(context.WithoutCancel(ctx), model.AttemptLog{
		OutboxID:   rec.ID,
		EventID:    rec.EventID,
		Topic:      rec.Topic,
		Attempt:    rec.Attempt(),
		Outcome:    outcome,
		Error:      errMsg,
		LatencyMs:  latency.Milliseconds(),
		OccurredAt: o.now(),
	})
	if err != nil {
		o.log.Warn("append attempt log", zap.String("event_id", rec.EventID), zap.Error(err))
	}
}
