package relay

import (
	"context"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/model"
)

// Observer receives relay outcomes. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Delivered(ctx context.Context, rec model.ClaimedRecord, latency time.Duration)
	Failed(ctx context.Context, rec model.ClaimedRecord, err error, out model.FailureOutcome, latency time.Duration)
	OutcomeWriteFailed(ctx context.Context, rec model.ClaimedRecord, err error)
	CycleCompleted(ctx context.Context, s Summary)
	Backlog(ctx context.Context, pending int)
}

type NopObserver struct{}

func (NopObserver) Delivered(context.Context, model.ClaimedRecord, time.Duration) {}
func (NopObserver) Failed(context.Context, model.ClaimedRecord, error, model.FailureOutcome, time.Duration) {
}
func (NopObserver) OutcomeWriteFailed(context.Context, model.ClaimedRecord, error) {}
func (NopObserver) CycleCompleted(context.Context, Summary) {}
func (NopObserver) Backlog(context.Context, int) {}

// Observers fans every call out in order.
type Observers []Observer

func (o Observers) Delivered(ctx context.Context, rec model.ClaimedRecord, latency time.Duration) {
	for _, obs := range o {
		obs.Delivered(ctx, rec, latency)
	}
}

func (o Observers) Failed(ctx context.Context, rec model.ClaimedRecord, err error, out model.FailureOutcome, latency time.Duration) {
	for _, obs := range o {
		obs.Failed(ctx, rec, err, out, latency)
	}
}

func (o Observers) OutcomeWriteFailed(ctx context.Context, rec model.ClaimedRecord, err error) {
	for _, obs := range o {
		obs.OutcomeWriteFailed(ctx, rec, err)
	}
}

func (o Observers) CycleCompleted(ctx context.Context, s Summary) {
	for _, obs := range o {
		obs.CycleCompleted(ctx, s)
	}
}

func (o Observers) Backlog(ctx context.Context, pending int) {
	for _, obs := range o {
		obs.Backlog(ctx, pending)
	}
}
