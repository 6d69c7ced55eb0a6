package publisher

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned without calling the broker while the breaker is
// open. It is an ordinary publish failure to the relay.
var ErrBreakerOpen = gobreaker.ErrOpenState

type BreakerSettings struct {
	Name          string
	FailThreshold int           // consecutive failures that open the breaker, default 5
	OpenFor       time.Duration // default 30s
}

// Breaker fails fast after repeated publish failures so a down broker does
// not stall every record of a cycle on its timeout.
type Breaker struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Publisher, s BreakerSettings, log *zap.Logger) *Breaker {
	if s.FailThreshold <= 0 {
		s.FailThreshold = 5
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	threshold := uint32(s.FailThreshold)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "publisher-" + s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("publisher breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Publish(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Publish(ctx, msg)
	})
	return err
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Close() error { return b.next.Close() }
