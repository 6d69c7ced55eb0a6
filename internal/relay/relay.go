// Package relay moves claimed outbox records to the publisher and records
// each outcome back on the store.
package relay

import (
	"context"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/model"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 10
	DefaultInterval  = 30 * time.Second
)

var tracer = otel.Tracer("github.com/jmehdipour/outbox-relay/internal/relay")

// Store is the part of the outbox store the relay writes through.
type Store interface {
	ClaimPending(ctx context.Context, limit int) ([]model.ClaimedRecord, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempt int, errMsg string) (model.FailureOutcome, error)
}

// PendingCounter is implemented by stores that can report their backlog.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// DeadLetterReader is the read side used by the dead-letter surface.
type DeadLetterReader interface {
	ListDeadLetters(ctx context.Context, limit, offset int) ([]model.DeadLetter, error)
	GetDeadLetter(ctx context.Context, eventID string) (*model.DeadLetterDetail, error)
}

// Config tunes a Cycle and its Executor.
type Config struct {
	BatchSize      int           // default 10
	Concurrency    int           // <= 1 delivers in claim order
	PublishTimeout time.Duration // 0 disables the per-publish deadline
	Logger         *zap.Logger
	Observer       Observer
}

type Option func(*Config)

func WithBatchSize(n int) Option { return func(c *Config) { c.BatchSize = n } }
func WithConcurrency(n int) Option { return func(c *Config) { c.Concurrency = n } }
func WithPublishTimeout(d time.Duration) Option { return func(c *Config) { c.PublishTimeout = d } }
func WithLogger(l *zap.Logger) Option { return func(c *Config) { c.Logger = l } }
func WithObserver(o Observer) Option { return func(c *Config) { c.Observer = o } }

func newConfig(opts []Option) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}

	return c
}
