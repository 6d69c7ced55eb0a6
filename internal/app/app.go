// Package app wires configuration into the stores, publisher and relay
// shared by the commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/outbox-relay/internal/backoff"
	"github.com/jmehdipour/outbox-relay/internal/config"
	"github.com/jmehdipour/outbox-relay/internal/db"
	"github.com/jmehdipour/outbox-relay/internal/logger"
	"github.com/jmehdipour/outbox-relay/internal/metrics"
	"github.com/jmehdipour/outbox-relay/internal/publisher"
	"github.com/jmehdipour/outbox-relay/internal/relay"
	"github.com/jmehdipour/outbox-relay/internal/repository"
	"github.com/jmehdipour/outbox-relay/internal/service/ingest"
	"github.com/jmehdipour/outbox-relay/internal/telemetry"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type App struct {
	Config      config.Config
	Log         *zap.Logger
	DB          *sqlx.DB
	ClickHouse  *sqlx.DB // nil unless clickhouse.enabled
	Registry    *prometheus.Registry
	Outbox      *repository.OutboxRepositoryImpl
	DeadLetters *relay.DeadLetters
	Ingest      *ingest.Service

	// Set only when built WithRelay.
	Publisher publisher.Publisher
	Cycle     *relay.Cycle

	closers []func() error
}

type options struct {
	relay bool
}

type Option func(*options)

// WithRelay also connects the publisher and builds the relay cycle.
func WithRelay() Option {
	return func(o *options) { o.relay = true }
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Log: log, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdownTracing, err := telemetry.InitTracer(ctx, telemetry.Options{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return shutdownTracing(context.Background()) })

	a.DB, err = db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, db.PoolOpts{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		PingTimeout:     cfg.Database.PingTimeout,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	a.closers = append(a.closers, a.DB.Close)

	a.Outbox = repository.NewOutboxRepository(a.DB,
		repository.WithBackoff(backoff.New(cfg.Relay.Backoff, cfg.Relay.MaxAttempts)),
		repository.WithClaimLease(cfg.Relay.ClaimLease),
	)
	a.DeadLetters = relay.NewDeadLetters(a.Outbox)
	a.Ingest = ingest.New(a.DB,
		repository.NewRawPayloadsRepository(a.DB),
		repository.NewEventsRepository(a.DB),
		a.Outbox,
		cfg.Ingest.Source,
		cfg.Ingest.Topic,
	)

	if !o.relay {
		return a, nil
	}

	observers := relay.Observers{metrics.New(a.Registry)}
	if cfg.ClickHouse.Enabled {
		a.ClickHouse, err = db.NewClickHouseConnection(ctx, db.ClickHouseOpts{
			DSN:          cfg.ClickHouse.DSN,
			MaxOpenConns: cfg.ClickHouse.MaxOpenConns,
			PingTimeout:  cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("clickhouse connect: %w", err)
		}
		a.closers = append(a.closers, a.ClickHouse.Close)
		observers = append(observers, relay.NewAttemptLogObserver(repository.NewCHAttemptsRepository(a.ClickHouse), log))
	}

	a.Publisher, err = publisher.New(ctx, cfg.Publisher, log)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("publisher: %w", err)
	}
	a.closers = append(a.closers, a.Publisher.Close)

	a.Cycle = relay.NewCycle(a.Outbox, a.Publisher,
		relay.WithBatchSize(cfg.Relay.BatchSize),
		relay.WithConcurrency(cfg.Relay.Concurrency),
		relay.WithPublishTimeout(cfg.Relay.PublishTimeout),
		relay.WithLogger(log),
		relay.WithObserver(observers),
	)

	return a, nil
}

// Scheduler builds the interval scheduler over the relay cycle.
func (a *App) Scheduler() *relay.Scheduler {
	return relay.NewScheduler(a.Cycle, a.Config.Relay.Interval, a.Config.Relay.RunOnStart, a.Log)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}

// Bootstrap loads the config at path and installs the process logger.
func Bootstrap(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, logger.Init(cfg.Log.Level, cfg.Log.Encoding), nil
}
