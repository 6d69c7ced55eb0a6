package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/outbox-relay/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the relay scheduler without the HTTP server",
	RunE:  runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, log, err := app.Bootstrap(cfgPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// 2) stores, publisher, relay cycle
	a, err := app.New(cmd.Context(), cfg, log, app.WithRelay())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close resources", zap.Error(err))
		}
	}()

	// 3) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("relay worker started",
		zap.String("publisher", cfg.Publisher.Type),
		zap.Int("batch_size", cfg.Relay.BatchSize),
		zap.Int("concurrency", cfg.Relay.Concurrency),
	)

	return a.Scheduler().Run(ctx)
}
