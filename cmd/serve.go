package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/app"
	httpSrv "github.com/jmehdipour/outbox-relay/internal/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server and the relay scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		a, err := app.New(cmd.Context(), cfg, log, app.WithRelay())
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warn("close resources", zap.Error(err))
			}
		}()

		server := httpSrv.NewServer(httpSrv.Deps{
			Relay:       a.Cycle,
			DeadLetters: a.DeadLetters,
			Ingest:      a.Ingest,
			Gatherer:    a.Registry,
			AdminToken:  cfg.HTTP.AdminToken,
			LogLevel:    cfg.Log.Level,
			Logger:      log,
		})
		scheduler := a.Scheduler()

		runCtx, cancelRun := context.WithCancel(context.Background())
		defer cancelRun()

		errCh := make(chan error, 2)
		go func() {
			log.Info("starting http", zap.String("addr", cfg.HTTP.Addr))
			if err := server.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
		schedDone := make(chan struct{})
		go func() {
			defer close(schedDone)
			if err := scheduler.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("relay scheduler: %w", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		var runErr error
		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case runErr = <-errCh:
			log.Error("component exited", zap.Error(runErr))
		}

		timeout := cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}

		// an in-flight cycle finishes before resources close
		cancelRun()
		select {
		case <-schedDone:
		case <-ctx.Done():
			log.Warn("relay cycle still running at shutdown deadline")
		}

		return runErr
	},
}
