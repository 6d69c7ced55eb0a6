package cmd

import (
	"fmt"

	"github.com/jmehdipour/outbox-relay/internal/app"
	"github.com/jmehdipour/outbox-relay/internal/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		sqlDB, err := db.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, db.PoolOpts{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			PingTimeout:  cfg.Database.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		if err := db.Migrate(sqlDB, cfg.Database.Driver); err != nil {
			return err
		}
		log.Info("migration complete", zap.String("driver", cfg.Database.Driver))

		if !cfg.ClickHouse.Enabled {
			return nil
		}
		chDB, err := db.NewClickHouseConnection(cmd.Context(), db.ClickHouseOpts{
			DSN:         cfg.ClickHouse.DSN,
			PingTimeout: cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer chDB.Close()

		if err := db.MigrateClickHouse(cmd.Context(), chDB); err != nil {
			return err
		}
		log.Info("clickhouse migration complete")

		return nil
	},
}
