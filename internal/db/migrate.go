package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	mmysql "github.com/golang-migrate/migrate/v4/database/mysql"
	mpgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmehdipour/outbox-relay/migrations"
	"github.com/jmoiron/sqlx"
)

// Migrate applies the embedded schema migrations for driver. It reports
// success when the schema is already current.
func Migrate(db *sqlx.DB, driver string) error {
	src, err := iofs.New(migrations.FS, driver)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	var target database.Driver
	switch driver {
	case DriverMySQL:
		target, err = mmysql.WithInstance(db.DB, &mmysql.Config{})
	case DriverPostgres:
		target, err = mpgx.WithInstance(db.DB, &mpgx.Config{})
	default:
		return fmt.Errorf("unsupported migration driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	return nil
}

// MigrateClickHouse creates the attempt audit table. The statements are
// idempotent.
func MigrateClickHouse(ctx context.Context, ch *sqlx.DB) error {
	stmts, err := migrations.ClickHouseStatements()
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := ch.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("clickhouse migrate: %w", err)
		}
	}

	return nil
}
