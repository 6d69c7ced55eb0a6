package db

import (
	"context"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// NewPostgresConnection opens a *sqlx.DB over pgx's database/sql adapter with
// query tracing. sqlx binds the "pgx" driver name to $n placeholders.
func NewPostgresConnection(ctx context.Context, dsn string, opts PoolOpts) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty Postgres DSN")
	}
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	connCfg.Tracer = otelpgx.NewTracer()

	db := sqlx.NewDb(stdlib.OpenDB(*connCfg), "pgx")

	return configure(ctx, db, opts)
}
