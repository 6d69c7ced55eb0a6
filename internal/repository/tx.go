package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// txOptions keeps claims from taking gap locks on MySQL; it is the
// Postgres default anyway.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func withTx(ctx context.Context, db *sqlx.DB, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := db.BeginTxx(ctx, txOptions)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}
