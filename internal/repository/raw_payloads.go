package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RawPayloadsRepository stores ingestion input exactly as received.
type RawPayloadsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, source string, payload []byte, receivedAt time.Time) error
}

type RawPayloadsRepositoryImpl struct {
	db *sqlx.DB
}

var _ RawPayloadsRepository = (*RawPayloadsRepositoryImpl)(nil)

func NewRawPayloadsRepository(db *sqlx.DB) *RawPayloadsRepositoryImpl {
	return &RawPayloadsRepositoryImpl{db: db}
}

func (r *RawPayloadsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, source string, payload []byte, receivedAt time.Time) error {
	const q = `INSERT INTO raw_payloads (source, payload_json, received_at) VALUES (?, ?, ?)`

	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, r.db.Rebind(q), source, string(payload), receivedAt)
		return err
	})
}
