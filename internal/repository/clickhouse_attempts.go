package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHAttemptsRepository appends delivery attempt rows to ClickHouse.
type CHAttemptsRepository interface {
	Insert(ctx context.Context, a model.AttemptLog) error
}

type chAttemptsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHAttemptsRepository(ch *sqlx.DB) CHAttemptsRepository {
	return &chAttemptsRepository{ch: ch}
}

// Insert sends a single-row batch. clickhouse-go only accepts inserts over
// database/sql inside a transaction with a prepared statement.
func (r *chAttemptsRepository) Insert(ctx context.Context, a model.AttemptLog) error {
	const q = `
		INSERT INTO outbox_attempts
		    (outbox_id, event_id, topic, attempt, outcome, error, latency_ms, occurred_at)
	`
	tx, err := r.ch.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attempts batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare attempts batch: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx,
		a.OutboxID, a.EventID, a.Topic, uint16(a.Attempt), a.Outcome, a.Error, a.LatencyMs, a.OccurredAt,
	); err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}

	return tx.Commit()
}
