package repository

import (
	"context"

	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmoiron/sqlx"
)

// EventsRepository defines persistence for the canonical events table.
type EventsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, ev model.CanonicalEvent) error
}

type EventsRepositoryImpl struct {
	db *sqlx.DB
}

var _ EventsRepository = (*EventsRepositoryImpl)(nil)

func NewEventsRepository(db *sqlx.DB) *EventsRepositoryImpl {
	return &EventsRepositoryImpl{db: db}
}

func (r *EventsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, ev model.CanonicalEvent) error {
	const q = `
		INSERT INTO events
		    (event_id, event_type, source, entity_id, entity_type, occurred_at, schema_version, trace_id, payload_json)
		VALUES
		    (?,        ?,          ?,      ?,         ?,           ?,           ?,              ?,        ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, r.db.Rebind(q),
			ev.EventID, ev.EventType, ev.Source, ev.EntityID, ev.EntityType,
			ev.OccurredAt, ev.SchemaVersion, ev.TraceID, string(ev.Payload),
		)
		return err
	})
}
