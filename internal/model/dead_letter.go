package model

import "time"

// DeadLetter is an outbox record that exhausted its attempts, joined with
// the canonical event it carries. Event columns are nil when the event row
// is missing.
type DeadLetter struct {
	ID               int64     `db:"id" json:"id"`
	EventID          string    `db:"event_id" json:"event_id"`
	Topic            string    `db:"topic" json:"topic"`
	DeliveryAttempts int       `db:"delivery_attempts" json:"delivery_attempts"`
	LastError        *string   `db:"last_error" json:"last_error"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	DeadLetteredAt   time.Time `db:"dead_lettered_at" json:"dead_lettered_at"`

	EventType     *string    `db:"event_type" json:"event_type"`
	Source        *string    `db:"source" json:"source"`
	EntityID      *string    `db:"entity_id" json:"entity_id"`
	EntityType    *string    `db:"entity_type" json:"entity_type"`
	OccurredAt    *time.Time `db:"occurred_at" json:"occurred_at"`
	SchemaVersion *int       `db:"schema_version" json:"schema_version"`
	TraceID       *string    `db:"trace_id" json:"trace_id"`
}

// DeadLetterDetail adds the relayed payload to a DeadLetter.
type DeadLetterDetail struct {
	DeadLetter
	Payload []byte `db:"payload_json" json:"-"`
}
