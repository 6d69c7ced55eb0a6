package model

import (
	"encoding/json"
	"time"
)

// OutboxRecord is the DB entity persisted in the outbox table.
type OutboxRecord struct {
	ID               int64      `db:"id"`
	EventID          string     `db:"event_id"`
	Topic            string     `db:"topic"`
	Payload          []byte     `db:"payload_json"`
	DeliveryAttempts int        `db:"delivery_attempts"`
	CreatedAt        time.Time  `db:"created_at"`
	NextAttemptAt    time.Time  `db:"next_attempt_at"`
	DeliveredAt      *time.Time `db:"delivered_at"`     // nullable
	DeadLetteredAt   *time.Time `db:"dead_lettered_at"` // nullable
	LastError        *string    `db:"last_error"`       // nullable
}

// State derives the delivery state from the nullable terminal columns.
// A row carrying both terminal timestamps reports DeadLettered.
func (r OutboxRecord) State() State {
	switch {
	case r.DeadLetteredAt != nil:
		var lastErr string
		if r.LastError != nil {
			lastErr = *r.LastError
		}
		return DeadLettered{At: *r.DeadLetteredAt, LastError: lastErr}
	case r.DeliveredAt != nil:
		return Delivered{At: *r.DeliveredAt}
	default:
		return Pending{NextAttemptAt: r.NextAttemptAt}
	}
}

// ClaimedRecord is an outbox row handed to the relay by a claim. PrevAttempts
// holds the delivery_attempts value read before the claim incremented it.
type ClaimedRecord struct {
	ID           int64     `db:"id"`
	EventID      string    `db:"event_id"`
	Topic        string    `db:"topic"`
	Payload      []byte    `db:"payload_json"`
	PrevAttempts int       `db:"delivery_attempts"`
	CreatedAt    time.Time `db:"created_at"`
}

// Attempt is the 1-based number of the delivery attempt this claim represents.
func (c ClaimedRecord) Attempt() int {
	return c.PrevAttempts + 1
}

// TraceID returns the trace_id carried in the payload, or "" when the payload
// has none or is not a JSON object.
func (c ClaimedRecord) TraceID() string {
	var probe struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(c.Payload, &probe); err != nil {
		return ""
	}

	return probe.TraceID
}

// FailureOutcome reports what a failed attempt did to the record.
type FailureOutcome struct {
	Attempt       int
	DeadLettered  bool
	NextAttemptAt time.Time // zero when DeadLettered
	At            time.Time
}
