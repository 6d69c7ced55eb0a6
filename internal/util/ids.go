package util

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewEventID generates a new ULID string. IDs from one process sort by
// creation time.
func NewEventID() string {
	return ulid.Make().String()
}

// NewTraceID generates a random UUID used to correlate an event across
// ingest, outbox and downstream consumers.
func NewTraceID() string {
	return uuid.NewString()
}
