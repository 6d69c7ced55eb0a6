package model

import "time"

const (
	AttemptOutcomeDelivered    = "delivered"
	AttemptOutcomeRetry        = "retry_scheduled"
	AttemptOutcomeDeadLettered = "dead_lettered"
)

// AttemptLog is a row of the ClickHouse outbox_attempts table.
type AttemptLog struct {
	OutboxID   int64
	EventID    string
	Topic      string
	Attempt    int
	Outcome    string
	Error      string
	LatencyMs  int64
	OccurredAt time.Time
}
