package model

import "time"

const (
	EventTypeMarketTick = "MARKET_TICK_INGESTED"
	EntityTypeEquity    = "equity"
	SchemaVersionV1     = 1
)

// CanonicalEvent is the DB entity persisted in events table. Payload holds
// the JSON body relayed to the broker.
type CanonicalEvent struct {
	EventID       string    `db:"event_id" json:"event_id"`
	EventType     string    `db:"event_type" json:"event_type"`
	Source        string    `db:"source" json:"source"`
	EntityID      string    `db:"entity_id" json:"entity_id"`
	EntityType    string    `db:"entity_type" json:"entity_type"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	SchemaVersion int       `db:"schema_version" json:"schema_version"`
	TraceID       string    `db:"trace_id" json:"trace_id"`
	Payload       []byte    `db:"payload_json" json:"-"`
}

// RawPayload is the untouched input persisted in raw_payloads table.
type RawPayload struct {
	ID         int64     `db:"id"`
	Source     string    `db:"source"`
	Payload    []byte    `db:"payload_json"`
	ReceivedAt time.Time `db:"received_at"`
}

// MarketTick is a single price observation accepted by the ingest path.
type MarketTick struct {
	Symbol     string    `json:"symbol" validate:"required,max=32"`
	Price      float64   `json:"price" validate:"gt=0"`
	Volume     int64     `json:"volume" validate:"gte=0"`
	Currency   string    `json:"currency" validate:"omitempty,len=3"`
	OccurredAt time.Time `json:"occurred_at"`
}
