package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/util"
	"github.com/jmoiron/sqlx"
)

const (
	DefaultSource   = "yfinance"
	DefaultTopic    = "market.ticks"
	DefaultCurrency = "USD"
)

var ErrInvalidTick = errors.New("invalid tick")

type RawPayloadWriter interface {
	Insert(ctx context.Context, tx *sqlx.Tx, source string, payload []byte, receivedAt time.Time) error
}

type EventWriter interface {
	Insert(ctx context.Context, tx *sqlx.Tx, ev model.CanonicalEvent) error
}

type OutboxWriter interface {
	Insert(ctx context.Context, tx *sqlx.Tx, eventID, topic string, payload []byte) error
}

// Result identifies the event created by Ingest.
type Result struct {
	EventID string `json:"event_id"`
	TraceID string `json:"trace_id"`
}

// Service records ticks as raw payload, canonical event and outbox row in
// a single transaction, so an event is relayed only if all three commit.
type Service struct {
	db       *sqlx.DB
	raw      RawPayloadWriter
	events   EventWriter
	outbox   OutboxWriter
	source   string
	topic    string
	validate *validator.Validate
	now      func() time.Time
}

// New constructs the ingest service. Empty source or topic take the defaults.
func New(db *sqlx.DB, raw RawPayloadWriter, events EventWriter, outbox OutboxWriter, source, topic string) *Service {
	if source == "" {
		source = DefaultSource
	}
	if topic == "" {
		topic = DefaultTopic
	}

	return &Service{
		db:       db,
		raw:      raw,
		events:   events,
		outbox:   outbox,
		source:   source,
		topic:    topic,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// tickPayload is the body of a MARKET_TICK_INGESTED event.
type tickPayload struct {
	Price    float64 `json:"price"`
	Volume   int64   `json:"volume"`
	Currency string  `json:"currency"`
}

// envelope is the full canonical event as relayed to consumers.
type envelope struct {
	model.CanonicalEvent
	Payload json.RawMessage `json:"payload"`
}

func (s *Service) Ingest(ctx context.Context, tick model.MarketTick) (Result, error) {
	tick.Symbol = strings.ToUpper(strings.TrimSpace(tick.Symbol))
	tick.Currency = strings.ToUpper(strings.TrimSpace(tick.Currency))
	if tick.Currency == "" {
		tick.Currency = DefaultCurrency
	}
	if err := s.validate.Struct(tick); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidTick, err)
	}

	now := s.now()
	if tick.OccurredAt.IsZero() {
		tick.OccurredAt = now
	}

	raw, err := json.Marshal(tick)
	if err != nil {
		return Result{}, fmt.Errorf("marshal tick: %w", err)
	}
	body, err := json.Marshal(tickPayload{Price: tick.Price, Volume: tick.Volume, Currency: tick.Currency})
	if err != nil {
		return Result{}, fmt.Errorf("marshal payload: %w", err)
	}

	ev := model.CanonicalEvent{
		EventID:       util.NewEventID(),
		EventType:     model.EventTypeMarketTick,
		Source:        s.source,
		EntityID:      tick.Symbol,
		EntityType:    model.EntityTypeEquity,
		OccurredAt:    tick.OccurredAt.UTC(),
		SchemaVersion: model.SchemaVersionV1,
		TraceID:       util.NewTraceID(),
		Payload:       body,
	}
	outboxPayload, err := json.Marshal(envelope{CanonicalEvent: ev, Payload: body})
	if err != nil {
		return Result{}, fmt.Errorf("marshal envelope: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.raw.Insert(ctx, tx, s.source, raw, now); err != nil {
		return Result{}, fmt.Errorf("insert raw payload: %w", err)
	}
	if err := s.events.Insert(ctx, tx, ev); err != nil {
		return Result{}, fmt.Errorf("insert event: %w", err)
	}
	if err := s.outbox.Insert(ctx, tx, ev.EventID, s.topic, outboxPayload); err != nil {
		return Result{}, fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, err
	}

	return Result{EventID: ev.EventID, TraceID: ev.TraceID}, nil
}
