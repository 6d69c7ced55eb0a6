package ingest

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// captureArg matches any value and keeps it for later assertions.
type captureArg struct {
	value driver.Value
}

func (c *captureArg) Match(v driver.Value) bool {
	c.value = v
	return true
}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db := sqlx.NewDb(mockDB, "mysql")
	clock := func() time.Time { return fixedNow }
	svc := New(db,
		repository.NewRawPayloadsRepository(db),
		repository.NewEventsRepository(db),
		repository.NewOutboxRepository(db, repository.WithClock(clock)),
		"", "",
	)
	svc.now = clock

	return svc, mock
}

func TestIngest_WritesAllRowsInOneTransaction(t *testing.T) {
	svc, mock := newService(t)
	eventID, traceID, outboxPayload := &captureArg{}, &captureArg{}, &captureArg{}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO raw_payloads")).
		WithArgs(DefaultSource, sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(eventID, model.EventTypeMarketTick, DefaultSource, "AAPL", model.EntityTypeEquity,
			fixedNow, model.SchemaVersionV1, traceID, `{"price":189.5,"volume":1200,"currency":"USD"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).
		WithArgs(sqlmock.AnyArg(), DefaultTopic, outboxPayload, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := svc.Ingest(context.Background(), model.MarketTick{Symbol: " aapl ", Price: 189.5, Volume: 1200})
	require.NoError(t, err)
	assert.Equal(t, eventID.value, res.EventID)
	assert.Equal(t, traceID.value, res.TraceID)

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(outboxPayload.value.(string)), &env))
	assert.Equal(t, res.EventID, env["event_id"])
	assert.Equal(t, res.TraceID, env["trace_id"])
	assert.Equal(t, "AAPL", env["entity_id"])
	assert.Equal(t, model.EventTypeMarketTick, env["event_type"])
	assert.Equal(t, map[string]any{"price": 189.5, "volume": 1200.0, "currency": "USD"}, env["payload"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngest_RollsBackWhenOutboxInsertFails(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO raw_payloads")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Ingest(context.Background(), model.MarketTick{Symbol: "MSFT", Price: 1, Volume: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert outbox")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngest_RejectsInvalidTick(t *testing.T) {
	tests := []struct {
		name string
		tick model.MarketTick
	}{
		{"missing symbol", model.MarketTick{Price: 1}},
		{"zero price", model.MarketTick{Symbol: "AAPL"}},
		{"negative volume", model.MarketTick{Symbol: "AAPL", Price: 1, Volume: -1}},
		{"bad currency", model.MarketTick{Symbol: "AAPL", Price: 1, Currency: "DOLLARS"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newService(t)

			_, err := svc.Ingest(context.Background(), tt.tick)
			assert.ErrorIs(t, err, ErrInvalidTick)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
