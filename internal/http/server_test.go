package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/http/middleware"
	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/relay"
	"github.com/jmehdipour/outbox-relay/internal/service/ingest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRelay struct {
	summary relay.Summary
	runs    int
}

func (s *stubRelay) Run(context.Context) relay.Summary {
	s.runs++
	return s.summary
}

type stubDeadLetters struct {
	rows     []model.DeadLetter
	detail   *model.DeadLetterDetail
	err      error
	gotLimit int
	gotOff   int
}

func (s *stubDeadLetters) List(_ context.Context, limit, offset int) ([]model.DeadLetter, error) {
	s.gotLimit, s.gotOff = limit, offset
	return s.rows, s.err
}

func (s *stubDeadLetters) Get(_ context.Context, eventID string) (*model.DeadLetterDetail, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if s.detail != nil && s.detail.EventID == eventID {
		return s.detail, true, nil
	}
	return nil, false, nil
}

type stubIngest struct {
	got model.MarketTick
	err error
}

func (s *stubIngest) Ingest(_ context.Context, tick model.MarketTick) (ingest.Result, error) {
	s.got = tick
	if s.err != nil {
		return ingest.Result{}, s.err
	}
	return ingest.Result{EventID: "01HZX", TraceID: "trace-1"}, nil
}

func do(t *testing.T, s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func newTestServer(d Deps) *Server {
	if d.Relay == nil {
		d.Relay = &stubRelay{}
	}
	if d.DeadLetters == nil {
		d.DeadLetters = &stubDeadLetters{}
	}
	if d.Ingest == nil {
		d.Ingest = &stubIngest{}
	}
	d.Gatherer = prometheus.NewRegistry()
	return NewServer(d)
}

func TestHealth(t *testing.T) {
	s := newTestServer(Deps{})
	for _, path := range []string{"/health", "/healthz"} {
		rec := do(t, s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(Deps{}), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunRelay(t *testing.T) {
	r := &stubRelay{summary: relay.Summary{Claimed: 3, Delivered: 2, Retried: 1}}
	rec := do(t, newTestServer(Deps{Relay: r}), http.MethodPost, "/run-relay", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, r.runs)

	var got relay.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Claimed)
	assert.Equal(t, 2, got.Delivered)
}

func TestRunRelayClaimFailed(t *testing.T) {
	r := &stubRelay{summary: relay.Summary{ClaimFailed: true}}
	rec := do(t, newTestServer(Deps{Relay: r}), http.MethodPost, "/run-relay", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminToken(t *testing.T) {
	s := newTestServer(Deps{AdminToken: "s3cret"})

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodPost, "/run-relay", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, s, http.MethodGet, "/dead-letters", "", map[string]string{middleware.AdminTokenHeader: "nope"}).Code)
	assert.Equal(t, http.StatusOK,
		do(t, s, http.MethodGet, "/dead-letters", "", map[string]string{middleware.AdminTokenHeader: "s3cret"}).Code)

	// health stays open
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "", nil).Code)
}

func TestListDeadLetters(t *testing.T) {
	msg := "boom"
	dl := &stubDeadLetters{rows: []model.DeadLetter{{ID: 1, EventID: "evt-1", LastError: &msg, DeliveryAttempts: 5}}}
	s := newTestServer(Deps{DeadLetters: dl})

	rec := do(t, s, http.MethodGet, "/dead-letters?limit=5000&offset=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000, dl.gotLimit)
	assert.Equal(t, 10, dl.gotOff)

	var body struct {
		Limit   int                `json:"limit"`
		Offset  int                `json:"offset"`
		Count   int                `json:"count"`
		Results []model.DeadLetter `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1000, body.Limit)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "evt-1", body.Results[0].EventID)

	do(t, s, http.MethodGet, "/dead-letters?limit=abc", "", nil)
	assert.Equal(t, 50, dl.gotLimit)
}

func TestListDeadLettersError(t *testing.T) {
	s := newTestServer(Deps{DeadLetters: &stubDeadLetters{err: errors.New("db down")}})
	rec := do(t, s, http.MethodGet, "/dead-letters", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"query failed"}`, rec.Body.String())
}

func TestGetDeadLetter(t *testing.T) {
	dl := &stubDeadLetters{detail: &model.DeadLetterDetail{
		DeadLetter: model.DeadLetter{ID: 4, EventID: "evt-4", DeadLetteredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		Payload:    []byte(`{"price":1}`),
	}}
	s := newTestServer(Deps{DeadLetters: dl})

	rec := do(t, s, http.MethodGet, "/dead-letters/evt-4", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "evt-4", body["event_id"])
	assert.Equal(t, "dead_lettered", body["state"])
	assert.Equal(t, map[string]any{"price": 1.0}, body["payload"])

	rec = do(t, s, http.MethodGet, "/dead-letters/evt-missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestIngestTick(t *testing.T) {
	ing := &stubIngest{}
	s := newTestServer(Deps{Ingest: ing})

	rec := do(t, s, http.MethodPost, "/v1/ticks", `{"symbol":"AAPL","price":189.5,"volume":10}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"accepted":true,"event_id":"01HZX","trace_id":"trace-1"}`, rec.Body.String())
	assert.Equal(t, "AAPL", ing.got.Symbol)
	assert.Equal(t, 189.5, ing.got.Price)
	assert.True(t, ing.got.OccurredAt.IsZero())
}

func TestIngestTickErrors(t *testing.T) {
	invalid := &stubIngest{err: fmt.Errorf("%w: price", ingest.ErrInvalidTick)}
	rec := do(t, newTestServer(Deps{Ingest: invalid}), http.MethodPost, "/v1/ticks", `{"symbol":"AAPL"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	broken := &stubIngest{err: errors.New("insert outbox: disk full")}
	rec = do(t, newTestServer(Deps{Ingest: broken}), http.MethodPost, "/v1/ticks", `{"symbol":"AAPL","price":1}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, newTestServer(Deps{}), http.MethodPost, "/v1/ticks", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
