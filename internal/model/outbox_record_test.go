package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRecordState(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := "boom"

	pending := OutboxRecord{NextAttemptAt: now}
	assert.Equal(t, Pending{NextAttemptAt: now}, pending.State())

	delivered := OutboxRecord{DeliveredAt: &now}
	assert.Equal(t, Delivered{At: now}, delivered.State())

	dead := OutboxRecord{DeadLetteredAt: &now, LastError: &msg}
	st, ok := dead.State().(DeadLettered)
	require.True(t, ok)
	assert.Equal(t, "boom", st.LastError)
	assert.Equal(t, StateDeadLettered, st.Name())
}

func TestClaimedRecordAttempt(t *testing.T) {
	assert.Equal(t, 1, ClaimedRecord{PrevAttempts: 0}.Attempt())
	assert.Equal(t, 5, ClaimedRecord{PrevAttempts: 4}.Attempt())
}

func TestClaimedRecordTraceID(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"present", `{"trace_id":"abc","price":1}`, "abc"},
		{"absent", `{"price":1}`, ""},
		{"not json", `not-json`, ""},
		{"wrong type", `{"trace_id":7}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ClaimedRecord{Payload: []byte(tt.payload)}
			assert.Equal(t, tt.want, rec.TraceID())
		})
	}
}
