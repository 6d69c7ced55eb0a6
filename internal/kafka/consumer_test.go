package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderValue(t *testing.T) {
	m := Message{Headers: []Header{
		{Key: "event_id", Value: []byte("evt-1")},
		{Key: "attempt", Value: []byte("2")},
	}}

	assert.Equal(t, "evt-1", HeaderValue(m, "event_id"))
	assert.Equal(t, "2", HeaderValue(m, "attempt"))
	assert.Equal(t, "", HeaderValue(m, "trace_id"))
}
