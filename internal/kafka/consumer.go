package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type ConsumerConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string        // empty reads partition 0 without committing
	MinBytes int           // default 1B
	MaxBytes int           // default 10MB
	MaxWait  time.Duration // default 250ms
}

// Consumer is a thin wrapper around segmentio/kafka-go Reader, used to tail
// a relayed topic.
type Consumer struct {
	r *kafka.Reader
}

func NewConsumerFromConfig(c ConsumerConfig) *Consumer {
	min := c.MinBytes
	if min <= 0 {
		min = 1
	}
	max := c.MaxBytes
	if max <= 0 {
		max = 10 << 20 // 10MB
	}
	mw := c.MaxWait
	if mw <= 0 {
		mw = 250 * time.Millisecond
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.Brokers,
		GroupID:  c.GroupID,
		Topic:    c.Topic,
		MinBytes: min,
		MaxBytes: max,
		MaxWait:  mw,
	})

	return &Consumer{r: r}
}

type Message = kafka.Message

// Read returns the next message. With a group id the offset is committed.
func (c *Consumer) Read(ctx context.Context) (Message, error) {
	return c.r.ReadMessage(ctx)
}

func (c *Consumer) Close() error { return c.r.Close() }

// HeaderValue returns the value of the first header named key.
func HeaderValue(m Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
