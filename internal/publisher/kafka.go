package publisher

import (
	"context"

	"github.com/jmehdipour/outbox-relay/internal/kafka"
)

type messageWriter interface {
	Write(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each payload to the Kafka topic of the same name,
// keyed by event id.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return p.w.Write(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Payload,
		Headers: headers,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
