package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers         []string
	BatchTimeout    time.Duration // default 10ms
	WriteTimeout    time.Duration // default 10s
	AutoCreateTopic bool
}

// Producer is a thin wrapper around segmentio/kafka-go Writer. The topic is
// taken from each message, and a write returns once all in-sync replicas
// have acknowledged it.
type Producer struct {
	w *kafka.Writer
}

func NewProducerFromConfig(c ProducerConfig) *Producer {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 10 * time.Millisecond
	}
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           bt,
		WriteTimeout:           wt,
		AllowAutoTopicCreation: c.AutoCreateTopic,
	}

	return &Producer{w: w}
}

type Header = kafka.Header

func (p *Producer) Write(ctx context.Context, msgs ...Message) error {
	return p.w.WriteMessages(ctx, msgs...)
}

func (p *Producer) Close() error { return p.w.Close() }
