// Package publisher delivers relayed outbox payloads to a downstream broker.
// A nil error from Publish means the broker accepted the message.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/config"
	"github.com/jmehdipour/outbox-relay/internal/db"
	"github.com/jmehdipour/outbox-relay/internal/kafka"
	"go.uber.org/zap"
)

// ErrUnknownType is returned by New for an unsupported publisher.type.
var ErrUnknownType = errors.New("unknown publisher type")

// Message is one outbox payload addressed to a topic. Key carries the
// event id so consumers can deduplicate.
type Message struct {
	Topic   string
	Key     string
	Payload []byte
	Headers map[string]string
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// New builds the publisher selected by cfg.Type, wrapped in a circuit
// breaker when cfg.Breaker.Enabled.
func New(ctx context.Context, cfg config.PublisherConfig, log *zap.Logger) (Publisher, error) {
	var (
		p   Publisher
		err error
	)
	switch cfg.Type {
	case "kafka":
		p = NewKafkaPublisher(kafka.NewProducerFromConfig(kafka.ProducerConfig{
			Brokers:         cfg.Kafka.Brokers,
			BatchTimeout:    cfg.Kafka.BatchTimeout,
			WriteTimeout:    cfg.Kafka.WriteTimeout,
			AutoCreateTopic: cfg.Kafka.AutoCreateTopic,
		}))
	case "redis":
		client, cerr := db.NewRedisClient(ctx, db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if cerr != nil {
			return nil, fmt.Errorf("redis publisher: %w", cerr)
		}
		p = NewRedisPublisher(client, cfg.Redis.StreamPrefix, cfg.Redis.MaxLen)
	case "rabbitmq":
		p, err = NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
	case "http":
		p = NewHTTPPublisher(cfg.Webhook.BaseURL, cfg.Webhook.Path, cfg.Webhook.TimeoutMs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}

	if cfg.Breaker.Enabled {
		p = NewBreaker(p, BreakerSettings{
			Name:          cfg.Type,
			FailThreshold: cfg.Breaker.FailThreshold,
			OpenFor:       time.Duration(cfg.Breaker.OpenForMs) * time.Millisecond,
		}, log)
	}

	return p, nil
}
