package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

var errNacked = errors.New("rabbitmq: broker nacked publish")

// RabbitMQPublisher publishes persistent messages to a durable topic
// exchange with the outbox topic as routing key. The channel runs in confirm
// mode and Publish waits for the broker's ack.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms chan amqp.Confirmation
	exchange string
	seq      uint64
}

func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}

	return &RabbitMQPublisher{
		conn:     conn,
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 16)),
		exchange: exchange,
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, msg Message) error {
	headers := make(amqp.Table, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Publish(p.exchange, msg.Topic, false, false, amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Key,
		Timestamp:    time.Now().UTC(),
		Body:         msg.Payload,
	})
	if err != nil {
		return err
	}
	p.seq++

	// Confirmations for earlier publishes that timed out can still arrive;
	// skip until the one for this delivery tag.
	for {
		select {
		case c, ok := <-p.confirms:
			if !ok {
				return amqp.ErrClosed
			}
			if c.DeliveryTag < p.seq {
				continue
			}
			if !c.Ack {
				return errNacked
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *RabbitMQPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}
