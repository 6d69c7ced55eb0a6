package publisher

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends each payload to a Redis stream named prefix+topic.
// A positive maxLen trims the stream approximately on every add.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	maxLen int64
}

func NewRedisPublisher(client *redis.Client, prefix string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix, maxLen: maxLen}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	return p.client.XAdd(ctx, streamArgs(p.prefix, p.maxLen, msg)).Err()
}

func (p *RedisPublisher) Close() error { return p.client.Close() }

func streamArgs(prefix string, maxLen int64, msg Message) *redis.XAddArgs {
	values := make(map[string]any, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		values["h_"+k] = v
	}
	values["key"] = msg.Key
	values["payload"] = msg.Payload

	args := &redis.XAddArgs{
		Stream: prefix + msg.Topic,
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}

	return args
}
