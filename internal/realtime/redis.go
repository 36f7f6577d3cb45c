package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "samwad:events"

// RedisRelay shares viewer events between relay instances over redis
// pub/sub.
type RedisRelay struct {
	Client  *redis.Client
	Channel string
}

func NewRedisRelay(redisURL string) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &RedisRelay{Client: redis.NewClient(opts), Channel: DefaultChannel}, nil
}

func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisRelay) Publish(ctx context.Context, payload []byte) error {
	return r.Client.Publish(ctx, r.Channel, payload).Err()
}

// Subscribe blocks, handing every received payload to deliver, until ctx
// is done or the subscription channel closes.
func (r *RedisRelay) Subscribe(ctx context.Context, deliver func([]byte)) error {
	pubsub := r.Client.Subscribe(ctx, r.Channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.Channel, err)
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliver([]byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.Client.Close()
}
