package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publishes collection snapshots on <prefix>:<Collection>.
type RedisBroadcaster struct {
	client *redis.Client
	prefix string
}

func NewRedisBroadcaster(client *redis.Client, prefix string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, prefix: prefix}
}

func (b *RedisBroadcaster) Channel(name Collection) string {
	return b.prefix + ":" + string(name)
}

func (b *RedisBroadcaster) Publish(ctx context.Context, name Collection, doc []byte) error {
	if err := b.client.Publish(ctx, b.Channel(name), doc).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

// Subscribe confirms the subscription before returning. The payload channel
// closes when ctx is done or the returned close func is called.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, name Collection) (<-chan []byte, func() error, error) {
	sub := b.client.Subscribe(ctx, b.Channel(name))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", name, err)
	}

	out := make(chan []byte, 16)
	msgs := sub.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, sub.Close, nil
}
