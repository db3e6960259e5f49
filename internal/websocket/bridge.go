package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "souq:ws:"

type envelope struct {
	Identity string          `json:"identity"`
	Frame    json.RawMessage `json:"frame"`
}

// RedisBridge fans hub pushes out over Redis pub/sub, one channel per hub.
type RedisBridge struct {
	client *redis.Client
}

// NewRedisBridge connects to Redis and checks the connection.
func NewRedisBridge(ctx context.Context, addr, password string) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisBridge{client: client}, nil
}

func channelName(hub string) string {
	return channelPrefix + hub
}

// Publish implements Bridge.
func (b *RedisBridge) Publish(ctx context.Context, hub, identity string, data []byte) error {
	payload, err := json.Marshal(envelope{Identity: identity, Frame: data})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return b.client.Publish(ctx, channelName(hub), payload).Err()
}

// Subscribe implements Bridge.
func (b *RedisBridge) Subscribe(ctx context.Context, hub string, deliver func(identity string, data []byte)) error {
	pubsub := b.client.Subscribe(ctx, channelName(hub))
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channelName(hub), err)
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

			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			deliver(env.Identity, env.Frame)
		}
	}
}

func (b *RedisBridge) Close() error {
	return b.client.Close()
}
