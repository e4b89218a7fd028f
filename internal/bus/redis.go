package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

const DefaultRedisChannel = "bingo:events"

// RedisBus fans events out through Redis Pub/Sub so that every server sharing
// the Redis instance sees every event.
type RedisBus struct {
	logger  *slog.Logger
	client  *redis.Client
	channel string
	buffer  int
}

func NewRedisBus(logger *slog.Logger, client *redis.Client, channel string, buffer int) *RedisBus {
	if channel == "" {
		channel = DefaultRedisChannel
	}

	return &RedisBus{
		logger:  logger.With("component", "redis_bus"),
		client:  client,
		channel: channel,
		buffer:  buffer,
	}
}

func (that *RedisBus) Publish(ctx context.Context, event entity.BingoEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	if err = that.client.Publish(ctx, that.channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe opens a Redis subscription and waits until Redis confirms it,
// so events published after Subscribe returns are delivered.
func (that *RedisBus) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := that.client.Subscribe(ctx, that.channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", that.channel, err)
	}

	done := make(chan struct{})
	subscription := newSubscription(that.buffer, func() {
		close(done)
		_ = pubsub.Close()
	})

	go that.forward(pubsub, subscription, done)

	return subscription, nil
}

func (that *RedisBus) forward(pubsub *redis.PubSub, subscription *Subscription, done <-chan struct{}) {
	log := that.logger.With("method", "forward")

	defer close(subscription.events)

	messages := pubsub.Channel()
	for {
		select {
		case <-done:
			return
		case message, ok := <-messages:
			if !ok {
				return
			}

			var event entity.BingoEvent
			if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
				log.Error("failed to unmarshal event", "error", err)
				continue
			}

			if !subscription.offer(event) {
				log.Warn("subscriber is not keeping up, event dropped", "sessionID", event.SessionID)
			}
		}
	}
}

// Close is a no-op; the Redis client is owned by the caller.
func (that *RedisBus) Close() error {
	return nil
}
