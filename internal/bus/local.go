package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

var ErrClosed = errors.New("bus is closed")

// LocalBus delivers events to subscribers inside this process.
type LocalBus struct {
	logger *slog.Logger
	buffer int

	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	closed      bool
}

func NewLocalBus(logger *slog.Logger, buffer int) *LocalBus {
	return &LocalBus{
		logger:      logger.With("component", "local_bus"),
		buffer:      buffer,
		subscribers: make(map[*Subscription]struct{}),
	}
}

func (that *LocalBus) Publish(_ context.Context, event entity.BingoEvent) error {
	log := that.logger.With("method", "Publish", "sessionID", event.SessionID)

	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.closed {
		return ErrClosed
	}

	for subscription := range that.subscribers {
		if !subscription.offer(event) {
			log.Warn("subscriber is not keeping up, event dropped")
		}
	}

	return nil
}

func (that *LocalBus) Subscribe(_ context.Context) (*Subscription, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, ErrClosed
	}

	var subscription *Subscription
	subscription = newSubscription(that.buffer, func() {
		that.unsubscribe(subscription)
	})

	that.subscribers[subscription] = struct{}{}

	return subscription, nil
}

func (that *LocalBus) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil
	}

	that.closed = true
	for subscription := range that.subscribers {
		close(subscription.events)
		delete(that.subscribers, subscription)
	}

	return nil
}

func (that *LocalBus) unsubscribe(subscription *Subscription) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.subscribers[subscription]; !ok {
		return
	}

	delete(that.subscribers, subscription)
	close(subscription.events)
}
