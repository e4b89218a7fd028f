// Package bus fans bingo events out to every subscriber.
//
// Delivery is at-most-once: a subscriber that is not keeping up, or not subscribed
// when an event is published, misses it. The bus never filters by origin; deciding
// whether an event concerns "another" game is up to each subscriber.
package bus

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

const defaultBuffer = 64

type Bus interface {
	Publish(ctx context.Context, event entity.BingoEvent) error
	Subscribe(ctx context.Context) (*Subscription, error)
	Close() error
}

// Subscription receives events until Close is called or the bus shuts down.
type Subscription struct {
	events chan entity.BingoEvent
	once   sync.Once
	cancel func()
}

func newSubscription(buffer int, cancel func()) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	return &Subscription{
		events: make(chan entity.BingoEvent, buffer),
		cancel: cancel,
	}
}

func (that *Subscription) Events() <-chan entity.BingoEvent {
	return that.events
}

func (that *Subscription) Close() {
	that.once.Do(that.cancel)
}

// offer hands the event over without blocking and reports whether it was accepted.
func (that *Subscription) offer(event entity.BingoEvent) bool {
	select {
	case that.events <- event:
		return true
	default:
		return false
	}
}
