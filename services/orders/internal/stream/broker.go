package stream

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/orderboard/services/orders/internal/order"
	"github.com/appetiteclub/orderboard/services/orders/internal/viewfilter"
)

// subscriberBuffer holds the single pending update of a subscriber. A newer
// board replaces a pending one, so a slow stream skips straight to the
// current state.
const subscriberBuffer = 1

// Update is one recomputation of the board. Orders and Board are shared by
// every subscriber and must be treated as read-only.
type Update struct {
	Orders []*order.Order
	Board  map[string][]*order.Order
}

// Broker fans board updates out to the connected view streams.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]chan Update
	latest      *Update
	logger      apt.Logger
}

func NewBroker(logger apt.Logger) *Broker {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Broker{
		subscribers: make(map[string]chan Update),
		logger:      logger,
	}
}

// Publish recomputes the board from a cache snapshot and hands it to every
// subscriber. An update a subscriber has not read yet is replaced, never
// queued behind.
func (b *Broker) Publish(snapshot []*order.Order) {
	u := Update{
		Orders: snapshot,
		Board:  viewfilter.Partition(snapshot),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = &u
	for id, ch := range b.subscribers {
		if offer(ch, u) {
			b.logger.Debug("replaced pending board update", "subscriber_id", id)
		}
	}
}

// offer puts u in ch, discarding the pending update if there is one.
// Callers hold the broker lock, so no other sender races for the slot.
func offer(ch chan Update, u Update) (replaced bool) {
	select {
	case ch <- u:
		return false
	default:
	}

	select {
	case <-ch:
		replaced = true
	default:
	}

	select {
	case ch <- u:
	default:
	}
	return replaced
}

// Subscribe registers a subscriber. The latest board, if any, is queued
// right away.
func (b *Broker) Subscribe(id string) <-chan Update {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Update, subscriberBuffer)
	if b.latest != nil {
		ch <- *b.latest
	}
	b.subscribers[id] = ch

	b.logger.Debug("view stream subscribed", "subscriber_id", id, "subscribers", len(b.subscribers))
	return ch
}

func (b *Broker) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
		b.logger.Debug("view stream unsubscribed", "subscriber_id", id)
	}
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Stop closes every subscriber channel, ending their streams.
func (b *Broker) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	return nil
}
