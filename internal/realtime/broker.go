package realtime

import (
	"log"
	"sync"

	"disclone/internal/observability"
)

// Feed hands out change subscriptions scoped by table.
type Feed interface {
	Subscribe(table string) *Subscription
}

// Broker fans change events out to subscribers of their table.
type Broker struct {
	subs   map[string]map[*Subscription]struct{}
	buffer int
	mu     sync.RWMutex
}

// NewBroker creates a broker whose subscriptions buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 1
	}
	return &Broker{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// Subscribe registers a subscription for table.
func (b *Broker) Subscribe(table string) *Subscription {
	sub := &Subscription{table: table, events: make(chan Event, b.buffer), broker: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[table]; !ok {
		b.subs[table] = make(map[*Subscription]struct{})
	}
	b.subs[table][sub] = struct{}{}
	return sub
}

// Publish delivers evt to every subscriber of its table without blocking.
// A subscriber whose buffer is full misses the event.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[evt.Table] {
		select {
		case sub.events <- evt:
			observability.IncRealtimeEvent(evt.Table, "delivered")
		default:
			log.Printf("realtime subscriber buffer full, dropping table=%s op=%s", evt.Table, evt.Op)
			observability.IncRealtimeEvent(evt.Table, "dropped")
		}
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[sub.table]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.table)
		}
	}
	close(sub.events)
}

// Subscribers reports the number of live subscriptions for table.
func (b *Broker) Subscribers(table string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[table])
}

// Subscription receives the events of one table until closed.
type Subscription struct {
	table  string
	events chan Event
	broker *Broker
	once   sync.Once
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Table returns the subscribed table.
func (s *Subscription) Table() string {
	return s.table
}

// Close cancels the subscription. No event is delivered after Close returns.
func (s *Subscription) Close() {
	s.once.Do(func() { s.broker.remove(s) })
}
