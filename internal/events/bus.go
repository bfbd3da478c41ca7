package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler receives published events. Handlers run on the publisher's
// goroutine; dispatch order follows subscription order.
type Handler func(Event)

type subscription struct {
	id      string
	types   map[Type]struct{} // empty means all types
	handler Handler
}

// Bus is an in-process event channel. Safe for concurrent use; publishing
// from within a handler is allowed.
type Bus struct {
	source string

	mu   sync.RWMutex
	subs []*subscription
}

// NewBus creates a bus whose published events carry the given source tag.
func NewBus(source string) *Bus {
	return &Bus{source: source}
}

// Subscribe registers a handler for the given event types. An empty type
// list subscribes to everything. The returned id is used to unsubscribe.
func (b *Bus) Subscribe(handler Handler, types ...Type) string {
	sub := &subscription{
		id:      uuid.New().String(),
		handler: handler,
	}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub.id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers a payload to all matching subscribers synchronously.
func (b *Bus) Publish(p Payload) {
	ev := Event{
		ID:        uuid.New().String(),
		Type:      p.EventType(),
		Source:    b.source,
		Timestamp: time.Now(),
		Payload:   p,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.types != nil {
			if _, ok := sub.types[ev.Type]; !ok {
				continue
			}
		}
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// SubscriberCount reports how many subscriptions are active.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
