// internal/feed/hub.go
package feed

import (
	"context"
	"sync"
)

// Listener is invoked for every change delivered to its key. It runs on the publisher's
// goroutine and must not block.
type Listener func(Change)

// Hub is the in-process subscription registry, keyed by scope and record id.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Key]map[uint64]Listener
	nextID uint64
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[Key]map[uint64]Listener)}
}

// Subscribe registers fn for key. The returned subscription must be released with Unsubscribe.
func (h *Hub) Subscribe(key Key, fn Listener) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	listeners := h.subs[key]
	if listeners == nil {
		listeners = make(map[uint64]Listener)
		h.subs[key] = listeners
	}
	listeners[id] = fn
	return &Subscription{hub: h, key: key, id: id}
}

func (h *Hub) remove(key Key, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	listeners := h.subs[key]
	delete(listeners, id)
	if len(listeners) == 0 {
		delete(h.subs, key)
	}
}

// Publish delivers c to local subscribers. It never fails.
func (h *Hub) Publish(_ context.Context, c Change) error {
	h.Deliver(c)
	return nil
}

// Deliver calls every listener registered for c's key, outside the lock.
func (h *Hub) Deliver(c Change) {
	h.mu.RLock()
	listeners := make([]Listener, 0, len(h.subs[c.Key()]))
	for _, fn := range h.subs[c.Key()] {
		listeners = append(listeners, fn)
	}
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(c)
	}
}

// Count returns how many listeners are registered for key.
func (h *Hub) Count(key Key) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// Subscription is a handle to one registered listener.
type Subscription struct {
	hub  *Hub
	key  Key
	id   uint64
	once sync.Once
}

// Key returns the watched key.
func (s *Subscription) Key() Key {
	return s.key
}

// Unsubscribe releases the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s.key, s.id)
	})
}
