// internal/feed/registry.go
package feed

import "sync"

// Registry owns the subscriptions of a single client. Watching a key twice replaces the old
// listener, and Close releases everything the client still holds.
type Registry struct {
	hub    *Hub
	mu     sync.Mutex
	subs   map[Key]*Subscription
	closed bool
}

// NewRegistry returns a registry bound to h.
func (h *Hub) NewRegistry() *Registry {
	return &Registry{hub: h, subs: make(map[Key]*Subscription)}
}

// Watch subscribes fn to key. It reports false if the registry is already closed.
func (r *Registry) Watch(key Key, fn Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if old, ok := r.subs[key]; ok {
		old.Unsubscribe()
	}
	r.subs[key] = r.hub.Subscribe(key, fn)
	return true
}

// Unwatch drops the subscription for key if there is one.
func (r *Registry) Unwatch(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[key]; ok {
		sub.Unsubscribe()
		delete(r.subs, key)
	}
}

// Keys returns the currently watched keys.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]Key, 0, len(r.subs))
	for k := range r.subs {
		keys = append(keys, k)
	}
	return keys
}

// Close unsubscribes everything. Further Watch calls are refused.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, sub := range r.subs {
		sub.Unsubscribe()
		delete(r.subs, k)
	}
	r.closed = true
}
