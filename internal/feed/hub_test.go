package feed

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) listen(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func TestHubDeliversByKey(t *testing.T) {
	h := NewHub()
	roomID := uuid.New()
	otherID := uuid.New()

	var onRoom, onOther recorder
	h.Subscribe(Key{Scope: ScopeRoom, ID: roomID}, onRoom.listen)
	h.Subscribe(Key{Scope: ScopeRoom, ID: otherID}, onOther.listen)

	require.NoError(t, h.Publish(context.Background(), NewChange(ScopeRoom, roomID, "room_updated")))
	assert.Equal(t, 1, onRoom.count())
	assert.Equal(t, 0, onOther.count())

	// same id, different scope must not match
	require.NoError(t, h.Publish(context.Background(), NewChange(ScopeGame, roomID, "game_updated")))
	assert.Equal(t, 1, onRoom.count())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	key := Key{Scope: ScopeMatch, ID: uuid.New()}
	var rec recorder
	sub := h.Subscribe(key, rec.listen)
	assert.Equal(t, 1, h.Count(key))

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, h.Count(key))

	h.Deliver(Change{Scope: key.Scope, ID: key.ID})
	assert.Equal(t, 0, rec.count())
}

func TestRegistryReplacesAndCloses(t *testing.T) {
	h := NewHub()
	reg := h.NewRegistry()
	key := Key{Scope: ScopeGame, ID: uuid.New()}

	var first, second recorder
	require.True(t, reg.Watch(key, first.listen))
	require.True(t, reg.Watch(key, second.listen))
	assert.Equal(t, 1, h.Count(key), "re-watching a key replaces the listener")

	h.Deliver(Change{Scope: key.Scope, ID: key.ID})
	assert.Equal(t, 0, first.count())
	assert.Equal(t, 1, second.count())

	roomKey := Key{Scope: ScopeRoom, ID: uuid.New()}
	reg.Watch(roomKey, second.listen)
	assert.Len(t, reg.Keys(), 2)

	reg.Close()
	assert.Equal(t, 0, h.Count(key))
	assert.Equal(t, 0, h.Count(roomKey))
	assert.False(t, reg.Watch(key, first.listen))
}

func TestRegistryUnwatch(t *testing.T) {
	h := NewHub()
	reg := h.NewRegistry()
	key := Key{Scope: ScopePlayer, ID: uuid.New()}
	var rec recorder
	reg.Watch(key, rec.listen)
	reg.Unwatch(key)
	reg.Unwatch(key)
	assert.Equal(t, 0, h.Count(key))
	assert.Empty(t, reg.Keys())
}
