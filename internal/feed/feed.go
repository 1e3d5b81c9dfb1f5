// Package feed propagates state-change notifications to subscribers.
//
// A Change only names what changed; subscribers re-read current state from the store. Delivery is
// at-least-once and unordered across keys, so listeners must tolerate duplicates.
package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Scope is the kind of record a change refers to.
type Scope string

const (
	ScopeRoom   Scope = "room"
	ScopeGame   Scope = "game"
	ScopeMatch  Scope = "match"
	ScopePlayer Scope = "player"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeRoom, ScopeGame, ScopeMatch, ScopePlayer:
		return true
	}
	return false
}

// Key identifies one subscribable record.
type Key struct {
	Scope Scope     `json:"scope"`
	ID    uuid.UUID `json:"id"`
}

// Change is the notification payload.
type Change struct {
	Scope Scope     `json:"scope"`
	ID    uuid.UUID `json:"id"`
	Kind  string    `json:"kind"`
	At    time.Time `json:"at"`
}

// Key returns the subscription key the change is delivered to.
func (c Change) Key() Key {
	return Key{Scope: c.Scope, ID: c.ID}
}

// NewChange stamps a change for the given record.
func NewChange(scope Scope, id uuid.UUID, kind string) Change {
	return Change{Scope: scope, ID: id, Kind: kind, At: time.Now()}
}

// Publisher emits changes. Implementations: *Hub (in-process), cache.Feed (Redis), broker.Feed (NATS).
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Nop discards every change.
type Nop struct{}

func (Nop) Publish(context.Context, Change) error { return nil }

// Notify publishes each change and logs failures. The write the change describes is already
// committed, so a lost notification only delays clients until the next one.
func Notify(ctx context.Context, pub Publisher, logger logrus.FieldLogger, changes ...Change) {
	for _, c := range changes {
		if err := pub.Publish(ctx, c); err != nil {
			logger.WithFields(logrus.Fields{
				"scope": c.Scope,
				"id":    c.ID,
				"kind":  c.Kind,
			}).WithError(err).Warn("failed to publish change")
		}
	}
}
