// internal/minigame/arbiter.go
package minigame

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/jason-s-yu/gridclash/internal/store"
	"github.com/sirupsen/logrus"
)

// ChangeMatchUpdated is published whenever a match's state blob changes.
const ChangeMatchUpdated = "match_updated"

const (
	maxStaleRetries = 8
	expireGrace     = 50 * time.Millisecond
	timerBudget     = 5 * time.Second
)

// Resolver is told the winning side once a contest is decided.
type Resolver interface {
	ResolveMatch(ctx context.Context, matchID uuid.UUID, winner models.Side) (*models.Match, error)
}

// signaller is implemented by contests that announce a mid-game event, such as the reaction "go".
type signaller interface {
	SignalAt() time.Time
}

// Arbiter runs contests on behalf of the two representatives of a match.
type Arbiter struct {
	store    store.MatchStore
	resolver Resolver
	pub      feed.Publisher
	log      logrus.FieldLogger

	Rand    Rand
	Now     func() time.Time
	Actions models.ActionRecorder

	mu      sync.Mutex
	timers  map[uuid.UUID][]*time.Timer
	stopped bool
}

func NewArbiter(st store.MatchStore, resolver Resolver, pub feed.Publisher, logger logrus.FieldLogger) *Arbiter {
	return &Arbiter{
		store:    st,
		resolver: resolver,
		pub:      pub,
		log:      logger,
		Rand:     DefaultRand,
		Now:      time.Now,
		timers:   make(map[uuid.UUID][]*time.Timer),
	}
}

// Submit applies a representative's move. The state write is conditional on the match version
// and retried on a stale read; a decided contest is handed to the resolver.
func (a *Arbiter) Submit(ctx context.Context, matchID, playerID uuid.UUID, mv Move) (*models.Match, error) {
	for attempt := 0; ; attempt++ {
		m, err := a.store.GetMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if !m.Open() {
			return m, models.ErrMatchClosed
		}
		side := m.SideOf(playerID)
		if side == models.SideNone {
			return nil, fmt.Errorf("%w: player %s does not represent a side in match %s", models.ErrUnauthorized, playerID, matchID)
		}

		c, err := Decode(m.Kind, m.State)
		if err != nil {
			return nil, err
		}
		// decided by an earlier call whose resolution did not go through
		if w := c.Result(); w != models.SideNone {
			return a.resolver.ResolveMatch(ctx, m.ID, w)
		}
		winner, err := c.Apply(side, mv, a.Now(), a.Rand)
		if err != nil {
			return nil, err
		}
		if m.State, err = Encode(c); err != nil {
			return nil, err
		}

		err = a.store.UpdateMatchState(ctx, m)
		if errors.Is(err, models.ErrStale) && attempt < maxStaleRetries {
			continue
		}
		if err != nil {
			return nil, err
		}

		a.record(ctx, m, playerID, models.ActionMoveSubmitted, map[string]interface{}{
			"side": side,
			"kind": m.Kind,
		})
		feed.Notify(ctx, a.pub, a.log, feed.NewChange(feed.ScopeMatch, m.ID, ChangeMatchUpdated))

		if winner == models.SideNone {
			return m, nil
		}
		return a.resolver.ResolveMatch(ctx, m.ID, winner)
	}
}

// Expire resolves a timed contest whose countdown has run out, or any contest whose moves
// already decided it. Calling it again after the match completed returns the recorded result.
func (a *Arbiter) Expire(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	m, err := a.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Open() {
		return m, nil
	}
	c, err := Decode(m.Kind, m.State)
	if err != nil {
		return nil, err
	}
	winner := c.Result()
	if winner == models.SideNone {
		if winner, err = c.Expire(a.Now(), a.Rand); err != nil {
			return nil, err
		}
	}
	a.log.WithFields(logrus.Fields{
		"match_id": m.ID,
		"kind":     m.Kind,
		"winner":   winner,
	}).Info("match countdown expired")
	return a.resolver.ResolveMatch(ctx, m.ID, winner)
}

// Schedule arms server-side timers for a freshly created match: a change notification when
// a reaction "go" fires and an Expire call at the deadline.
func (a *Arbiter) Schedule(m *models.Match) {
	c, err := Decode(m.Kind, m.State)
	if err != nil {
		a.log.WithError(err).WithField("match_id", m.ID).Warn("cannot schedule match")
		return
	}
	now := a.Now()
	if s, ok := c.(signaller); ok && !s.SignalAt().IsZero() {
		a.after(m.ID, s.SignalAt().Sub(now), func(ctx context.Context) {
			feed.Notify(ctx, a.pub, a.log, feed.NewChange(feed.ScopeMatch, m.ID, ChangeMatchUpdated))
		})
	}
	if deadline := c.Deadline(); !deadline.IsZero() {
		a.after(m.ID, deadline.Sub(now)+expireGrace, func(ctx context.Context) {
			if _, err := a.Expire(ctx, m.ID); err != nil && !errors.Is(err, models.ErrNotExpired) {
				a.log.WithError(err).WithField("match_id", m.ID).Warn("scheduled expiry failed")
			}
			a.forget(m.ID)
		})
	}
}

func (a *Arbiter) after(matchID uuid.UUID, d time.Duration, fn func(ctx context.Context)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	t := time.AfterFunc(d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timerBudget)
		defer cancel()
		fn(ctx)
	})
	a.timers[matchID] = append(a.timers[matchID], t)
}

func (a *Arbiter) forget(matchID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.timers, matchID)
}

// Pending returns how many matches have armed timers.
func (a *Arbiter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.timers)
}

// Stop cancels every armed timer. Clients can still expire matches themselves.
func (a *Arbiter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, ts := range a.timers {
		for _, t := range ts {
			t.Stop()
		}
		delete(a.timers, id)
	}
	a.stopped = true
}

func (a *Arbiter) record(ctx context.Context, m *models.Match, actor uuid.UUID, actionType string, payload map[string]interface{}) {
	if a.Actions == nil {
		return
	}
	payload["match_id"] = m.ID
	rec := models.NewActionRecord(m.GameID, actor, actionType, payload)
	if err := a.Actions.Record(ctx, rec); err != nil {
		a.log.WithError(err).WithField("action", actionType).Warn("failed to record action")
	}
}
