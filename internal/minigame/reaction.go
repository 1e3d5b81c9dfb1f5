// internal/minigame/reaction.go
package minigame

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/gridclash/internal/models"
)

const (
	ReactionCountdown = 3 * time.Second
	reactionMinDelay  = 1000 // ms
	reactionMaxDelay  = 4000 // ms
	ReactionWindow    = 10 * time.Second
)

// Reaction is a race to tap after a randomized "go". Early taps are counted and ignored.
type Reaction struct {
	StartedAt time.Time           `json:"started_at"`
	GoAt      *time.Time          `json:"go_at,omitempty"`
	EndsAt    time.Time           `json:"ends_at,omitzero"`
	Early     map[models.Side]int `json:"early,omitempty"`
	First     models.Side         `json:"first,omitempty"`
}

func newReaction(now time.Time, rng Rand) *Reaction {
	delay := time.Duration(reactionMinDelay+rng.IntN(reactionMaxDelay-reactionMinDelay+1)) * time.Millisecond
	goAt := now.Add(ReactionCountdown + delay)
	return &Reaction{
		StartedAt: now,
		GoAt:      &goAt,
		EndsAt:    goAt.Add(ReactionWindow),
	}
}

func (r *Reaction) Kind() Kind { return KindReaction }

func (r *Reaction) Deadline() time.Time { return r.EndsAt }

// SignalAt is when the "go" signal fires.
func (r *Reaction) SignalAt() time.Time {
	if r.GoAt == nil {
		return time.Time{}
	}
	return *r.GoAt
}

func (r *Reaction) Apply(side models.Side, mv Move, now time.Time, _ Rand) (models.Side, error) {
	if !mv.Tap {
		return models.SideNone, fmt.Errorf("%w: expected a tap", models.ErrInvalidMove)
	}
	if r.First != models.SideNone {
		return models.SideNone, models.ErrMatchClosed
	}
	if now.Before(r.SignalAt()) {
		if r.Early == nil {
			r.Early = make(map[models.Side]int, 2)
		}
		r.Early[side]++
		return models.SideNone, nil
	}
	if !now.Before(r.EndsAt) {
		return models.SideNone, ErrTooLate
	}
	r.First = side
	return side, nil
}

func (r *Reaction) Result() models.Side { return r.First }

// Expire resolves a race nobody tapped in with a uniform tie-break.
func (r *Reaction) Expire(now time.Time, rng Rand) (models.Side, error) {
	if now.Before(r.EndsAt) {
		return models.SideNone, models.ErrNotExpired
	}
	if r.First != models.SideNone {
		return r.First, nil
	}
	return coinFlip(rng), nil
}

func (r *Reaction) View(_ models.Side, now time.Time, resolved bool) Contest {
	c := *r
	c.Early = make(map[models.Side]int, len(r.Early))
	for k, v := range r.Early {
		c.Early[k] = v
	}
	// the tap window is measured from the signal, so its end would give the signal away
	if !resolved && now.Before(r.SignalAt()) {
		c.GoAt = nil
		c.EndsAt = time.Time{}
	}
	return &c
}
