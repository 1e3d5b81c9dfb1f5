// Package minigame implements the two-party contests that decide who claims a board square.
// A contest knows nothing about the board or turn order; it only produces a winning side.
package minigame

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jason-s-yu/gridclash/internal/models"
)

// Kind tags the contest carried by a match.
type Kind string

const (
	KindHands    Kind = "hands"
	KindQuiz     Kind = "quiz"
	KindReaction Kind = "reaction"
)

// Kinds is the set a challenge draws from.
var Kinds = []Kind{KindHands, KindQuiz, KindReaction}

var (
	ErrTooLate     = fmt.Errorf("%w: countdown is over", models.ErrConflict)
	ErrUnknownKind = fmt.Errorf("unknown mini-game kind")
)

// Rand is the source of uniform draws. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the goroutine-safe top-level math/rand/v2 source.
var DefaultRand Rand = globalRand{}

// Move is a player's input. Only the field matching the contest kind is read.
type Move struct {
	Hand   Hand `json:"hand,omitempty"`
	Option *int `json:"option,omitempty"`
	Tap    bool `json:"tap,omitempty"`
}

// Contest is the state of one running mini-game.
type Contest interface {
	Kind() Kind
	// Apply records mv for side. It returns the winning side once decided, SideNone otherwise.
	Apply(side models.Side, mv Move, now time.Time, rng Rand) (models.Side, error)
	// Result is the side already decided by recorded moves, SideNone while undecided.
	Result() models.Side
	// Expire decides the contest once its countdown has run out.
	Expire(now time.Time, rng Rand) (models.Side, error)
	// Deadline is when Expire becomes legal; zero if the contest never times out.
	Deadline() time.Time
	// View returns a copy with the information viewer must not see yet removed.
	View(viewer models.Side, now time.Time, resolved bool) Contest
}

// Pick draws a kind uniformly from kinds.
func Pick(kinds []Kind, rng Rand) Kind {
	return kinds[rng.IntN(len(kinds))]
}

// New starts a contest of the given kind.
func New(kind Kind, now time.Time, rng Rand) (Contest, error) {
	switch kind {
	case KindHands:
		return newHands(), nil
	case KindQuiz:
		return newQuiz(now, rng), nil
	case KindReaction:
		return newReaction(now, rng), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Decode restores a contest from a match's state blob.
func Decode(kind string, data []byte) (Contest, error) {
	var c Contest
	switch Kind(kind) {
	case KindHands:
		c = &Hands{}
	case KindQuiz:
		c = &Quiz{}
	case KindReaction:
		c = &Reaction{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode %s state: %w", kind, err)
	}
	return c, nil
}

// Encode serializes a contest into a state blob.
func Encode(c Contest) (json.RawMessage, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s state: %w", c.Kind(), err)
	}
	return data, nil
}

// coinFlip picks a side uniformly.
func coinFlip(rng Rand) models.Side {
	if rng.IntN(2) == 0 {
		return models.SideA
	}
	return models.SideB
}

// View returns a copy of m whose state is redacted for viewer.
func View(m *models.Match, viewer models.Side, now time.Time) (*models.Match, error) {
	out := m.Clone()
	c, err := Decode(m.Kind, m.State)
	if err != nil {
		return nil, err
	}
	state, err := Encode(c.View(viewer, now, !m.Open()))
	if err != nil {
		return nil, err
	}
	out.State = state
	return out, nil
}
