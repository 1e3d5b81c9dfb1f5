// internal/minigame/hands.go
package minigame

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/gridclash/internal/models"
)

// Hand is a rock/paper/scissors choice.
type Hand string

const (
	Rock     Hand = "rock"
	Paper    Hand = "paper"
	Scissors Hand = "scissors"

	// handHidden replaces an opponent's pending choice in views.
	handHidden Hand = "hidden"
)

// beats maps each hand to the hand it defeats.
var beats = map[Hand]Hand{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

func (h Hand) Valid() bool {
	_, ok := beats[h]
	return ok
}

// Beats reports whether h defeats other.
func (h Hand) Beats(other Hand) bool {
	return beats[h] == other
}

// HandRound is one simultaneous reveal.
type HandRound struct {
	A Hand `json:"a"`
	B Hand `json:"b"`
}

// Hands is the symmetric three-choice game. Tied rounds are kept in Ties and replayed.
type Hands struct {
	Round int         `json:"round"`
	A     Hand        `json:"a,omitempty"`
	B     Hand        `json:"b,omitempty"`
	Ties  []HandRound `json:"ties,omitempty"`
	Final *HandRound  `json:"final,omitempty"`
}

func newHands() *Hands {
	return &Hands{Round: 1}
}

func (h *Hands) Kind() Kind { return KindHands }

func (h *Hands) Deadline() time.Time { return time.Time{} }

func (h *Hands) Apply(side models.Side, mv Move, _ time.Time, _ Rand) (models.Side, error) {
	if h.Final != nil {
		return models.SideNone, models.ErrMatchClosed
	}
	if !mv.Hand.Valid() {
		return models.SideNone, fmt.Errorf("%w: hand %q", models.ErrInvalidMove, mv.Hand)
	}
	slot := &h.A
	if side == models.SideB {
		slot = &h.B
	}
	if *slot != "" {
		return models.SideNone, models.ErrAlreadyMoved
	}
	*slot = mv.Hand

	if h.A == "" || h.B == "" {
		return models.SideNone, nil
	}
	round := HandRound{A: h.A, B: h.B}
	h.A, h.B = "", ""
	switch {
	case round.A.Beats(round.B):
		h.Final = &round
		return models.SideA, nil
	case round.B.Beats(round.A):
		h.Final = &round
		return models.SideB, nil
	}
	h.Ties = append(h.Ties, round)
	h.Round++
	return models.SideNone, nil
}

func (h *Hands) Result() models.Side {
	switch {
	case h.Final == nil:
		return models.SideNone
	case h.Final.A.Beats(h.Final.B):
		return models.SideA
	}
	return models.SideB
}

// Expire only reports a decided round; the hand game has no countdown.
func (h *Hands) Expire(time.Time, Rand) (models.Side, error) {
	if w := h.Result(); w != models.SideNone {
		return w, nil
	}
	return models.SideNone, models.ErrNotExpired
}

func (h *Hands) View(viewer models.Side, _ time.Time, _ bool) Contest {
	c := *h
	c.Ties = append([]HandRound(nil), h.Ties...)
	if viewer != models.SideA && c.A != "" {
		c.A = handHidden
	}
	if viewer != models.SideB && c.B != "" {
		c.B = handHidden
	}
	return &c
}
