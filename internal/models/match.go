// internal/models/match.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	// MatchCancelled closes a match left open when its game ended.
	MatchCancelled MatchStatus = "cancelled"
)

// Match is a single mini-game challenge for one board square.
// State is the kind-specific blob owned by the minigame package.
type Match struct {
	ID          uuid.UUID       `json:"id"`
	GameID      uuid.UUID       `json:"game_id"`
	Square      int             `json:"square"`
	RepA        uuid.UUID       `json:"rep_a"`
	RepB        uuid.UUID       `json:"rep_b"`
	Kind        string          `json:"kind"`
	Status      MatchStatus     `json:"status"`
	State       json.RawMessage `json:"state"`
	Winner      Side            `json:"winner,omitempty"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Open reports whether the match still awaits a result.
func (m *Match) Open() bool {
	return m.Status != MatchCompleted && m.Status != MatchCancelled
}

// SideOf returns which side playerID represents in this match.
func (m *Match) SideOf(playerID uuid.UUID) Side {
	switch playerID {
	case m.RepA:
		return SideA
	case m.RepB:
		return SideB
	}
	return SideNone
}

// Clone returns a deep copy safe to mutate.
func (m *Match) Clone() *Match {
	c := *m
	if m.State != nil {
		c.State = append(json.RawMessage(nil), m.State...)
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
