// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus follows lobby -> in_progress -> ended.
type GameStatus string

const (
	GameLobby      GameStatus = "lobby"
	GameInProgress GameStatus = "in_progress"
	GameEnded      GameStatus = "ended"
)

// Game is one board contest inside a room.
// Version increments on every write and guards conditional updates.
type Game struct {
	ID        uuid.UUID  `json:"id"`
	RoomID    uuid.UUID  `json:"room_id"`
	Board     Board      `json:"board"`
	Turn      Side       `json:"turn"`
	Status    GameStatus `json:"status"`
	Winner    Side       `json:"winner,omitempty"`
	Draw      bool       `json:"draw"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Terminal reports whether the game accepts no further challenges.
func (g *Game) Terminal() bool {
	return g.Status == GameEnded
}

// Clone returns a copy safe to mutate.
func (g *Game) Clone() *Game {
	c := *g
	return &c
}
