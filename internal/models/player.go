// internal/models/player.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a participant identified by a durable session handle.
// Only the hashed handle (SessionKey) is persisted.
type Player struct {
	ID          uuid.UUID     `json:"id"`
	SessionKey  string        `json:"-"`
	DisplayName string        `json:"display_name"`
	Team        Side          `json:"team"`
	Ready       bool          `json:"ready"`
	RoomID      uuid.NullUUID `json:"room_id"`
	LastActive  time.Time     `json:"last_active"`
}

// InRoom reports whether the player currently belongs to roomID.
func (p *Player) InRoom(roomID uuid.UUID) bool {
	return p.RoomID.Valid && p.RoomID.UUID == roomID
}
