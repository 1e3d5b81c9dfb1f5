// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomFull       RoomStatus = "full"
	RoomInProgress RoomStatus = "in_progress"
	RoomFinished   RoomStatus = "finished"
)

// RoomCapacity is the fixed number of players a room holds.
const RoomCapacity = 6

// Room represents a row in the rooms table.
type Room struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Code         string     `json:"code"`
	HostPlayerID uuid.UUID  `json:"host_player_id"`
	Capacity     int        `json:"capacity"`
	Status       RoomStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}
