// internal/store/store.go
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/models"
)

// Store is the shared durable state. Every mutating method that two actors could race on is a
// conditional write: it either applies against the value it expects or reports that it did not.
type Store interface {
	PlayerStore
	RoomStore
	GameStore
	MatchStore
}

// PlayerStore persists players keyed by hashed session handle.
type PlayerStore interface {
	// UpsertPlayer returns the player for sessionKey, creating it on first contact.
	// A non-empty displayName replaces the stored one.
	UpsertPlayer(ctx context.Context, sessionKey, displayName string) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	// SetPlayerRoom points the player at roomID. Team and ready are cleared when the player
	// was not already in that room.
	SetPlayerRoom(ctx context.Context, playerID, roomID uuid.UUID) error
	// ClearPlayerRoom resets room, team and ready, but only if the player is still in roomID.
	ClearPlayerRoom(ctx context.Context, playerID, roomID uuid.UUID) error
	// SetPlayerTeam moves the player to side and resets ready. Fails with ErrTeamFull when the
	// side already holds limit other players of the same room.
	SetPlayerTeam(ctx context.Context, playerID uuid.UUID, side models.Side, limit int) (*models.Player, error)
	ToggleReady(ctx context.Context, playerID uuid.UUID) (*models.Player, error)
	// SetRoomReady sets the ready flag of every participant of roomID and returns how many changed.
	SetRoomReady(ctx context.Context, roomID uuid.UUID, ready bool) (int, error)
	// ListRoster returns the players joined to roomID ordered by join time.
	ListRoster(ctx context.Context, roomID uuid.UUID) ([]*models.Player, error)
}

// RoomStore persists rooms and their participant rows.
type RoomStore interface {
	// InsertRoom fails with ErrCodeTaken when the code collides.
	InsertRoom(ctx context.Context, room *models.Room) error
	RoomCodeExists(ctx context.Context, code string) (bool, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	SetRoomStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error
	// AddParticipant inserts the (room, player) row unless it exists. It fails with ErrFull when
	// the room already holds capacity participants. added is false for an existing member.
	AddParticipant(ctx context.Context, roomID, playerID uuid.UUID, capacity int) (added bool, err error)
	RemoveParticipant(ctx context.Context, roomID, playerID uuid.UUID) (removed bool, err error)
	CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error)
	// TransferHost moves the host role from one player to another only while from is still the
	// host. moved is false when someone else already took over.
	TransferHost(ctx context.Context, roomID, from, to uuid.UUID) (moved bool, err error)
}

// GameStore persists games.
type GameStore interface {
	// CreateGame inserts g unless the room already has a non-ended game, in which case that
	// game is returned with created=false.
	CreateGame(ctx context.Context, g *models.Game) (game *models.Game, created bool, err error)
	// CurrentGame returns the most recently created game of the room.
	CurrentGame(ctx context.Context, roomID uuid.UUID) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	// UpdateGame writes g only if the stored version still equals g.Version, then bumps
	// g.Version. A mismatch returns ErrStale.
	UpdateGame(ctx context.Context, g *models.Game) error
}

// MatchStore persists mini-game matches.
type MatchStore interface {
	// CreateMatch fails with ErrSquareContested when the square already has an open match.
	CreateMatch(ctx context.Context, m *models.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	ListOpenMatches(ctx context.Context, gameID uuid.UUID) ([]*models.Match, error)
	// UpdateMatchState writes m.State only if the match is still open at version m.Version.
	UpdateMatchState(ctx context.Context, m *models.Match) error
	// CompleteMatch records the winner once. applied is false if the match was already completed.
	CompleteMatch(ctx context.Context, id uuid.UUID, winner models.Side) (applied bool, err error)
	// CancelOpenMatches closes every open match of the game without a winner and returns them.
	CancelOpenMatches(ctx context.Context, gameID uuid.UUID) ([]*models.Match, error)
}
