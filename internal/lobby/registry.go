// internal/lobby/registry.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/jason-s-yu/gridclash/internal/store"
	"github.com/sirupsen/logrus"
)

// Change kinds published by the registry.
const (
	ChangeRoomUpdated   = "room_updated"
	ChangePlayerUpdated = "player_updated"
)

const maxRoomNameLen = 48

// Registry creates, joins and leaves rooms, and gates team and ready state.
type Registry struct {
	store store.Store
	pub   feed.Publisher
	log   logrus.FieldLogger

	// IntN draws room code characters. Replaced in tests.
	IntN func(n int) int
}

func NewRegistry(st store.Store, pub feed.Publisher, logger logrus.FieldLogger) *Registry {
	return &Registry{
		store: st,
		pub:   pub,
		log:   logger,
		IntN:  defaultIntN,
	}
}

// CreateRoom inserts a waiting room under a fresh code and seats the host in it.
// A host already sitting in another room leaves it once the new seat is taken.
func (r *Registry) CreateRoom(ctx context.Context, name string, hostID uuid.UUID) (*models.Room, error) {
	host, err := r.store.GetPlayer(ctx, hostID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = host.DisplayName + "'s room"
	}
	if len(name) > maxRoomNameLen {
		name = name[:maxRoomNameLen]
	}

	room := &models.Room{
		ID:           uuid.New(),
		Name:         name,
		HostPlayerID: hostID,
		Capacity:     models.RoomCapacity,
		Status:       models.RoomWaiting,
	}
	inserted := false
	for attempt := 0; attempt < maxCodeAttempts && !inserted; attempt++ {
		room.Code = generateCode(r.IntN)
		exists, err := r.store.RoomCodeExists(ctx, room.Code)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNotCreated, err)
		}
		if exists {
			continue
		}
		err = r.store.InsertRoom(ctx, room)
		switch {
		case err == nil:
			inserted = true
		case errors.Is(err, models.ErrCodeTaken):
			// lost a race for this code; draw another
		default:
			return nil, fmt.Errorf("%w: %v", models.ErrNotCreated, err)
		}
	}
	if !inserted {
		return nil, fmt.Errorf("%w: no free room code after %d attempts", models.ErrNotCreated, maxCodeAttempts)
	}

	if _, err := r.store.AddParticipant(ctx, room.ID, hostID, room.Capacity); err != nil {
		return nil, fmt.Errorf("%w: seat host: %v", models.ErrNotCreated, err)
	}
	if host.RoomID.Valid {
		if err := r.LeaveRoom(ctx, hostID, host.RoomID.UUID); err != nil {
			return nil, err
		}
	}
	if err := r.store.SetPlayerRoom(ctx, hostID, room.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNotCreated, err)
	}

	r.log.WithFields(logrus.Fields{
		"room_id": room.ID,
		"code":    room.Code,
		"host":    hostID,
	}).Info("room created")
	feed.Notify(ctx, r.pub, r.log,
		feed.NewChange(feed.ScopeRoom, room.ID, ChangeRoomUpdated),
		feed.NewChange(feed.ScopePlayer, hostID, ChangePlayerUpdated),
	)
	return room, nil
}

// JoinRoom seats the player in the room with the given code and returns the room and roster.
// Rejoining a room the player is already in is a no-op.
func (r *Registry) JoinRoom(ctx context.Context, code string, playerID uuid.UUID) (*models.Room, []*models.Player, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, nil, fmt.Errorf("room code %q: %w", code, models.ErrNotFound)
	}
	room, err := r.store.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	p, err := r.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}
	// The new seat is taken before the old one is given up, so a rejected join leaves the
	// player where they were.
	added, err := r.store.AddParticipant(ctx, room.ID, playerID, room.Capacity)
	if err != nil {
		return nil, nil, err
	}
	if p.RoomID.Valid && p.RoomID.UUID != room.ID {
		if err := r.LeaveRoom(ctx, playerID, p.RoomID.UUID); err != nil {
			return nil, nil, err
		}
	}
	if err := r.store.SetPlayerRoom(ctx, playerID, room.ID); err != nil {
		return nil, nil, err
	}

	if added {
		r.log.WithFields(logrus.Fields{
			"room_id":   room.ID,
			"player_id": playerID,
		}).Info("player joined room")
		if room, err = r.refreshStatus(ctx, room.ID); err != nil {
			return nil, nil, err
		}
		feed.Notify(ctx, r.pub, r.log,
			feed.NewChange(feed.ScopeRoom, room.ID, ChangeRoomUpdated),
			feed.NewChange(feed.ScopePlayer, playerID, ChangePlayerUpdated),
		)
	}

	roster, err := r.store.ListRoster(ctx, room.ID)
	if err != nil {
		return nil, nil, err
	}
	return room, roster, nil
}

// LeaveRoom removes the participant row and resets the player's room, team and ready fields.
// Leaving twice is harmless.
func (r *Registry) LeaveRoom(ctx context.Context, playerID, roomID uuid.UUID) error {
	removed, err := r.store.RemoveParticipant(ctx, roomID, playerID)
	if err != nil {
		return err
	}
	if err := r.store.ClearPlayerRoom(ctx, playerID, roomID); err != nil {
		return err
	}
	if !removed {
		return nil
	}

	r.log.WithFields(logrus.Fields{
		"room_id":   roomID,
		"player_id": playerID,
	}).Info("player left room")
	room, err := r.refreshStatus(ctx, roomID)
	if errors.Is(err, models.ErrNotFound) {
		room, err = nil, nil
	}
	if err != nil {
		return err
	}
	if room != nil && room.HostPlayerID == playerID {
		if err := r.handOffHost(ctx, roomID, playerID); err != nil {
			return err
		}
	}
	feed.Notify(ctx, r.pub, r.log,
		feed.NewChange(feed.ScopeRoom, roomID, ChangeRoomUpdated),
		feed.NewChange(feed.ScopePlayer, playerID, ChangePlayerUpdated),
	)
	return nil
}

// handOffHost passes the host role to the longest-seated remaining participant. An empty room
// keeps its departed host until someone joins and leaves again.
func (r *Registry) handOffHost(ctx context.Context, roomID, leaving uuid.UUID) error {
	roster, err := r.store.ListRoster(ctx, roomID)
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		return nil
	}
	next := roster[0].ID
	moved, err := r.store.TransferHost(ctx, roomID, leaving, next)
	if err != nil {
		return err
	}
	if moved {
		r.log.WithFields(logrus.Fields{
			"room_id": roomID,
			"from":    leaving,
			"to":      next,
		}).Info("host handed off")
	}
	return nil
}

// Roster returns the players currently joined to roomID.
func (r *Registry) Roster(ctx context.Context, roomID uuid.UUID) ([]*models.Player, error) {
	return r.store.ListRoster(ctx, roomID)
}

// refreshStatus flips a pre-game room between waiting and full from its participant count.
// Rooms in or after a game keep their status.
func (r *Registry) refreshStatus(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	room, err := r.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomWaiting && room.Status != models.RoomFull {
		return room, nil
	}
	n, err := r.store.CountParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}
	want := models.RoomWaiting
	if n >= room.Capacity {
		want = models.RoomFull
	}
	if want != room.Status {
		if err := r.store.SetRoomStatus(ctx, roomID, want); err != nil {
			return nil, err
		}
		room.Status = want
	}
	return room, nil
}
