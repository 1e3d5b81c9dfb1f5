// internal/game/start.go
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/lobby"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/sirupsen/logrus"
)

// StartGame begins a game in the room. Any participant may start once both sides have three
// ready players; with force the host may start as soon as each side has one player, and every
// participant is marked ready first. If the room already has a running game it is returned.
func (e *Engine) StartGame(ctx context.Context, roomID, actorID uuid.UUID, force bool) (*models.Game, error) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	actor, err := e.store.GetPlayer(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.InRoom(roomID) {
		return nil, fmt.Errorf("%w: player %s is not in room %s", models.ErrUnauthorized, actorID, roomID)
	}

	cur, err := e.store.CurrentGame(ctx, roomID)
	switch {
	case err == nil && !cur.Terminal():
		return cur, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	roster, err := e.store.ListRoster(ctx, roomID)
	if err != nil {
		return nil, err
	}
	tally := lobby.Count(roster)

	if force {
		if actorID != room.HostPlayerID {
			return nil, fmt.Errorf("%w: only the host can force start", models.ErrUnauthorized)
		}
		if !tally.CanForceStart() {
			return nil, fmt.Errorf("%w: each side needs at least one player", models.ErrNotEligible)
		}
		if _, err := e.store.SetRoomReady(ctx, roomID, true); err != nil {
			return nil, err
		}
	} else if !tally.CanStart() {
		return nil, fmt.Errorf("%w: need %d ready players per side (A %d, B %d)",
			models.ErrNotEligible, models.TeamSize, tally.ReadyA, tally.ReadyB)
	}

	g, created, err := e.store.CreateGame(ctx, &models.Game{
		ID:     uuid.New(),
		RoomID: roomID,
		Turn:   models.SideA,
		Status: models.GameInProgress,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return g, nil
	}

	if err := e.store.SetRoomStatus(ctx, roomID, models.RoomInProgress); err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"room_id": roomID,
		"game_id": g.ID,
		"forced":  force,
	}).Info("game started")
	e.record(ctx, g.ID, actorID, models.ActionGameStarted, map[string]interface{}{
		"room_id": roomID,
		"forced":  force,
	})
	e.notify(ctx,
		feed.NewChange(feed.ScopeRoom, roomID, ChangeRoomUpdated),
		feed.NewChange(feed.ScopeGame, g.ID, ChangeGameUpdated),
	)
	return g, nil
}
