// internal/handlers/snapshot.go
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/lobby"
	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/models"
)

// RoomSnapshot is everything a client in the lobby or on the board needs to render a room.
type RoomSnapshot struct {
	Room          *models.Room     `json:"room"`
	Roster        []*models.Player `json:"roster"`
	Game          *models.Game     `json:"game,omitempty"`
	Matches       []*models.Match  `json:"matches"`
	CanStart      bool             `json:"can_start"`
	CanForceStart bool             `json:"can_force_start"`
}

// GameSnapshot is a game with its open matches.
type GameSnapshot struct {
	Game    *models.Game    `json:"game"`
	Matches []*models.Match `json:"matches"`
}

// snapshot re-reads the record behind key as seen by viewerID.
func (s *Server) snapshot(ctx context.Context, viewerID uuid.UUID, key feed.Key) (interface{}, error) {
	switch key.Scope {
	case feed.ScopeRoom:
		return s.roomSnapshot(ctx, viewerID, key.ID)
	case feed.ScopeGame:
		return s.gameSnapshot(ctx, viewerID, key.ID)
	case feed.ScopeMatch:
		m, err := s.store.GetMatch(ctx, key.ID)
		if err != nil {
			return nil, err
		}
		return s.viewMatch(ctx, viewerID, m)
	case feed.ScopePlayer:
		if key.ID != viewerID {
			return nil, fmt.Errorf("%w: players can only watch themselves", models.ErrUnauthorized)
		}
		return s.store.GetPlayer(ctx, key.ID)
	}
	return nil, fmt.Errorf("%w: unknown scope %q", models.ErrInvalidMove, key.Scope)
}

func (s *Server) roomSnapshot(ctx context.Context, viewerID, roomID uuid.UUID) (*RoomSnapshot, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	roster, err := s.lobby.Roster(ctx, roomID)
	if err != nil {
		return nil, err
	}
	tally := lobby.Count(roster)
	snap := &RoomSnapshot{
		Room:          room,
		Roster:        roster,
		Matches:       []*models.Match{},
		CanStart:      tally.CanStart(),
		CanForceStart: tally.CanForceStart(),
	}

	g, err := s.store.CurrentGame(ctx, roomID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return snap, nil
	case err != nil:
		return nil, err
	}
	snap.Game = g
	if snap.Matches, err = s.openMatches(ctx, viewerID, g.ID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Server) gameSnapshot(ctx context.Context, viewerID, gameID uuid.UUID) (*GameSnapshot, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	matches, err := s.openMatches(ctx, viewerID, gameID)
	if err != nil {
		return nil, err
	}
	return &GameSnapshot{Game: g, Matches: matches}, nil
}

func (s *Server) openMatches(ctx context.Context, viewerID, gameID uuid.UUID) ([]*models.Match, error) {
	open, err := s.store.ListOpenMatches(ctx, gameID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Match, 0, len(open))
	for _, m := range open {
		v, err := s.viewMatch(ctx, viewerID, m)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// viewMatch redacts m for the side the viewer plays for: their own representative seat if
// they hold one, otherwise their team.
func (s *Server) viewMatch(ctx context.Context, viewerID uuid.UUID, m *models.Match) (*models.Match, error) {
	side := m.SideOf(viewerID)
	if side == models.SideNone {
		p, err := s.store.GetPlayer(ctx, viewerID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		if p != nil {
			side = p.Team
		}
	}
	return minigame.View(m, side, s.now())
}
