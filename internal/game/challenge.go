// internal/game/challenge.go
package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/sirupsen/logrus"
)

// ChallengeSquare opens a match for an empty square on behalf of the side whose turn it is.
// One representative per side and the mini-game kind are drawn uniformly.
func (e *Engine) ChallengeSquare(ctx context.Context, gameID, actorID uuid.UUID, square int) (*models.Match, error) {
	if !models.ValidSquare(square) {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidSquare, square)
	}
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Terminal() {
		return nil, models.ErrGameOver
	}
	actor, err := e.store.GetPlayer(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.InRoom(g.RoomID) {
		return nil, fmt.Errorf("%w: player %s is not in this game's room", models.ErrUnauthorized, actorID)
	}
	if actor.Team != g.Turn {
		return nil, fmt.Errorf("%w: it is side %s's turn", models.ErrUnauthorized, g.Turn)
	}
	if !g.Board.Empty(square) {
		return nil, models.ErrSquareClaimed
	}

	roster, err := e.store.ListRoster(ctx, g.RoomID)
	if err != nil {
		return nil, err
	}
	var sideA, sideB []uuid.UUID
	for _, p := range roster {
		switch p.Team {
		case models.SideA:
			sideA = append(sideA, p.ID)
		case models.SideB:
			sideB = append(sideB, p.ID)
		}
	}
	if len(sideA) == 0 || len(sideB) == 0 {
		return nil, models.ErrNoOpponent
	}

	kind := minigame.Pick(e.Kinds, e.Rand)
	contest, err := minigame.New(kind, e.Now(), e.Rand)
	if err != nil {
		return nil, err
	}
	state, err := minigame.Encode(contest)
	if err != nil {
		return nil, err
	}

	m := &models.Match{
		ID:     uuid.New(),
		GameID: g.ID,
		Square: square,
		RepA:   sideA[e.Rand.IntN(len(sideA))],
		RepB:   sideB[e.Rand.IntN(len(sideB))],
		Kind:   string(kind),
		Status: models.MatchActive,
		State:  state,
	}
	if err := e.store.CreateMatch(ctx, m); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"game_id":  g.ID,
		"match_id": m.ID,
		"square":   square,
		"kind":     kind,
	}).Info("square challenged")
	e.record(ctx, g.ID, actorID, models.ActionSquareChallenged, map[string]interface{}{
		"match_id": m.ID,
		"square":   square,
		"kind":     kind,
		"rep_a":    m.RepA,
		"rep_b":    m.RepB,
	})
	e.notify(ctx,
		feed.NewChange(feed.ScopeGame, g.ID, ChangeGameUpdated),
		feed.NewChange(feed.ScopeMatch, m.ID, ChangeMatchUpdated),
	)
	if e.OnMatchCreated != nil {
		e.OnMatchCreated(m)
	}
	return m, nil
}
