// internal/game/resolve.go
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/sirupsen/logrus"
)

// ResolveMatch records the winner of a match exactly once and applies it to the board.
// Later calls leave the recorded winner unchanged; they only retry the board apply, which is
// itself a no-op once the square is taken.
func (e *Engine) ResolveMatch(ctx context.Context, matchID uuid.UUID, winner models.Side) (*models.Match, error) {
	if !winner.Valid() {
		return nil, fmt.Errorf("%w: winner must be A or B", models.ErrInvalidMove)
	}
	applied, err := e.store.CompleteMatch(ctx, matchID, winner)
	if err != nil {
		return nil, err
	}
	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if applied {
		e.log.WithFields(logrus.Fields{
			"game_id":  m.GameID,
			"match_id": m.ID,
			"square":   m.Square,
			"winner":   m.Winner,
		}).Info("match resolved")
		e.record(ctx, m.GameID, uuid.Nil, models.ActionMatchResolved, map[string]interface{}{
			"match_id": m.ID,
			"square":   m.Square,
			"winner":   m.Winner,
		})
		e.notify(ctx, feed.NewChange(feed.ScopeMatch, m.ID, ChangeMatchUpdated))
	}

	if m.Status == models.MatchCancelled {
		return m, nil
	}
	if _, _, err := e.applyResult(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// applyResult writes the match winner into its cell if the cell is still empty, flips the turn
// and evaluates the end of the game. It reports whether the board changed.
func (e *Engine) applyResult(ctx context.Context, m *models.Match) (*models.Game, bool, error) {
	for attempt := 0; attempt < maxStaleRetries; attempt++ {
		g, err := e.store.GetGame(ctx, m.GameID)
		if err != nil {
			return nil, false, err
		}
		if g.Terminal() || !g.Board.Empty(m.Square) {
			return g, false, nil
		}

		g.Board[m.Square] = m.Winner
		g.Turn = g.Turn.Other()
		if w := DetectWin(g.Board); w != models.SideNone {
			g.Status = models.GameEnded
			g.Winner = w
		} else if g.Board.Full() {
			g.Status = models.GameEnded
			g.Draw = true
		}

		err = e.store.UpdateGame(ctx, g)
		if errors.Is(err, models.ErrStale) {
			continue
		}
		if err != nil {
			return nil, false, err
		}

		e.record(ctx, g.ID, uuid.Nil, models.ActionCellClaimed, map[string]interface{}{
			"square": m.Square,
			"side":   m.Winner,
			"turn":   g.Turn,
		})
		e.notify(ctx, feed.NewChange(feed.ScopeGame, g.ID, ChangeGameUpdated))
		if g.Terminal() {
			if err := e.finish(ctx, g); err != nil {
				return nil, false, err
			}
		}
		return g, true, nil
	}
	return nil, false, fmt.Errorf("apply match %s: %w", m.ID, models.ErrStale)
}

// finish closes the room's round: the room is marked finished and ready flags are cleared so
// the next game needs a fresh ready-up. Matches still open on other squares are cancelled.
func (e *Engine) finish(ctx context.Context, g *models.Game) error {
	if err := e.store.SetRoomStatus(ctx, g.RoomID, models.RoomFinished); err != nil {
		return err
	}
	if _, err := e.store.SetRoomReady(ctx, g.RoomID, false); err != nil {
		return err
	}
	leftover, err := e.store.CancelOpenMatches(ctx, g.ID)
	if err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"game_id":   g.ID,
		"room_id":   g.RoomID,
		"winner":    g.Winner,
		"draw":      g.Draw,
		"cancelled": len(leftover),
	}).Info("game ended")
	for _, m := range leftover {
		e.notify(ctx, feed.NewChange(feed.ScopeMatch, m.ID, ChangeMatchUpdated))
	}
	e.record(ctx, g.ID, uuid.Nil, models.ActionGameEnded, map[string]interface{}{
		"winner": g.Winner,
		"draw":   g.Draw,
	})
	e.notify(ctx, feed.NewChange(feed.ScopeRoom, g.RoomID, ChangeRoomUpdated))
	return nil
}
