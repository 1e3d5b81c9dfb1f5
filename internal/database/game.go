// internal/database/game.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/gridclash/internal/models"
)

const gameColumns = `id, room_id, board, turn, status, winner, is_draw, version, created_at, updated_at`

func scanGame(row rowScanner) (*models.Game, error) {
	var g models.Game
	var board, turn, status, winner string
	if err := row.Scan(&g.ID, &g.RoomID, &board, &turn, &status, &winner, &g.Draw, &g.Version, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	b, err := models.ParseBoard(board)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", g.ID, err)
	}
	g.Board = b
	g.Turn = models.Side(turn)
	g.Status = models.GameStatus(status)
	g.Winner = models.Side(winner)
	return &g, nil
}

// CreateGame relies on the games_one_active_per_room partial index: a losing racer gets
// the already-active game back instead of an error.
func (s *PgStore) CreateGame(ctx context.Context, g *models.Game) (*models.Game, bool, error) {
	q := `
	INSERT INTO games (id, room_id, board, turn, status, winner, is_draw, version)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (room_id) WHERE status <> 'ended' DO NOTHING
	RETURNING ` + gameColumns
	created, err := scanGame(s.pool.QueryRow(ctx, q,
		g.ID, g.RoomID, g.Board.String(), string(g.Turn), string(g.Status), string(g.Winner), g.Draw, g.Version,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert game: %w", err)
	}

	q = `SELECT ` + gameColumns + ` FROM games WHERE room_id = $1 AND status <> 'ended'`
	existing, err := scanGame(s.pool.QueryRow(ctx, q, g.RoomID))
	if err != nil {
		return nil, false, fmt.Errorf("load active game: %w", err)
	}
	return existing, false, nil
}

func (s *PgStore) CurrentGame(ctx context.Context, roomID uuid.UUID) (*models.Game, error) {
	q := `SELECT ` + gameColumns + ` FROM games WHERE room_id = $1 ORDER BY created_at DESC LIMIT 1`
	g, err := scanGame(s.pool.QueryRow(ctx, q, roomID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game for room %s: %w", roomID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("current game: %w", err)
	}
	return g, nil
}

func (s *PgStore) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	g, err := scanGame(s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

// UpdateGame is a compare-and-swap on the version column.
func (s *PgStore) UpdateGame(ctx context.Context, g *models.Game) error {
	q := `
	UPDATE games
	SET board = $2, turn = $3, status = $4, winner = $5, is_draw = $6,
	    version = version + 1, updated_at = NOW()
	WHERE id = $1 AND version = $7
	RETURNING version, updated_at
	`
	err := s.pool.QueryRow(ctx, q,
		g.ID, g.Board.String(), string(g.Turn), string(g.Status), string(g.Winner), g.Draw, g.Version,
	).Scan(&g.Version, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetGame(ctx, g.ID); getErr != nil {
			return getErr
		}
		return models.ErrStale
	}
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}
