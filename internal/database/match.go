// internal/database/match.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/gridclash/internal/models"
)

// openMatch is the predicate shared with the matches_open_square index.
const openMatch = `status NOT IN ('completed', 'cancelled')`

const matchColumns = `id, game_id, square, rep_a, rep_b, kind, status, state, winner, version, created_at, completed_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	var square int16
	var status, winner string
	var state []byte
	err := row.Scan(&m.ID, &m.GameID, &square, &m.RepA, &m.RepB, &m.Kind, &status, &state,
		&winner, &m.Version, &m.CreatedAt, &m.CompletedAt)
	if err != nil {
		return nil, err
	}
	m.Square = int(square)
	m.Status = models.MatchStatus(status)
	m.Winner = models.Side(winner)
	m.State = state
	return &m, nil
}

// CreateMatch maps a matches_open_square violation to ErrSquareContested.
func (s *PgStore) CreateMatch(ctx context.Context, m *models.Match) error {
	q := `
	INSERT INTO matches (id, game_id, square, rep_a, rep_b, kind, status, state, winner, version)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, q,
		m.ID, m.GameID, int16(m.Square), m.RepA, m.RepB, m.Kind, string(m.Status), []byte(m.State),
		string(m.Winner), m.Version,
	).Scan(&m.CreatedAt)
	if uniqueConstraint(err) == "matches_open_square" {
		return models.ErrSquareContested
	}
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (s *PgStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m, err := scanMatch(s.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (s *PgStore) ListOpenMatches(ctx context.Context, gameID uuid.UUID) ([]*models.Match, error) {
	q := `SELECT ` + matchColumns + ` FROM matches WHERE game_id = $1 AND ` + openMatch + ` ORDER BY square`
	rows, err := s.pool.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("list open matches: %w", err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PgStore) UpdateMatchState(ctx context.Context, m *models.Match) error {
	q := `
	UPDATE matches SET state = $2, version = version + 1
	WHERE id = $1 AND version = $3 AND ` + openMatch + `
	RETURNING version
	`
	err := s.pool.QueryRow(ctx, q, m.ID, []byte(m.State), m.Version).Scan(&m.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		cur, getErr := s.GetMatch(ctx, m.ID)
		if getErr != nil {
			return getErr
		}
		if !cur.Open() {
			return models.ErrMatchClosed
		}
		return models.ErrStale
	}
	if err != nil {
		return fmt.Errorf("update match state: %w", err)
	}
	return nil
}

func (s *PgStore) CompleteMatch(ctx context.Context, id uuid.UUID, winner models.Side) (bool, error) {
	q := `
	UPDATE matches
	SET status = 'completed', winner = $2, completed_at = NOW(), version = version + 1
	WHERE id = $1 AND ` + openMatch + `
	`
	ct, err := s.pool.Exec(ctx, q, id, string(winner))
	if err != nil {
		return false, fmt.Errorf("complete match: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, getErr := s.GetMatch(ctx, id); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	return true, nil
}

// CancelOpenMatches closes the game's leftover matches so their squares and timers are released.
func (s *PgStore) CancelOpenMatches(ctx context.Context, gameID uuid.UUID) ([]*models.Match, error) {
	q := `
	UPDATE matches
	SET status = 'cancelled', completed_at = NOW(), version = version + 1
	WHERE game_id = $1 AND ` + openMatch + `
	RETURNING ` + matchColumns
	rows, err := s.pool.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("cancel open matches: %w", err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
