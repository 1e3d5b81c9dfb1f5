// internal/database/player.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/gridclash/internal/models"
)

const playerColumns = `id, session_key, display_name, team, is_ready, room_id, last_active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	var p models.Player
	var team string
	if err := row.Scan(&p.ID, &p.SessionKey, &p.DisplayName, &team, &p.Ready, &p.RoomID, &p.LastActive); err != nil {
		return nil, err
	}
	p.Team = models.Side(team)
	return &p, nil
}

// UpsertPlayer inserts on first contact and otherwise refreshes last_active (and the name if given).
func (s *PgStore) UpsertPlayer(ctx context.Context, sessionKey, displayName string) (*models.Player, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate player id: %w", err)
	}
	q := `
	INSERT INTO players (id, session_key, display_name)
	VALUES ($1, $2, $3)
	ON CONFLICT (session_key) DO UPDATE
	SET display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), players.display_name),
	    last_active = NOW()
	RETURNING ` + playerColumns
	p, err := scanPlayer(s.pool.QueryRow(ctx, q, id, sessionKey, displayName))
	if err != nil {
		return nil, fmt.Errorf("upsert player: %w", err)
	}
	return p, nil
}

func (s *PgStore) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	q := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	p, err := scanPlayer(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *PgStore) SetPlayerRoom(ctx context.Context, playerID, roomID uuid.UUID) error {
	q := `
	UPDATE players
	SET team = CASE WHEN room_id IS NOT DISTINCT FROM $2 THEN team ELSE '' END,
	    is_ready = CASE WHEN room_id IS NOT DISTINCT FROM $2 THEN is_ready ELSE FALSE END,
	    room_id = $2,
	    last_active = NOW()
	WHERE id = $1
	`
	ct, err := s.pool.Exec(ctx, q, playerID, roomID)
	if err != nil {
		return fmt.Errorf("set player room: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("player %s: %w", playerID, models.ErrNotFound)
	}
	return nil
}

func (s *PgStore) ClearPlayerRoom(ctx context.Context, playerID, roomID uuid.UUID) error {
	q := `
	UPDATE players
	SET room_id = NULL, team = '', is_ready = FALSE, last_active = NOW()
	WHERE id = $1 AND room_id = $2
	`
	if _, err := s.pool.Exec(ctx, q, playerID, roomID); err != nil {
		return fmt.Errorf("clear player room: %w", err)
	}
	return nil
}

// SetPlayerTeam locks the room row so two concurrent joins cannot both take the last seat.
func (s *PgStore) SetPlayerTeam(ctx context.Context, playerID uuid.UUID, side models.Side, limit int) (*models.Player, error) {
	var out *models.Player
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var roomID uuid.NullUUID
		if err := tx.QueryRow(ctx, `SELECT room_id FROM players WHERE id = $1`, playerID).Scan(&roomID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("player %s: %w", playerID, models.ErrNotFound)
			}
			return err
		}
		if !roomID.Valid {
			return models.ErrNotInRoom
		}
		if _, err := tx.Exec(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, roomID.UUID); err != nil {
			return err
		}
		if side.Valid() {
			var count int
			q := `SELECT COUNT(*) FROM players WHERE room_id = $1 AND team = $2 AND id <> $3`
			if err := tx.QueryRow(ctx, q, roomID.UUID, string(side), playerID).Scan(&count); err != nil {
				return err
			}
			if count >= limit {
				return models.ErrTeamFull
			}
		}
		q := `
		UPDATE players SET team = $2, is_ready = FALSE, last_active = NOW()
		WHERE id = $1
		RETURNING ` + playerColumns
		p, err := scanPlayer(tx.QueryRow(ctx, q, playerID, string(side)))
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set player team: %w", err)
	}
	return out, nil
}

func (s *PgStore) ToggleReady(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	q := `
	UPDATE players SET is_ready = NOT is_ready, last_active = NOW()
	WHERE id = $1 AND room_id IS NOT NULL
	RETURNING ` + playerColumns
	p, err := scanPlayer(s.pool.QueryRow(ctx, q, playerID))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetPlayer(ctx, playerID); getErr != nil {
			return nil, getErr
		}
		return nil, models.ErrNotInRoom
	}
	if err != nil {
		return nil, fmt.Errorf("toggle ready: %w", err)
	}
	return p, nil
}

func (s *PgStore) SetRoomReady(ctx context.Context, roomID uuid.UUID, ready bool) (int, error) {
	q := `
	UPDATE players p SET is_ready = $2
	FROM room_participants rp
	WHERE rp.room_id = $1 AND rp.player_id = p.id AND p.is_ready <> $2
	`
	ct, err := s.pool.Exec(ctx, q, roomID, ready)
	if err != nil {
		return 0, fmt.Errorf("set room ready: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (s *PgStore) ListRoster(ctx context.Context, roomID uuid.UUID) ([]*models.Player, error) {
	q := `
	SELECT p.id, p.session_key, p.display_name, p.team, p.is_ready, p.room_id, p.last_active
	FROM room_participants rp
	JOIN players p ON p.id = rp.player_id
	WHERE rp.room_id = $1
	ORDER BY rp.joined_at, p.id
	`
	rows, err := s.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var roster []*models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		roster = append(roster, p)
	}
	return roster, rows.Err()
}
