// internal/database/room.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/gridclash/internal/models"
)

const roomColumns = `id, name, code, host_player_id, capacity, status, created_at`

func scanRoom(row rowScanner) (*models.Room, error) {
	var r models.Room
	var status string
	if err := row.Scan(&r.ID, &r.Name, &r.Code, &r.HostPlayerID, &r.Capacity, &status, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = models.RoomStatus(status)
	return &r, nil
}

// InsertRoom creates a new room row. A code collision maps to ErrCodeTaken.
func (s *PgStore) InsertRoom(ctx context.Context, room *models.Room) error {
	q := `
	INSERT INTO rooms (id, name, code, host_player_id, capacity, status)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, q,
		room.ID, room.Name, room.Code, room.HostPlayerID, room.Capacity, string(room.Status),
	).Scan(&room.CreatedAt)
	if uniqueConstraint(err) == "rooms_code_key" {
		return models.ErrCodeTaken
	}
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *PgStore) RoomCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("room code lookup: %w", err)
	}
	return exists, nil
}

func (s *PgStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	r, err := scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("room %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return r, nil
}

func (s *PgStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	r, err := scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("room code %q: %w", code, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get room by code: %w", err)
	}
	return r, nil
}

func (s *PgStore) SetRoomStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error {
	ct, err := s.pool.Exec(ctx, `UPDATE rooms SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("set room status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("room %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// AddParticipant locks the room row, then inserts only if the player is new and a seat is free.
func (s *PgStore) AddParticipant(ctx context.Context, roomID, playerID uuid.UUID, capacity int) (bool, error) {
	added := false
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, roomID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
			}
			return err
		}

		var exists bool
		q := `SELECT EXISTS (SELECT 1 FROM room_participants WHERE room_id = $1 AND player_id = $2)`
		if err := tx.QueryRow(ctx, q, roomID, playerID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM room_participants WHERE room_id = $1`, roomID).Scan(&count); err != nil {
			return err
		}
		if count >= capacity {
			return models.ErrFull
		}

		if _, err := tx.Exec(ctx, `INSERT INTO room_participants (room_id, player_id) VALUES ($1, $2)`, roomID, playerID); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("add participant: %w", err)
	}
	return added, nil
}

func (s *PgStore) RemoveParticipant(ctx context.Context, roomID, playerID uuid.UUID) (bool, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM room_participants WHERE room_id = $1 AND player_id = $2`, roomID, playerID)
	if err != nil {
		return false, fmt.Errorf("remove participant: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// TransferHost is conditional on the current host so two departures cannot both hand it off.
func (s *PgStore) TransferHost(ctx context.Context, roomID, from, to uuid.UUID) (bool, error) {
	ct, err := s.pool.Exec(ctx, `UPDATE rooms SET host_player_id = $3 WHERE id = $1 AND host_player_id = $2`, roomID, from, to)
	if err != nil {
		return false, fmt.Errorf("transfer host: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *PgStore) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM room_participants WHERE room_id = $1`, roomID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}
