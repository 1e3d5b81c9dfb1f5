// internal/database/action.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/gridclash/internal/models"
)

// InsertActionsTx writes a batch of history records inside tx. Duplicate ids are skipped so a
// redelivered batch is harmless.
func InsertActionsTx(ctx context.Context, tx pgx.Tx, records []models.ActionRecord) error {
	q := `
	INSERT INTO game_actions (id, game_id, actor_player_id, action_type, action_payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
	`
	batch := &pgx.Batch{}
	for _, rec := range records {
		payload, err := json.Marshal(rec.ActionPayload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		batch.Queue(q, rec.ID, rec.GameID, rec.ActorPlayerID, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
	}
	return tx.SendBatch(ctx, batch).Close()
}

// Record writes one history record synchronously. Servers without a Redis queue use this in
// place of the historian.
func (s *PgStore) Record(ctx context.Context, rec models.ActionRecord) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return InsertActionsTx(ctx, tx, []models.ActionRecord{rec})
	})
}

var _ models.ActionRecorder = (*PgStore)(nil)
