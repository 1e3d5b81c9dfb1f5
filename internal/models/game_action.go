// internal/models/game_action.go
package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action types recorded to the game history.
const (
	ActionGameStarted      = "game_started"
	ActionSquareChallenged = "square_challenged"
	ActionMoveSubmitted    = "move_submitted"
	ActionMatchResolved    = "match_resolved"
	ActionCellClaimed      = "cell_claimed"
	ActionGameEnded        = "game_ended"
)

// ActionRecord captures one engine transition for the historian.
type ActionRecord struct {
	ID            uuid.UUID              `json:"id"`
	GameID        uuid.UUID              `json:"game_id"`
	ActorPlayerID uuid.NullUUID          `json:"actor_player_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// NewActionRecord stamps a record with a time-ordered id.
func NewActionRecord(gameID uuid.UUID, actor uuid.UUID, actionType string, payload map[string]interface{}) ActionRecord {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	rec := ActionRecord{
		ID:            id,
		GameID:        gameID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if actor != uuid.Nil {
		rec.ActorPlayerID = uuid.NullUUID{UUID: actor, Valid: true}
	}
	return rec
}

// ActionRecorder receives history records. Implemented by cache.ActionQueue and
// database.PgStore.
type ActionRecorder interface {
	Record(ctx context.Context, rec ActionRecord) error
}
