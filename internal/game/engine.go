// internal/game/engine.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/jason-s-yu/gridclash/internal/store"
	"github.com/sirupsen/logrus"
)

// Change kinds published by the engine.
const (
	ChangeGameUpdated  = "game_updated"
	ChangeMatchUpdated = minigame.ChangeMatchUpdated
	ChangeRoomUpdated  = "room_updated"
)

// maxStaleRetries bounds the read/compare/write loop around a board update.
const maxStaleRetries = 8

// Engine is the board state machine. It holds no game state of its own: every method reads
// from the store and writes back conditionally, so any number of engines may share a store.
type Engine struct {
	store store.Store
	pub   feed.Publisher
	log   logrus.FieldLogger

	Rand    minigame.Rand
	Now     func() time.Time
	Actions models.ActionRecorder

	// Kinds is the mini-game set a challenge draws from.
	Kinds []minigame.Kind

	// OnMatchCreated runs after a match is persisted, e.g. to arm its countdown.
	OnMatchCreated func(m *models.Match)
}

func NewEngine(st store.Store, pub feed.Publisher, logger logrus.FieldLogger) *Engine {
	return &Engine{
		store: st,
		pub:   pub,
		log:   logger,
		Rand:  minigame.DefaultRand,
		Now:   time.Now,
		Kinds: minigame.Kinds,
	}
}

func (e *Engine) record(ctx context.Context, gameID, actor uuid.UUID, actionType string, payload map[string]interface{}) {
	if e.Actions == nil {
		return
	}
	rec := models.NewActionRecord(gameID, actor, actionType, payload)
	if err := e.Actions.Record(ctx, rec); err != nil {
		e.log.WithError(err).WithField("action", actionType).Warn("failed to record action")
	}
}

func (e *Engine) notify(ctx context.Context, changes ...feed.Change) {
	feed.Notify(ctx, e.pub, e.log, changes...)
}
