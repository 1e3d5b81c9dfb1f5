// internal/lobby/team.go
package lobby

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/sirupsen/logrus"
)

// JoinTeam moves the player to side and always clears their ready flag, even when they were
// already on that side. A side holding TeamSize other players rejects with ErrTeamFull.
func (r *Registry) JoinTeam(ctx context.Context, playerID uuid.UUID, side models.Side) (*models.Player, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("join team: invalid side %q", side)
	}
	p, err := r.store.SetPlayerTeam(ctx, playerID, side, models.TeamSize)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"player_id": playerID,
		"room_id":   p.RoomID.UUID,
		"side":      side,
	}).Debug("player joined team")
	r.notifyPlayer(ctx, p)
	return p, nil
}

// ToggleReady flips the player's ready flag.
func (r *Registry) ToggleReady(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	p, err := r.store.ToggleReady(ctx, playerID)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"player_id": playerID,
		"ready":     p.Ready,
	}).Debug("ready toggled")
	r.notifyPlayer(ctx, p)
	return p, nil
}

func (r *Registry) notifyPlayer(ctx context.Context, p *models.Player) {
	changes := []feed.Change{feed.NewChange(feed.ScopePlayer, p.ID, ChangePlayerUpdated)}
	if p.RoomID.Valid {
		changes = append(changes, feed.NewChange(feed.ScopeRoom, p.RoomID.UUID, ChangeRoomUpdated))
	}
	feed.Notify(ctx, r.pub, r.log, changes...)
}
