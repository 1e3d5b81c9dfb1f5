// internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/models"
)

// Memory is an in-process Store guarded by a single mutex. It backs tests and single-node
// deployments started with STORE_BACKEND=memory.
type Memory struct {
	mu           sync.Mutex
	players      map[uuid.UUID]*models.Player
	bySession    map[string]uuid.UUID
	rooms        map[uuid.UUID]*models.Room
	roomsByCode  map[string]uuid.UUID
	participants map[uuid.UUID]map[uuid.UUID]time.Time
	games        map[uuid.UUID]*models.Game
	matches      map[uuid.UUID]*models.Match

	now func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		players:      make(map[uuid.UUID]*models.Player),
		bySession:    make(map[string]uuid.UUID),
		rooms:        make(map[uuid.UUID]*models.Room),
		roomsByCode:  make(map[string]uuid.UUID),
		participants: make(map[uuid.UUID]map[uuid.UUID]time.Time),
		games:        make(map[uuid.UUID]*models.Game),
		matches:      make(map[uuid.UUID]*models.Match),
		now:          time.Now,
	}
}

func copyPlayer(p *models.Player) *models.Player {
	c := *p
	return &c
}

func copyRoom(r *models.Room) *models.Room {
	c := *r
	return &c
}

func (m *Memory) UpsertPlayer(_ context.Context, sessionKey, displayName string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.bySession[sessionKey]; ok {
		p := m.players[id]
		if displayName != "" {
			p.DisplayName = displayName
		}
		p.LastActive = m.now()
		return copyPlayer(p), nil
	}

	p := &models.Player{
		ID:          uuid.New(),
		SessionKey:  sessionKey,
		DisplayName: displayName,
		LastActive:  m.now(),
	}
	m.players[p.ID] = p
	m.bySession[sessionKey] = p.ID
	return copyPlayer(p), nil
}

func (m *Memory) GetPlayer(_ context.Context, id uuid.UUID) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, models.ErrNotFound)
	}
	return copyPlayer(p), nil
}

func (m *Memory) SetPlayerRoom(_ context.Context, playerID, roomID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("player %s: %w", playerID, models.ErrNotFound)
	}
	if !p.InRoom(roomID) {
		p.Team = models.SideNone
		p.Ready = false
	}
	p.RoomID = uuid.NullUUID{UUID: roomID, Valid: true}
	p.LastActive = m.now()
	return nil
}

func (m *Memory) ClearPlayerRoom(_ context.Context, playerID, roomID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("player %s: %w", playerID, models.ErrNotFound)
	}
	if !p.InRoom(roomID) {
		return nil
	}
	p.RoomID = uuid.NullUUID{}
	p.Team = models.SideNone
	p.Ready = false
	p.LastActive = m.now()
	return nil
}

func (m *Memory) SetPlayerTeam(_ context.Context, playerID uuid.UUID, side models.Side, limit int) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", playerID, models.ErrNotFound)
	}
	if !p.RoomID.Valid {
		return nil, models.ErrNotInRoom
	}
	if side.Valid() {
		count := 0
		for _, other := range m.players {
			if other.ID != p.ID && other.InRoom(p.RoomID.UUID) && other.Team == side {
				count++
			}
		}
		if count >= limit {
			return nil, models.ErrTeamFull
		}
	}
	p.Team = side
	p.Ready = false
	p.LastActive = m.now()
	return copyPlayer(p), nil
}

func (m *Memory) ToggleReady(_ context.Context, playerID uuid.UUID) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", playerID, models.ErrNotFound)
	}
	if !p.RoomID.Valid {
		return nil, models.ErrNotInRoom
	}
	p.Ready = !p.Ready
	p.LastActive = m.now()
	return copyPlayer(p), nil
}

func (m *Memory) SetRoomReady(_ context.Context, roomID uuid.UUID, ready bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for pid := range m.participants[roomID] {
		p := m.players[pid]
		if p != nil && p.Ready != ready {
			p.Ready = ready
			changed++
		}
	}
	return changed, nil
}

func (m *Memory) ListRoster(_ context.Context, roomID uuid.UUID) ([]*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	joined := m.participants[roomID]
	roster := make([]*models.Player, 0, len(joined))
	for pid := range joined {
		if p, ok := m.players[pid]; ok {
			roster = append(roster, copyPlayer(p))
		}
	}
	sort.Slice(roster, func(i, j int) bool {
		ti, tj := joined[roster[i].ID], joined[roster[j].ID]
		if ti.Equal(tj) {
			return roster[i].ID.String() < roster[j].ID.String()
		}
		return ti.Before(tj)
	})
	return roster, nil
}

func (m *Memory) InsertRoom(_ context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.roomsByCode[room.Code]; taken {
		return models.ErrCodeTaken
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = m.now()
	}
	m.rooms[room.ID] = copyRoom(room)
	m.roomsByCode[room.Code] = room.ID
	return nil
}

func (m *Memory) RoomCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.roomsByCode[code]
	return ok, nil
}

func (m *Memory) GetRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, models.ErrNotFound)
	}
	return copyRoom(r), nil
}

func (m *Memory) GetRoomByCode(_ context.Context, code string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.roomsByCode[code]
	if !ok {
		return nil, fmt.Errorf("room code %q: %w", code, models.ErrNotFound)
	}
	return copyRoom(m.rooms[id]), nil
}

func (m *Memory) SetRoomStatus(_ context.Context, id uuid.UUID, status models.RoomStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return fmt.Errorf("room %s: %w", id, models.ErrNotFound)
	}
	r.Status = status
	return nil
}

func (m *Memory) AddParticipant(_ context.Context, roomID, playerID uuid.UUID, capacity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return false, fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
	}
	joined := m.participants[roomID]
	if joined == nil {
		joined = make(map[uuid.UUID]time.Time)
		m.participants[roomID] = joined
	}
	if _, ok := joined[playerID]; ok {
		return false, nil
	}
	if len(joined) >= capacity {
		return false, models.ErrFull
	}
	joined[playerID] = m.now()
	return true, nil
}

func (m *Memory) RemoveParticipant(_ context.Context, roomID, playerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	joined := m.participants[roomID]
	if _, ok := joined[playerID]; !ok {
		return false, nil
	}
	delete(joined, playerID)
	return true, nil
}

func (m *Memory) TransferHost(_ context.Context, roomID, from, to uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return false, fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
	}
	if r.HostPlayerID != from {
		return false, nil
	}
	r.HostPlayerID = to
	return true, nil
}

func (m *Memory) CountParticipants(_ context.Context, roomID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[roomID]), nil
}

func (m *Memory) CreateGame(_ context.Context, g *models.Game) (*models.Game, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.games {
		if existing.RoomID == g.RoomID && !existing.Terminal() {
			return existing.Clone(), false, nil
		}
	}
	now := m.now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	m.games[g.ID] = g.Clone()
	return g.Clone(), true, nil
}

func (m *Memory) CurrentGame(_ context.Context, roomID uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Game
	for _, g := range m.games {
		if g.RoomID != roomID {
			continue
		}
		if latest == nil || g.CreatedAt.After(latest.CreatedAt) {
			latest = g
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("game for room %s: %w", roomID, models.ErrNotFound)
	}
	return latest.Clone(), nil
}

func (m *Memory) GetGame(_ context.Context, id uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", id, models.ErrNotFound)
	}
	return g.Clone(), nil
}

func (m *Memory) UpdateGame(_ context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[g.ID]
	if !ok {
		return fmt.Errorf("game %s: %w", g.ID, models.ErrNotFound)
	}
	if cur.Version != g.Version {
		return models.ErrStale
	}
	g.Version++
	g.UpdatedAt = m.now()
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *Memory) CreateMatch(_ context.Context, match *models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.matches {
		if existing.GameID == match.GameID && existing.Square == match.Square && existing.Open() {
			return models.ErrSquareContested
		}
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = m.now()
	}
	m.matches[match.ID] = match.Clone()
	return nil
}

func (m *Memory) GetMatch(_ context.Context, id uuid.UUID) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, models.ErrNotFound)
	}
	return match.Clone(), nil
}

func (m *Memory) ListOpenMatches(_ context.Context, gameID uuid.UUID) ([]*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open []*models.Match
	for _, match := range m.matches {
		if match.GameID == gameID && match.Open() {
			open = append(open, match.Clone())
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Square < open[j].Square })
	return open, nil
}

func (m *Memory) UpdateMatchState(_ context.Context, match *models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.matches[match.ID]
	if !ok {
		return fmt.Errorf("match %s: %w", match.ID, models.ErrNotFound)
	}
	if !cur.Open() {
		return models.ErrMatchClosed
	}
	if cur.Version != match.Version {
		return models.ErrStale
	}
	match.Version++
	cur.State = append(cur.State[:0:0], match.State...)
	cur.Version = match.Version
	return nil
}

func (m *Memory) CompleteMatch(_ context.Context, id uuid.UUID, winner models.Side) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.matches[id]
	if !ok {
		return false, fmt.Errorf("match %s: %w", id, models.ErrNotFound)
	}
	if !cur.Open() {
		return false, nil
	}
	now := m.now()
	cur.Status = models.MatchCompleted
	cur.Winner = winner
	cur.CompletedAt = &now
	cur.Version++
	return true, nil
}

func (m *Memory) CancelOpenMatches(_ context.Context, gameID uuid.UUID) ([]*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var cancelled []*models.Match
	for _, cur := range m.matches {
		if cur.GameID != gameID || !cur.Open() {
			continue
		}
		cur.Status = models.MatchCancelled
		cur.CompletedAt = &now
		cur.Version++
		cancelled = append(cancelled, cur.Clone())
	}
	sort.Slice(cancelled, func(i, j int) bool { return cancelled[i].Square < cancelled[j].Square })
	return cancelled, nil
}

var _ Store = (*Memory)(nil)
