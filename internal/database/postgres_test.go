// internal/database/postgres_test.go
package database

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/game"
	"github.com/jason-s-yu/gridclash/internal/lobby"
	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to TEST_DATABASE_URL. The schema is applied; rows from earlier runs
// are left alone since every test uses fresh ids.
func newTestStore(t *testing.T) *PgStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return NewPgStore(pool)
}

func TestPgStoreConditionalWrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	logger := logrus.New()
	reg := lobby.NewRegistry(st, feed.Nop{}, logger)
	engine := game.NewEngine(st, feed.Nop{}, logger)
	engine.Kinds = []minigame.Kind{minigame.KindHands}
	engine.Actions = st

	var players []*models.Player
	for i := 0; i < models.RoomCapacity+1; i++ {
		p, err := st.UpsertPlayer(ctx, uuid.NewString(), "p")
		require.NoError(t, err)
		players = append(players, p)
	}

	again, err := st.UpsertPlayer(ctx, "same-key-"+players[0].ID.String(), "first")
	require.NoError(t, err)
	same, err := st.UpsertPlayer(ctx, "same-key-"+players[0].ID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, again.ID, same.ID)
	assert.Equal(t, "first", same.DisplayName)

	room, err := reg.CreateRoom(ctx, "pg", players[0].ID)
	require.NoError(t, err)

	// fill the room concurrently; exactly capacity-1 joins succeed
	var wg sync.WaitGroup
	errs := make([]error, len(players))
	for i := 1; i < len(players); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = reg.JoinRoom(ctx, room.Code, players[i].ID)
		}(i)
	}
	wg.Wait()
	full := 0
	var seated []*models.Player
	seated = append(seated, players[0])
	for i := 1; i < len(players); i++ {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], models.ErrFull)
			full++
			continue
		}
		seated = append(seated, players[i])
	}
	assert.Equal(t, 1, full)
	n, err := st.CountParticipants(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomCapacity, n)

	for i, p := range seated {
		side := models.SideA
		if i%2 == 1 {
			side = models.SideB
		}
		_, err := reg.JoinTeam(ctx, p.ID, side)
		require.NoError(t, err)
		_, err = reg.ToggleReady(ctx, p.ID)
		require.NoError(t, err)
	}
	_, err = reg.JoinTeam(ctx, seated[0].ID, models.SideB)
	assert.ErrorIs(t, err, models.ErrTeamFull)

	// concurrent starts converge on one game
	games := make([]*models.Game, 4)
	for i := range games {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := engine.StartGame(ctx, room.ID, seated[i].ID, false)
			assert.NoError(t, err)
			games[i] = g
		}(i)
	}
	wg.Wait()
	for _, g := range games {
		require.NotNil(t, g)
		assert.Equal(t, games[0].ID, g.ID)
	}

	m, err := engine.ChallengeSquare(ctx, games[0].ID, seated[0].ID, 6)
	require.NoError(t, err)
	_, err = engine.ChallengeSquare(ctx, games[0].ID, seated[2].ID, 6)
	assert.ErrorIs(t, err, models.ErrSquareContested)

	stale, err := st.GetGame(ctx, games[0].ID)
	require.NoError(t, err)

	winners := []models.Side{models.SideA, models.SideB, models.SideA, models.SideB}
	for _, w := range winners {
		wg.Add(1)
		go func(w models.Side) {
			defer wg.Done()
			_, err := engine.ResolveMatch(ctx, m.ID, w)
			assert.NoError(t, err)
		}(w)
	}
	wg.Wait()

	resolved, err := st.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	g, err := st.GetGame(ctx, games[0].ID)
	require.NoError(t, err)
	assert.Equal(t, resolved.Winner, g.Board[6])
	assert.Equal(t, models.SideB, g.Turn)

	stale.Turn = models.SideA
	assert.ErrorIs(t, st.UpdateGame(ctx, stale), models.ErrStale)
}

func TestPgStoreHostTransferAndCancel(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	reg := lobby.NewRegistry(st, feed.Nop{}, logrus.New())

	host, err := st.UpsertPlayer(ctx, uuid.NewString(), "host")
	require.NoError(t, err)
	guest, err := st.UpsertPlayer(ctx, uuid.NewString(), "guest")
	require.NoError(t, err)
	room, err := reg.CreateRoom(ctx, "pg", host.ID)
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(ctx, room.Code, guest.ID)
	require.NoError(t, err)

	moved, err := st.TransferHost(ctx, room.ID, guest.ID, host.ID)
	require.NoError(t, err)
	assert.False(t, moved, "only the current host can hand off")
	moved, err = st.TransferHost(ctx, room.ID, host.ID, guest.ID)
	require.NoError(t, err)
	assert.True(t, moved)

	g, _, err := st.CreateGame(ctx, &models.Game{
		ID:     uuid.New(),
		RoomID: room.ID,
		Turn:   models.SideA,
		Status: models.GameInProgress,
	})
	require.NoError(t, err)
	newMatch := func() *models.Match {
		return &models.Match{
			ID:     uuid.New(),
			GameID: g.ID,
			Square: 3,
			RepA:   host.ID,
			RepB:   guest.ID,
			Kind:   string(minigame.KindHands),
			Status: models.MatchActive,
			State:  []byte(`{"round":1}`),
		}
	}
	m := newMatch()
	require.NoError(t, st.CreateMatch(ctx, m))

	cancelled, err := st.CancelOpenMatches(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, models.MatchCancelled, cancelled[0].Status)

	open, err := st.ListOpenMatches(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
	applied, err := st.CompleteMatch(ctx, m.ID, models.SideA)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, st.CreateMatch(ctx, newMatch()), "a cancelled match releases its square")
}
