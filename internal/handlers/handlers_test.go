// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/gridclash/internal/auth"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/game"
	"github.com/jason-s-yu/gridclash/internal/lobby"
	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/jason-s-yu/gridclash/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	t      *testing.T
	srv    *Server
	http   *httptest.Server
	store  *store.Memory
	engine *game.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, auth.Init(time.Hour)) // ephemeral keys, no DB needed

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	st := store.NewMemory()
	hub := feed.NewHub()
	reg := lobby.NewRegistry(st, hub, logger)
	engine := game.NewEngine(st, hub, logger)
	engine.Kinds = []minigame.Kind{minigame.KindHands}
	arbiter := minigame.NewArbiter(st, engine, hub, logger)
	t.Cleanup(arbiter.Stop)

	srv := NewServer(st, reg, engine, arbiter, hub, logger)
	ts := httptest.NewServer(srv.Router(RouterOptions{}))
	t.Cleanup(ts.Close)
	return &testEnv{t: t, srv: srv, http: ts, store: st, engine: engine}
}

// call sends a JSON request and decodes the JSON response into out when non-nil.
func (e *testEnv) call(method, path, token string, body interface{}, out interface{}) int {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.http.URL+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type sessionResponse struct {
	Player models.Player `json:"player"`
	Token  string        `json:"token"`
}

func (e *testEnv) session(name string) sessionResponse {
	e.t.Helper()
	var s sessionResponse
	require.Equal(e.t, http.StatusOK, e.call("POST", "/session", "", map[string]string{"display_name": name}, &s))
	require.NotEmpty(e.t, s.Token)
	return s
}

func TestSessionIsStableForAToken(t *testing.T) {
	env := newTestEnv(t)
	first := env.session("alice")
	assert.Equal(t, "alice", first.Player.DisplayName)

	var again sessionResponse
	require.Equal(t, http.StatusOK, env.call("POST", "/session", first.Token, nil, &again))
	assert.Equal(t, first.Player.ID, again.Player.ID)
	assert.Equal(t, "alice", again.Player.DisplayName)

	var me models.Player
	require.Equal(t, http.StatusOK, env.call("GET", "/me", again.Token, nil, &me))
	assert.Equal(t, first.Player.ID, me.ID)

	other := env.session("")
	assert.NotEqual(t, first.Player.ID, other.Player.ID)
	assert.Equal(t, "Guest", other.Player.DisplayName)
}

func TestRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, env.call("GET", "/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, env.call("GET", "/me", "garbage", nil, nil))
	assert.Equal(t, http.StatusOK, env.call("GET", "/healthz", "", nil, nil))
}

func TestRoomFlowToFinishedGame(t *testing.T) {
	env := newTestEnv(t)
	host := env.session("host")
	guest := env.session("guest")

	var created RoomSnapshot
	require.Equal(t, http.StatusCreated, env.call("POST", "/rooms", host.Token, map[string]string{"name": "table"}, &created))
	require.NotNil(t, created.Room)
	roomID := created.Room.ID

	assert.Equal(t, http.StatusNotFound, env.call("POST", "/rooms/join", guest.Token, map[string]string{"code": "ZZZZ"}, nil))
	require.Equal(t, http.StatusOK, env.call("POST", "/rooms/join", guest.Token, map[string]string{"code": strings.ToLower(created.Room.Code)}, nil))

	require.Equal(t, http.StatusOK, env.call("POST", "/team", host.Token, map[string]string{"side": "A"}, nil))
	require.Equal(t, http.StatusOK, env.call("POST", "/team", guest.Token, map[string]string{"side": "b"}, nil))
	assert.Equal(t, http.StatusBadRequest, env.call("POST", "/team", guest.Token, map[string]string{"side": "C"}, nil))

	start := fmt.Sprintf("/rooms/%s/start", roomID)
	assert.Equal(t, http.StatusConflict, env.call("POST", start, host.Token, nil, nil))
	assert.Equal(t, http.StatusForbidden, env.call("POST", start, guest.Token, map[string]bool{"force": true}, nil))

	var g models.Game
	require.Equal(t, http.StatusOK, env.call("POST", start, host.Token, map[string]bool{"force": true}, &g))
	assert.Equal(t, models.GameInProgress, g.Status)
	assert.Equal(t, models.SideA, g.Turn)

	var snap RoomSnapshot
	require.Equal(t, http.StatusOK, env.call("GET", "/rooms/"+roomID.String(), guest.Token, nil, &snap))
	require.NotNil(t, snap.Game)
	assert.Equal(t, g.ID, snap.Game.ID)
	for _, p := range snap.Roster {
		assert.True(t, p.Ready, "force start readies everyone")
	}

	challenge := fmt.Sprintf("/games/%s/challenge", g.ID)
	assert.Equal(t, http.StatusForbidden, env.call("POST", challenge, guest.Token, map[string]int{"square": 0}, nil), "not B's turn")
	assert.Equal(t, http.StatusBadRequest, env.call("POST", challenge, host.Token, map[string]int{"square": 25}, nil))
	assert.Equal(t, http.StatusBadRequest, env.call("POST", challenge, host.Token, map[string]string{}, nil))

	var m models.Match
	require.Equal(t, http.StatusCreated, env.call("POST", challenge, host.Token, map[string]int{"square": 12}, &m))
	assert.Equal(t, minigame.KindHands, minigame.Kind(m.Kind))
	assert.Equal(t, host.Player.ID, m.RepA)
	assert.Equal(t, guest.Player.ID, m.RepB)

	move := fmt.Sprintf("/matches/%s/move", m.ID)
	var pending models.Match
	require.Equal(t, http.StatusOK, env.call("POST", move, host.Token, map[string]string{"hand": "rock"}, &pending))
	assert.True(t, pending.Open())

	// the opponent's pending choice is hidden
	var seen models.Match
	require.Equal(t, http.StatusOK, env.call("GET", "/matches/"+m.ID.String(), guest.Token, nil, &seen))
	assert.NotContains(t, string(seen.State), "rock")

	var done models.Match
	require.Equal(t, http.StatusOK, env.call("POST", move, guest.Token, map[string]string{"hand": "scissors"}, &done))
	assert.Equal(t, models.MatchCompleted, done.Status)
	assert.Equal(t, models.SideA, done.Winner)
	assert.Equal(t, http.StatusConflict, env.call("POST", move, guest.Token, map[string]string{"hand": "rock"}, nil))

	var gs GameSnapshot
	require.Equal(t, http.StatusOK, env.call("GET", "/games/"+g.ID.String(), host.Token, nil, &gs))
	assert.Equal(t, models.SideA, gs.Game.Board[12])
	assert.Equal(t, models.SideB, gs.Game.Turn)
	assert.Empty(t, gs.Matches)
}

func TestClientResolveIsGated(t *testing.T) {
	env := newTestEnv(t)
	host := env.session("host")
	guest := env.session("guest")

	var created RoomSnapshot
	require.Equal(t, http.StatusCreated, env.call("POST", "/rooms", host.Token, nil, &created))
	require.Equal(t, http.StatusOK, env.call("POST", "/rooms/join", guest.Token, map[string]string{"code": created.Room.Code}, nil))
	require.Equal(t, http.StatusOK, env.call("POST", "/team", host.Token, map[string]string{"side": "A"}, nil))
	require.Equal(t, http.StatusOK, env.call("POST", "/team", guest.Token, map[string]string{"side": "B"}, nil))
	var g models.Game
	require.Equal(t, http.StatusOK, env.call("POST", "/rooms/"+created.Room.ID.String()+"/start", host.Token, map[string]bool{"force": true}, &g))
	var m models.Match
	require.Equal(t, http.StatusCreated, env.call("POST", "/games/"+g.ID.String()+"/challenge", host.Token, map[string]int{"square": 0}, &m))

	resolve := "/matches/" + m.ID.String() + "/resolve"
	assert.Equal(t, http.StatusForbidden, env.call("POST", resolve, host.Token, map[string]string{"winner": "A"}, nil))

	env.srv.AllowClientResolve = true
	outsider := env.session("outsider")
	assert.Equal(t, http.StatusForbidden, env.call("POST", resolve, outsider.Token, map[string]string{"winner": "A"}, nil))

	var done models.Match
	require.Equal(t, http.StatusOK, env.call("POST", resolve, guest.Token, map[string]string{"winner": "B"}, &done))
	assert.Equal(t, models.SideB, done.Winner)

	// a second report cannot overwrite the first
	require.Equal(t, http.StatusOK, env.call("POST", resolve, host.Token, map[string]string{"winner": "A"}, &done))
	assert.Equal(t, models.SideB, done.Winner)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("room: %w", models.ErrNotFound), http.StatusNotFound, "not_found"},
		{models.ErrFull, http.StatusConflict, "full"},
		{models.ErrSquareClaimed, http.StatusConflict, "conflict"},
		{models.ErrNoOpponent, http.StatusUnprocessableEntity, "no_opponent"},
		{models.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
		{models.ErrInvalidSquare, http.StatusBadRequest, "invalid"},
		{models.ErrNotCreated, http.StatusInternalServerError, "not_created"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := statusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

type wsEnvelope struct {
	Type    string          `json:"type"`
	Scope   feed.Scope      `json:"scope"`
	ID      string          `json:"id"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func readEnvelope(ctx context.Context, t *testing.T, c *websocket.Conn) wsEnvelope {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var env wsEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func writeMessage(ctx context.Context, t *testing.T, c *websocket.Conn, msg interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

func wsURL(base string) string {
	return "ws" + strings.TrimPrefix(base, "http") + "/ws"
}

func TestWebsocketStreamsRoomSnapshots(t *testing.T) {
	env := newTestEnv(t)
	host := env.session("host")
	var created RoomSnapshot
	require.Equal(t, http.StatusCreated, env.call("POST", "/rooms", host.Token, nil, &created))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, wsURL(env.http.URL)+"?token="+host.Token, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	writeMessage(ctx, t, c, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", readEnvelope(ctx, t, c).Type)

	writeMessage(ctx, t, c, map[string]string{"type": "watch", "scope": "room", "id": created.Room.ID.String()})
	first := readEnvelope(ctx, t, c)
	require.Equal(t, "snapshot", first.Type)
	assert.Equal(t, feed.ScopeRoom, first.Scope)
	var snap RoomSnapshot
	require.NoError(t, json.Unmarshal(first.Data, &snap))
	require.Len(t, snap.Roster, 1)
	assert.Equal(t, models.SideNone, snap.Roster[0].Team)

	require.Equal(t, http.StatusOK, env.call("POST", "/team", host.Token, map[string]string{"side": "A"}, nil))
	for {
		msg := readEnvelope(ctx, t, c)
		require.Equal(t, "snapshot", msg.Type)
		require.NoError(t, json.Unmarshal(msg.Data, &snap))
		if snap.Roster[0].Team == models.SideA {
			break
		}
	}

	writeMessage(ctx, t, c, map[string]string{"type": "watch", "scope": "player", "id": created.Room.HostPlayerID.String()})
	assert.Equal(t, "snapshot", readEnvelope(ctx, t, c).Type)

	writeMessage(ctx, t, c, map[string]string{"type": "watch", "scope": "player", "id": created.Room.ID.String()})
	assert.Equal(t, "error", readEnvelope(ctx, t, c).Type)

	writeMessage(ctx, t, c, map[string]string{"type": "dance"})
	assert.Equal(t, "error", readEnvelope(ctx, t, c).Type)
}

func TestWebsocketRejectsBadHandshake(t *testing.T) {
	env := newTestEnv(t)
	host := env.session("host")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, wsURL(env.http.URL)+"?token="+host.Token, nil)
	require.NoError(t, err)
	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))

	c, _, err = websocket.Dial(ctx, wsURL(env.http.URL), &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.NoError(t, err)
	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(InvalidAuthTokenError), websocket.CloseStatus(err))
}
