// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/auth"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "gridclash"

const (
	outBuffer    = 16
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// clientMessage is what a socket client sends: watch/unwatch a record, or ping.
type clientMessage struct {
	Type  string     `json:"type"`
	Scope feed.Scope `json:"scope,omitempty"`
	ID    string     `json:"id,omitempty"`
}

// serverMessage is pushed to the client.
type serverMessage struct {
	Type    string      `json:"type"`
	Scope   feed.Scope  `json:"scope,omitempty"`
	ID      string      `json:"id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// wsClient is one socket. Changes mark their key dirty; a single refresher goroutine re-reads
// each dirty key once, so a burst of changes yields one snapshot.
type wsClient struct {
	playerID uuid.UUID
	subs     *feed.Registry
	out      chan serverMessage
	wake     chan struct{}

	mu    sync.Mutex
	dirty map[feed.Key]struct{}
}

func newWSClient(playerID uuid.UUID, subs *feed.Registry) *wsClient {
	return &wsClient{
		playerID: playerID,
		subs:     subs,
		out:      make(chan serverMessage, outBuffer),
		wake:     make(chan struct{}, 1),
		dirty:    make(map[feed.Key]struct{}),
	}
}

func (c *wsClient) markDirty(key feed.Key) {
	c.mu.Lock()
	c.dirty[key] = struct{}{}
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *wsClient) takeDirty() []feed.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]feed.Key, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
		delete(c.dirty, k)
	}
	return keys
}

func (c *wsClient) send(ctx context.Context, msg serverMessage) {
	select {
	case c.out <- msg:
	case <-ctx.Done():
	}
}

// serveWS upgrades to a websocket that streams snapshots of watched records.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warnf("websocket accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "handler finished")

	if conn.Subprotocol() != Subprotocol {
		conn.Close(BadSubprotocolError, "client must speak the gridclash subprotocol")
		return
	}
	claims, err := auth.AuthenticateJWT(extractToken(r))
	if err != nil {
		conn.Close(InvalidAuthTokenError, "invalid auth token")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := newWSClient(claims.PlayerID, s.hub.NewRegistry())
	defer client.subs.Close()

	middleware.LogWebSocketConnect(s.log, r.RemoteAddr, claims.PlayerID.String())

	go s.refreshLoop(ctx, client)
	go s.writePump(ctx, conn, client)

	err = s.readPump(ctx, conn, client)
	middleware.LogWebSocketDisconnect(s.log, r.RemoteAddr, claims.PlayerID.String(), err)
}

// readPump handles incoming client messages until the socket closes.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client *wsClient) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.send(ctx, serverMessage{Type: "error", Message: "invalid JSON format"})
			continue
		}
		s.handleClientMessage(ctx, client, msg)
	}
}

func (s *Server) handleClientMessage(ctx context.Context, client *wsClient, msg clientMessage) {
	switch msg.Type {
	case "ping":
		client.send(ctx, serverMessage{Type: "pong"})
	case "watch", "unwatch":
		id, err := uuid.Parse(msg.ID)
		if err != nil || !msg.Scope.Valid() {
			client.send(ctx, serverMessage{Type: "error", Message: "watch needs a valid scope and id"})
			return
		}
		key := feed.Key{Scope: msg.Scope, ID: id}
		if msg.Type == "unwatch" {
			client.subs.Unwatch(key)
			return
		}
		if key.Scope == feed.ScopePlayer && id != client.playerID {
			client.send(ctx, serverMessage{Type: "error", Scope: key.Scope, ID: msg.ID, Message: "players can only watch themselves"})
			return
		}
		if client.subs.Watch(key, func(c feed.Change) { client.markDirty(c.Key()) }) {
			client.markDirty(key)
		}
	default:
		client.send(ctx, serverMessage{Type: "error", Message: "unknown message type: " + msg.Type})
	}
}

// refreshLoop turns dirty keys into snapshots. Keys unwatched in the meantime are skipped.
func (s *Server) refreshLoop(ctx context.Context, client *wsClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.wake:
		}
		watched := make(map[feed.Key]bool)
		for _, k := range client.subs.Keys() {
			watched[k] = true
		}
		for _, key := range client.takeDirty() {
			if !watched[key] {
				continue
			}
			data, err := s.snapshot(ctx, client.playerID, key)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				_, code := statusFor(err)
				s.log.WithFields(logrus.Fields{
					"scope":     key.Scope,
					"id":        key.ID,
					"player_id": client.playerID,
				}).WithError(err).Debug("snapshot failed")
				client.send(ctx, serverMessage{Type: "error", Scope: key.Scope, ID: key.ID.String(), Message: code})
				continue
			}
			client.send(ctx, serverMessage{Type: "snapshot", Scope: key.Scope, ID: key.ID.String(), Data: data})
		}
	}
}

// writePump drains the client's outbound queue and keeps the connection alive with pings.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, client *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer conn.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-client.out:
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warnf("failed to marshal outgoing msg for player %v: %v", client.playerID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.Warnf("failed to write to websocket for player %v: %v", client.playerID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.log.Warnf("failed to ping player %v: %v", client.playerID, err)
				return
			}
		}
	}
}
