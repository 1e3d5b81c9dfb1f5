// internal/handlers/game.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/models"
)

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := uuidParam(w, r, "gameID")
	if !ok {
		return
	}
	snap, err := s.gameSnapshot(r.Context(), playerID(r), gameID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type challengeRequest struct {
	Square *int `json:"square"`
}

func (s *Server) challengeSquare(w http.ResponseWriter, r *http.Request) {
	gameID, ok := uuidParam(w, r, "gameID")
	if !ok {
		return
	}
	var req challengeRequest
	if err := decodeBody(r, &req); err != nil || req.Square == nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "square required")
		return
	}
	m, err := s.engine.ChallengeSquare(r.Context(), gameID, playerID(r), *req.Square)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMatch(w, r, http.StatusCreated, m)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := uuidParam(w, r, "matchID")
	if !ok {
		return
	}
	m, err := s.store.GetMatch(r.Context(), matchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMatch(w, r, http.StatusOK, m)
}

func (s *Server) submitMove(w http.ResponseWriter, r *http.Request) {
	matchID, ok := uuidParam(w, r, "matchID")
	if !ok {
		return
	}
	var mv minigame.Move
	if err := decodeBody(r, &mv); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "bad move payload")
		return
	}
	m, err := s.arbiter.Submit(r.Context(), matchID, playerID(r), mv)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMatch(w, r, http.StatusOK, m)
}

func (s *Server) expireMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := uuidParam(w, r, "matchID")
	if !ok {
		return
	}
	m, err := s.arbiter.Expire(r.Context(), matchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMatch(w, r, http.StatusOK, m)
}

type resolveRequest struct {
	Winner string `json:"winner"`
}

// resolveMatch lets a representative report a result decided on the client. Off unless the
// server runs with client resolution enabled.
func (s *Server) resolveMatch(w http.ResponseWriter, r *http.Request) {
	if !s.AllowClientResolve {
		writeErrorCode(w, http.StatusForbidden, "unauthorized", "client resolution is disabled")
		return
	}
	matchID, ok := uuidParam(w, r, "matchID")
	if !ok {
		return
	}
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "bad resolve payload")
		return
	}
	winner, err := models.ParseSide(req.Winner)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	m, err := s.store.GetMatch(r.Context(), matchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if m.SideOf(playerID(r)) == models.SideNone {
		s.writeError(w, r, fmt.Errorf("%w: only a representative may report the result", models.ErrUnauthorized))
		return
	}
	if m, err = s.engine.ResolveMatch(r.Context(), matchID, winner); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMatch(w, r, http.StatusOK, m)
}

func (s *Server) writeMatch(w http.ResponseWriter, r *http.Request, status int, m *models.Match) {
	v, err := s.viewMatch(r.Context(), playerID(r), m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, v)
}
