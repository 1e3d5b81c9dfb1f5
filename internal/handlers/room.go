// internal/handlers/room.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/models"
)

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

type createRoomRequest struct {
	Name string `json:"name"`
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "bad room payload")
		return
	}
	room, err := s.lobby.CreateRoom(r.Context(), req.Name, playerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.roomSnapshot(r.Context(), playerID(r), room.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

type joinRoomRequest struct {
	Code string `json:"code"`
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := decodeBody(r, &req); err != nil || req.Code == "" {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "room code required")
		return
	}
	room, roster, err := s.lobby.JoinRoom(r.Context(), req.Code, playerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room":   room,
		"roster": roster,
	})
}

func (s *Server) leaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := uuidParam(w, r, "roomID")
	if !ok {
		return
	}
	if err := s.lobby.LeaveRoom(r.Context(), playerID(r), roomID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := uuidParam(w, r, "roomID")
	if !ok {
		return
	}
	snap, err := s.roomSnapshot(r.Context(), playerID(r), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type teamRequest struct {
	Side string `json:"side"`
}

func (s *Server) joinTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "bad team payload")
		return
	}
	side, err := models.ParseSide(req.Side)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	p, err := s.lobby.JoinTeam(r.Context(), playerID(r), side)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) toggleReady(w http.ResponseWriter, r *http.Request) {
	p, err := s.lobby.ToggleReady(r.Context(), playerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type startRequest struct {
	Force bool `json:"force"`
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	roomID, ok := uuidParam(w, r, "roomID")
	if !ok {
		return
	}
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "bad start payload")
		return
	}
	g, err := s.engine.StartGame(r.Context(), roomID, playerID(r), req.Force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
