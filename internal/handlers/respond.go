// internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/models"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrFull):
		return http.StatusConflict, "full"
	case errors.Is(err, models.ErrNoOpponent):
		return http.StatusUnprocessableEntity, "no_opponent"
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, models.ErrInvalidMove),
		errors.Is(err, models.ErrInvalidSquare),
		errors.Is(err, minigame.ErrUnknownKind):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, models.ErrNotCreated):
		return http.StatusInternalServerError, "not_created"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError logs server-side failures and renders err for the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		if code == "internal" {
			msg = "internal error"
		}
	}
	writeErrorCode(w, status, code, msg)
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
