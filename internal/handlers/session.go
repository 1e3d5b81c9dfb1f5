// internal/handlers/session.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/auth"
)

const authCookie = "auth_token"

type ctxKey int

const claimsKey ctxKey = iota

// extractToken finds a session token in the auth cookie, a Bearer header or, for websocket
// upgrades that cannot set headers, the token query parameter.
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(authCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// requirePlayer rejects requests without a valid session token and stores its claims in the
// request context.
func (s *Server) requirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeErrorCode(w, http.StatusUnauthorized, "unauthenticated", "missing auth_token")
			return
		}
		claims, err := auth.AuthenticateJWT(token)
		if err != nil {
			writeErrorCode(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func playerID(r *http.Request) uuid.UUID {
	claims, _ := r.Context().Value(claimsKey).(auth.Claims)
	return claims.PlayerID
}

type sessionRequest struct {
	DisplayName string `json:"display_name"`
}

// createSession resolves or creates the caller's player. A still-valid token keeps its
// session handle, so the same client always maps to the same player.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid", "bad session payload")
		return
	}

	handle := ""
	if token := extractToken(r); token != "" {
		if claims, err := auth.AuthenticateJWT(token); err == nil {
			handle = claims.SessionHandle
		}
	}
	if handle == "" {
		handle = auth.NewSessionHandle()
	}

	p, err := s.players.ResolveOrCreatePlayer(r.Context(), handle, req.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := auth.CreateJWT(p.ID, handle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"player": p,
		"token":  token,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPlayer(r.Context(), playerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
