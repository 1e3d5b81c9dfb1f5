// internal/auth/identity.go
package auth

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/jason-s-yu/gridclash/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

const (
	maxDisplayNameLen = 32
	defaultName       = "Guest"
)

// SessionKey is the stored lookup key for a session handle: a hex blake2b-256 digest, so the
// raw handle never reaches the database.
func SessionKey(handle string) string {
	sum := blake2b.Sum256([]byte(handle))
	return hex.EncodeToString(sum[:])
}

// NewSessionHandle mints a fresh durable client identifier.
func NewSessionHandle() string {
	return uuid.NewString()
}

// NormalizeDisplayName trims and truncates a requested name.
func NormalizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	for utf8.RuneCountInString(name) > maxDisplayNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// Resolver maps session handles to players.
type Resolver struct {
	players store.PlayerStore
	log     logrus.FieldLogger
}

func NewResolver(players store.PlayerStore, logger logrus.FieldLogger) *Resolver {
	return &Resolver{players: players, log: logger}
}

// ResolveOrCreatePlayer is an idempotent create-or-fetch: at most one player exists per handle.
// An empty displayName keeps the stored name; a brand-new player defaults to "Guest".
func (r *Resolver) ResolveOrCreatePlayer(ctx context.Context, sessionHandle, displayName string) (*models.Player, error) {
	if strings.TrimSpace(sessionHandle) == "" {
		return nil, fmt.Errorf("empty session handle: %w", models.ErrUnauthorized)
	}
	p, err := r.players.UpsertPlayer(ctx, SessionKey(sessionHandle), NormalizeDisplayName(displayName))
	if err != nil {
		return nil, fmt.Errorf("resolve player: %w", err)
	}
	if p.DisplayName == "" {
		p, err = r.players.UpsertPlayer(ctx, SessionKey(sessionHandle), defaultName)
		if err != nil {
			return nil, fmt.Errorf("resolve player: %w", err)
		}
	}
	r.log.WithFields(logrus.Fields{
		"player_id": p.ID,
		"name":      p.DisplayName,
	}).Debug("resolved player")
	return p, nil
}
