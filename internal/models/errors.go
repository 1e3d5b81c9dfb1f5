// internal/models/errors.go
package models

import (
	"errors"
	"fmt"
)

// Error categories surfaced to clients. Specific errors wrap one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrFull         = errors.New("room is full")
	ErrConflict     = errors.New("conflict")
	ErrNoOpponent   = errors.New("no opponent")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotCreated   = errors.New("not created")
)

var (
	ErrSquareClaimed   = fmt.Errorf("%w: square already claimed", ErrConflict)
	ErrSquareContested = fmt.Errorf("%w: square contested", ErrConflict)
	ErrGameOver        = fmt.Errorf("%w: game has ended", ErrConflict)
	ErrTeamFull        = fmt.Errorf("%w: team is full", ErrConflict)
	ErrNotEligible     = fmt.Errorf("%w: start conditions not met", ErrConflict)
	ErrMatchClosed     = fmt.Errorf("%w: match already resolved", ErrConflict)
	ErrStale           = fmt.Errorf("%w: stale write", ErrConflict)
	ErrCodeTaken       = fmt.Errorf("%w: room code taken", ErrConflict)
	ErrNotExpired      = fmt.Errorf("%w: countdown still running", ErrConflict)
	ErrAlreadyMoved    = fmt.Errorf("%w: move already submitted", ErrConflict)
	ErrNotInRoom       = fmt.Errorf("%w: player is not in a room", ErrConflict)
	ErrInvalidMove     = errors.New("invalid move")
	ErrInvalidSquare   = errors.New("square out of range")
)
