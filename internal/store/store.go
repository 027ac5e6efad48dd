// Package store defines the participant profile persistence contract.
package store

import (
	"context"
	"errors"

	"github.com/greatgiftheist/agent-hq/internal/model"
)

var (
	// ErrNotFound is returned when no profile holds the requested codename.
	ErrNotFound = errors.New("profile not found")

	// ErrAlreadyExists is returned when a codename is held by someone else.
	ErrAlreadyExists = errors.New("codename already taken")
)

// ProfileStore is durable keyed-by-codename storage for participant profiles.
//
// Codename lookups are case-insensitive. Upsert sets CreatedAt only on the
// first insert and always refreshes UpdatedAt.
type ProfileStore interface {
	Upsert(ctx context.Context, codename string, patch model.ProfilePatch) (model.Profile, error)
	GetByCodename(ctx context.Context, codename string) (model.Profile, error)
	IsCodenameTaken(ctx context.Context, codename string) (bool, error)
	List(ctx context.Context) ([]model.Profile, error)
}

// SessionLogWriter stores the secondary transcript record written after a
// profile save.
type SessionLogWriter interface {
	AppendSessionLog(ctx context.Context, entry model.SessionLog) error
}

// SessionLogReader lists the session logs recorded for a codename.
type SessionLogReader interface {
	SessionLogs(ctx context.Context, codename string) ([]model.SessionLog, error)
}

// ReservationReader resolves the owner recorded when a codename was reserved.
// It returns ErrNotFound when no reservation exists.
type ReservationReader interface {
	ReservationOwner(ctx context.Context, codename string) (string, error)
}
