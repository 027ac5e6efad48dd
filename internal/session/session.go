// Package session keeps in-flight conversation snapshots between requests.
package session

import (
	"context"
	"errors"

	"github.com/greatgiftheist/agent-hq/internal/onboarding"
)

// ErrNotFound is returned when no snapshot exists for a session id, or it
// has expired.
var ErrNotFound = errors.New("session not found")

// Store persists conversation snapshots by session id.
type Store interface {
	Get(ctx context.Context, id string) (onboarding.Snapshot, error)
	Put(ctx context.Context, snap onboarding.Snapshot) error
}
