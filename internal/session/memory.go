package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/greatgiftheist/agent-hq/internal/onboarding"
)

type entry struct {
	snap      onboarding.Snapshot
	expiresAt time.Time
}

// MemoryStore keeps snapshots in process memory. Entries expire after ttl;
// a zero ttl keeps them forever. Expired entries are dropped when read and
// swept from Put at most once per ttl.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	sessions  map[string]entry
	nextSweep time.Time
	mu        sync.RWMutex
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]entry),
	}
}

// Get returns a copy of the stored snapshot.
func (m *MemoryStore) Get(ctx context.Context, id string) (onboarding.Snapshot, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return onboarding.Snapshot{}, ErrNotFound
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return onboarding.Snapshot{}, ErrNotFound
	}
	return e.snap.Clone(), nil
}

// Put stores a copy of snap and refreshes its expiry.
func (m *MemoryStore) Put(ctx context.Context, snap onboarding.Snapshot) error {
	if snap.SessionID == "" {
		return errors.New("session id is required")
	}
	e := entry{snap: snap.Clone()}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.sessions[snap.SessionID] = e
	m.sweepLocked()
	m.mu.Unlock()
	return nil
}

// sweepLocked deletes expired entries. Callers hold the write lock.
func (m *MemoryStore) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	if now.Before(m.nextSweep) {
		return
	}
	for id, e := range m.sessions {
		if now.After(e.expiresAt) {
			delete(m.sessions, id)
		}
	}
	m.nextSweep = now.Add(m.ttl)
}

// Len reports the number of stored sessions. Entries that expired since the
// last sweep are still counted.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var _ Store = (*MemoryStore)(nil)
