// Package jsonfile keeps participant profiles in a single flat JSON file.
//
// The whole document is held in memory and rewritten on every change, so
// the file assumes one writer process. Two processes sharing a path (the API
// server and the terminal client, say) overwrite each other's changes; use
// the sqlite backend when more than one process needs the same data.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/greatgiftheist/agent-hq/internal/codename"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/store"
)

// document is the on-disk layout.
type document struct {
	Profiles     []model.Profile    `json:"profiles"`
	Reservations []reservation      `json:"reservations"`
	SessionLogs  []model.SessionLog `json:"session_logs,omitempty"`
}

type reservation struct {
	Codename   string    `json:"codename"`
	Owner      string    `json:"owner"`
	ReservedAt time.Time `json:"reserved_at"`
}

// Store is a mutex-guarded JSON file store. Every mutation rewrites the file.
type Store struct {
	mu   sync.RWMutex
	doc  document
	file string
	now  func() time.Time
}

// Open creates a store backed by filePath, loading existing data if the file
// exists.
func Open(filePath string) (*Store, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	s := &Store{
		file: filePath,
		now:  time.Now,
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load storage: %w", err)
		}
	}

	return s, nil
}

func (s *Store) indexOf(name string) int {
	key := codename.Fold(name)
	for i, p := range s.doc.Profiles {
		if codename.Fold(p.Codename) == key {
			return i
		}
	}
	return -1
}

func (s *Store) reservationOf(name string) int {
	key := codename.Fold(name)
	for i, r := range s.doc.Reservations {
		if codename.Fold(r.Codename) == key {
			return i
		}
	}
	return -1
}

// Upsert applies patch to the profile held under codename, creating it on
// first write.
func (s *Store) Upsert(ctx context.Context, name string, patch model.ProfilePatch) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Profile{}, fmt.Errorf("codename is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	i := s.indexOf(name)
	var p model.Profile
	if i >= 0 {
		p = s.doc.Profiles[i].Clone()
	} else {
		p = model.Profile{Codename: name, GuestNames: []string{}, CreatedAt: now}
	}
	patch.Apply(&p)
	p.UpdatedAt = now
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	if p.GuestNames == nil {
		p.GuestNames = []string{}
	}

	previous := s.doc.Profiles
	if i >= 0 {
		s.doc.Profiles = append([]model.Profile(nil), previous...)
		s.doc.Profiles[i] = p
	} else {
		s.doc.Profiles = append(append([]model.Profile(nil), previous...), p)
	}

	if err := s.save(); err != nil {
		s.doc.Profiles = previous
		return model.Profile{}, err
	}
	return p.Clone(), nil
}

// GetByCodename retrieves a profile by codename, case-insensitively.
func (s *Store) GetByCodename(ctx context.Context, name string) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(name); i >= 0 {
		return s.doc.Profiles[i].Clone(), nil
	}
	return model.Profile{}, store.ErrNotFound
}

// IsCodenameTaken reports whether a profile or a reservation holds the
// codename.
func (s *Store) IsCodenameTaken(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexOf(name) >= 0 || s.reservationOf(name) >= 0, nil
}

// IsAvailable implements codename.Registry.
func (s *Store) IsAvailable(ctx context.Context, name string) (bool, error) {
	taken, err := s.IsCodenameTaken(ctx, name)
	return !taken, err
}

// Reserve implements codename.Registry.
func (s *Store) Reserve(ctx context.Context, name, owner string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.reservationOf(name); i >= 0 {
		return s.doc.Reservations[i].Owner == owner, nil
	}
	if s.indexOf(name) >= 0 {
		return false, nil
	}

	previous := s.doc.Reservations
	s.doc.Reservations = append(append([]reservation(nil), previous...), reservation{
		Codename:   strings.TrimSpace(name),
		Owner:      owner,
		ReservedAt: s.now().UTC(),
	})
	if err := s.save(); err != nil {
		s.doc.Reservations = previous
		return false, err
	}
	return true, nil
}

// ReservationOwner implements store.ReservationReader.
func (s *Store) ReservationOwner(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.reservationOf(name); i >= 0 {
		return s.doc.Reservations[i].Owner, nil
	}
	return "", store.ErrNotFound
}

// List returns all profiles ordered by creation time.
func (s *Store) List(ctx context.Context) ([]model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]model.Profile, len(s.doc.Profiles))
	for i, p := range s.doc.Profiles {
		profiles[i] = p.Clone()
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles, nil
}

// AppendSessionLog implements store.SessionLogWriter.
func (s *Store) AppendSessionLog(ctx context.Context, entry model.SessionLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	previous := s.doc.SessionLogs
	s.doc.SessionLogs = append(append([]model.SessionLog(nil), previous...), entry)
	if err := s.save(); err != nil {
		s.doc.SessionLogs = previous
		return err
	}
	return nil
}

// SessionLogs returns the session logs recorded for a codename, oldest first.
func (s *Store) SessionLogs(ctx context.Context, name string) ([]model.SessionLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []model.SessionLog
	for _, entry := range s.doc.SessionLogs {
		if codename.Equal(entry.Codename, name) {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

// save writes the document to file. Callers hold the write lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, s.file); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		s.doc = document{}
		return nil
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return nil
}

var (
	_ store.ProfileStore     = (*Store)(nil)
	_ store.SessionLogWriter = (*Store)(nil)
	_ store.SessionLogReader = (*Store)(nil)
	_ codename.Registry      = (*Store)(nil)
)
