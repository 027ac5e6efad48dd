// Package sqlite provides a SQLite-backed participant profile store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/greatgiftheist/agent-hq/internal/codename"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/store"
	"github.com/greatgiftheist/agent-hq/internal/store/sqlite/migrations"
)

// Store persists profiles, codename reservations and session logs in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite profile store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

const profileColumns = `codename, real_name, contact_email, contact_phone,
		        attendance_status, guest_count, guest_names, dietary_restrictions,
		        wants_reminders, personality_responses, conversation_log,
		        created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (model.Profile, error) {
	var (
		p                                   model.Profile
		attendance                          string
		guestNames, personality, transcript string
		wantsReminders                      int
		createdAt, updatedAt                int64
	)
	if err := row.Scan(
		&p.Codename,
		&p.RealName,
		&p.ContactEmail,
		&p.ContactPhone,
		&attendance,
		&p.GuestCount,
		&guestNames,
		&p.DietaryRestrictions,
		&wantsReminders,
		&personality,
		&transcript,
		&createdAt,
		&updatedAt,
	); err != nil {
		return model.Profile{}, err
	}
	p.AttendanceStatus = model.AttendanceStatus(attendance)
	p.WantsReminders = wantsReminders != 0
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	if err := json.Unmarshal([]byte(guestNames), &p.GuestNames); err != nil {
		return model.Profile{}, fmt.Errorf("decode guest names: %w", err)
	}
	if err := json.Unmarshal([]byte(personality), &p.PersonalityResponses); err != nil {
		return model.Profile{}, fmt.Errorf("decode personality responses: %w", err)
	}
	if err := json.Unmarshal([]byte(transcript), &p.ConversationLog); err != nil {
		return model.Profile{}, fmt.Errorf("decode conversation log: %w", err)
	}
	return p, nil
}

func encodeJSON(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

// Upsert applies patch to the profile held under codename, creating it on
// first write.
func (s *Store) Upsert(ctx context.Context, name string, patch model.ProfilePatch) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}
	if s == nil || s.sqlDB == nil {
		return model.Profile{}, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Profile{}, fmt.Errorf("codename is required")
	}
	key := codename.Fold(name)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return model.Profile{}, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanProfile(tx.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE codename_key = ?`, key))
	exists := true
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, fmt.Errorf("load profile: %w", err)
		}
		exists = false
	}

	now := s.now().UTC()
	p := existing
	if !exists {
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

	guestNames, err := encodeJSON(p.GuestNames, "[]")
	if err != nil {
		return model.Profile{}, fmt.Errorf("encode guest names: %w", err)
	}
	personality, err := encodeJSON(p.PersonalityResponses, "[]")
	if err != nil {
		return model.Profile{}, fmt.Errorf("encode personality responses: %w", err)
	}
	transcript, err := encodeJSON(p.ConversationLog, "[]")
	if err != nil {
		return model.Profile{}, fmt.Errorf("encode conversation log: %w", err)
	}

	wantsReminders := 0
	if p.WantsReminders {
		wantsReminders = 1
	}

	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE profiles SET
			   real_name = ?, contact_email = ?, contact_phone = ?,
			   attendance_status = ?, guest_count = ?, guest_names = ?,
			   dietary_restrictions = ?, wants_reminders = ?,
			   personality_responses = ?, conversation_log = ?, updated_at = ?
			 WHERE codename_key = ?`,
			p.RealName, p.ContactEmail, p.ContactPhone,
			string(p.AttendanceStatus), p.GuestCount, guestNames,
			p.DietaryRestrictions, wantsReminders,
			personality, transcript, toMillis(p.UpdatedAt),
			key,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (
			   codename_key, codename, real_name, contact_email, contact_phone,
			   attendance_status, guest_count, guest_names, dietary_restrictions,
			   wants_reminders, personality_responses, conversation_log,
			   created_at, updated_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			key, p.Codename, p.RealName, p.ContactEmail, p.ContactPhone,
			string(p.AttendanceStatus), p.GuestCount, guestNames, p.DietaryRestrictions,
			wantsReminders, personality, transcript,
			toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
		)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("write profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Profile{}, fmt.Errorf("commit profile: %w", err)
	}

	// Round to the stored precision so callers see what a later read returns.
	p.CreatedAt = fromMillis(toMillis(p.CreatedAt))
	p.UpdatedAt = fromMillis(toMillis(p.UpdatedAt))
	return p, nil
}

// GetByCodename returns one profile, matching the codename case-insensitively.
func (s *Store) GetByCodename(ctx context.Context, name string) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}
	if s == nil || s.sqlDB == nil {
		return model.Profile{}, fmt.Errorf("storage is not configured")
	}
	p, err := scanProfile(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE codename_key = ?`, codename.Fold(name)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, store.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// IsCodenameTaken reports whether a profile or a reservation holds the
// codename.
func (s *Store) IsCodenameTaken(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	key := codename.Fold(name)
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(1) FROM profiles WHERE codename_key = ?)
		      + (SELECT COUNT(1) FROM codename_reservations WHERE codename_key = ?)`,
		key, key,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check codename: %w", err)
	}
	return count > 0, nil
}

// ReservationOwner implements store.ReservationReader.
func (s *Store) ReservationOwner(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	var owner string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT owner FROM codename_reservations WHERE codename_key = ?`, codename.Fold(name),
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load reservation: %w", err)
	}
	return owner, nil
}

// IsAvailable implements codename.Registry.
func (s *Store) IsAvailable(ctx context.Context, name string) (bool, error) {
	taken, err := s.IsCodenameTaken(ctx, name)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Reserve implements codename.Registry. The primary key on the folded
// codename makes concurrent reservations yield a single winner.
func (s *Store) Reserve(ctx context.Context, name, owner string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	key := codename.Fold(name)

	var holder string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT owner FROM codename_reservations WHERE codename_key = ?`, key,
	).Scan(&holder)
	switch {
	case err == nil:
		return holder == owner, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("load reservation: %w", err)
	}

	var profiles int
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM profiles WHERE codename_key = ?`, key,
	).Scan(&profiles); err != nil {
		return false, fmt.Errorf("check profile: %w", err)
	}
	if profiles > 0 {
		return false, nil
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO codename_reservations (codename_key, codename, owner, reserved_at)
		 VALUES (?, ?, ?, ?)`,
		key, strings.TrimSpace(name), owner, toMillis(s.now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("reserve codename: %w", err)
	}
	return true, nil
}

// List returns every profile ordered by creation time.
func (s *Store) List(ctx context.Context) ([]model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at, codename_key`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// AppendSessionLog implements store.SessionLogWriter.
func (s *Store) AppendSessionLog(ctx context.Context, entry model.SessionLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	transcript, err := encodeJSON(entry.Transcript, "[]")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO session_logs (session_id, codename, attendance_status, transcript, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.SessionID, entry.Codename, string(entry.Attendance), transcript, toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("append session log: %w", err)
	}
	return nil
}

// SessionLogs returns the stored session logs for a codename, oldest first.
func (s *Store) SessionLogs(ctx context.Context, name string) ([]model.SessionLog, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT session_id, codename, attendance_status, transcript, created_at
		   FROM session_logs WHERE codename = ? COLLATE NOCASE ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("list session logs: %w", err)
	}
	defer rows.Close()

	var logs []model.SessionLog
	for rows.Next() {
		var (
			entry      model.SessionLog
			attendance string
			transcript string
			createdAt  int64
		)
		if err := rows.Scan(&entry.SessionID, &entry.Codename, &attendance, &transcript, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session log: %w", err)
		}
		entry.Attendance = model.AttendanceStatus(attendance)
		entry.CreatedAt = fromMillis(createdAt)
		if err := json.Unmarshal([]byte(transcript), &entry.Transcript); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ store.ProfileStore     = (*Store)(nil)
	_ store.SessionLogWriter = (*Store)(nil)
	_ store.SessionLogReader = (*Store)(nil)
	_ codename.Registry      = (*Store)(nil)
)
