package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/store"
)

func ptr[T any](v T) *T { return &v }

func TestUpsertPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "agents.json")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)

	profile := model.Profile{
		Codename:         "Jolly Boots",
		RealName:         "Robin",
		AttendanceStatus: model.AttendanceAttending,
		GuestNames:       []string{},
	}
	saved, err := s.Upsert(ctx, profile.Codename, model.FullPatch(profile))
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.Before(saved.CreatedAt))

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)

	got, err := reopened.GetByCodename(ctx, "JOLLY BOOTS")
	require.NoError(t, err)
	assert.Equal(t, "Robin", got.RealName)
	assert.Equal(t, model.AttendanceAttending, got.AttendanceStatus)
	assert.Equal(t, 0, got.GuestCount)
	assert.Empty(t, got.GuestNames)
	assert.True(t, got.CreatedAt.Equal(saved.CreatedAt))
}

func TestUpsertPatchLeavesOtherFields(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "agents.json"))
	require.NoError(t, err)
	ctx := context.Background()

	clock := time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	_, err = s.Upsert(ctx, "Velvet Fox", model.ProfilePatch{
		RealName:     ptr("Sam"),
		ContactEmail: ptr("sam@example.com"),
	})
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	got, err := s.Upsert(ctx, "velvet fox", model.ProfilePatch{GuestCount: ptr(3)})
	require.NoError(t, err)

	assert.Equal(t, "Sam", got.RealName)
	assert.Equal(t, "sam@example.com", got.ContactEmail)
	assert.Equal(t, 3, got.GuestCount)
	assert.Equal(t, time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, clock, got.UpdatedAt)
}

func TestReserveAndLookup(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "agents.json"))
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "Frosty Mittens", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, "frosty mittens", "b")
	require.NoError(t, err)
	assert.False(t, ok)

	available, err := s.IsAvailable(ctx, "FROSTY MITTENS")
	require.NoError(t, err)
	assert.False(t, available)

	_, err = s.GetByCodename(ctx, "Frosty Mittens")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReservationOwner(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "agents.json"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.ReservationOwner(ctx, "Frosty Mittens")
	assert.ErrorIs(t, err, store.ErrNotFound)

	ok, err := s.Reserve(ctx, "Frosty Mittens", "session-a")
	require.NoError(t, err)
	require.True(t, ok)

	owner, err := s.ReservationOwner(ctx, "  frosty MITTENS ")
	require.NoError(t, err)
	assert.Equal(t, "session-a", owner)
}

// Each handle holds its own copy of the document; the last save wins.
func TestSeparateHandlesDoNotMergeWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	second, err := Open(path)
	require.NoError(t, err)

	_, err = first.Upsert(ctx, "Frosty Mittens", model.ProfilePatch{RealName: ptr("Sam")})
	require.NoError(t, err)
	_, err = second.Upsert(ctx, "Jolly Boots", model.ProfilePatch{RealName: ptr("Alex")})
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	_, err = reopened.GetByCodename(ctx, "Jolly Boots")
	require.NoError(t, err)
	_, err = reopened.GetByCodename(ctx, "Frosty Mittens")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
}

func TestAppendSessionLog(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "agents.json"))
	require.NoError(t, err)

	err = s.AppendSessionLog(context.Background(), model.SessionLog{SessionID: "s1", Codename: "Sly Magpie"})
	require.NoError(t, err)
	assert.Len(t, s.doc.SessionLogs, 1)
	assert.False(t, s.doc.SessionLogs[0].CreatedAt.IsZero())

	logs, err := s.SessionLogs(context.Background(), "sly magpie")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "s1", logs[0].SessionID)
}
