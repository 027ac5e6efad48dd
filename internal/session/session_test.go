package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/onboarding"
)

func sampleSnapshot(id string) onboarding.Snapshot {
	return onboarding.Snapshot{
		SessionID: id,
		State:     onboarding.StateGuestsCount,
		Profile: model.Profile{
			Codename:         "Jolly Boots",
			RealName:         "Robin",
			AttendanceStatus: model.AttendanceAttending,
		},
		Transcript: []model.MessageRecord{
			{Sender: model.SenderHQ, Text: "How many guests?", Timestamp: time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)},
		},
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	snap := sampleSnapshot("s1")
	require.NoError(t, s.Put(ctx, snap))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	// Mutating the returned copy leaves the stored one alone.
	got.Transcript[0].Text = "changed"
	again, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "How many guests?", again.Transcript[0].Text)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, sampleSnapshot("s1")))
	now = now.Add(30 * time.Second)
	_, err := s.Get(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestMemoryStorePutSweepsUnreadExpiredSessions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, sampleSnapshot("abandoned-1")))
	now = now.Add(30 * time.Second)
	require.NoError(t, s.Put(ctx, sampleSnapshot("abandoned-2")))
	assert.Equal(t, 2, s.Len())

	// Neither abandoned session is read again; the next write clears them.
	now = now.Add(2 * time.Minute)
	require.NoError(t, s.Put(ctx, sampleSnapshot("live")))
	assert.Equal(t, 1, s.Len())

	_, err := s.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestMemoryStoreRequiresID(t *testing.T) {
	assert.Error(t, NewMemoryStore(0).Put(context.Background(), onboarding.Snapshot{}))
}

func TestValkeyStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("VALKEY_TEST_ADDR")
	if addr == "" {
		t.Skip("VALKEY_TEST_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewValkeyStore(addr, time.Minute)
	require.NoError(t, err)
	defer s.Close()

	snap := sampleSnapshot("valkey-test")
	require.NoError(t, s.Put(ctx, snap))
	got, err := s.Get(ctx, "valkey-test")
	require.NoError(t, err)
	assert.Equal(t, snap.Profile.Codename, got.Profile.Codename)
	assert.Equal(t, snap.State, got.State)

	_, err = s.Get(ctx, "no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}
