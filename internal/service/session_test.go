package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/onboarding"
	"github.com/greatgiftheist/agent-hq/internal/session"
	"github.com/greatgiftheist/agent-hq/internal/store/jsonfile"
)

func newTestService(t *testing.T) (*SessionService, *jsonfile.Store) {
	t.Helper()
	profiles, err := jsonfile.Open(filepath.Join(t.TempDir(), "agents.json"))
	require.NoError(t, err)

	engine, err := onboarding.NewEngine(onboarding.Config{
		PersonalityRounds: 3,
		RetryInterval:     time.Millisecond,
	}, onboarding.Dependencies{
		Store:      profiles,
		Registry:   profiles,
		SessionLog: profiles,
	}, nil)
	require.NoError(t, err)

	return NewSessionService(engine, session.NewMemoryStore(time.Hour), profiles, profiles, nil), profiles
}

func TestStartNewRecruit(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Start(context.Background(), &model.StartSessionRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "name", resp.State)
	assert.NotEmpty(t, resp.Messages)
	assert.False(t, resp.Ended)
}

func seedAgent(t *testing.T, profiles *jsonfile.Store, owner string) {
	t.Helper()
	ctx := context.Background()

	ok, err := profiles.Reserve(ctx, "Sly Comet", owner)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = profiles.Upsert(ctx, "Sly Comet", model.FullPatch(model.Profile{
		Codename:         "Sly Comet",
		RealName:         "Robin",
		AttendanceStatus: model.AttendanceAttending,
	}))
	require.NoError(t, err)
}

func TestStartReturningParticipant(t *testing.T) {
	svc, profiles := newTestService(t)
	ctx := context.Background()
	seedAgent(t, profiles, "first-session")

	resp, err := svc.Start(ctx, &model.StartSessionRequest{
		ReturningCodename: "sly comet",
		ResumeToken:       "first-session",
	})
	require.NoError(t, err)
	assert.Equal(t, "complete", resp.State)
	assert.Equal(t, "Sly Comet", resp.Codename)
	assert.Equal(t, "first-session", resp.ResumeToken)
	assert.NotEqual(t, "first-session", resp.SessionID)

	resp, err = svc.Start(ctx, &model.StartSessionRequest{
		ReturningCodename: "Unknown Agent",
		ResumeToken:       "first-session",
	})
	require.NoError(t, err)
	assert.Equal(t, "name", resp.State)
}

func TestStartRequiresResumeToken(t *testing.T) {
	svc, profiles := newTestService(t)
	ctx := context.Background()
	seedAgent(t, profiles, "first-session")

	tests := []struct {
		name  string
		token string
	}{
		{name: "codename only", token: ""},
		{name: "wrong token", token: "someone-else"},
		{name: "token prefix", token: "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Start(ctx, &model.StartSessionRequest{
				ReturningCodename: "Sly Comet",
				ResumeToken:       tt.token,
			})
			require.NoError(t, err)
			assert.Equal(t, "name", resp.State)
			assert.Empty(t, resp.Codename)
			assert.Empty(t, resp.ResumeToken)

			view, err := svc.Get(ctx, resp.SessionID)
			require.NoError(t, err)
			assert.Empty(t, view.RealName)
		})
	}
}

func TestHandleAdvancesAndPersists(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	start, err := svc.Start(ctx, nil)
	require.NoError(t, err)

	resp, err := svc.Handle(ctx, start.SessionID, "Robin")
	require.NoError(t, err)
	assert.Equal(t, "personality", resp.State)
	assert.NotEmpty(t, resp.Messages)

	view, err := svc.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "personality", view.State)
	assert.Equal(t, "Robin", view.RealName)

	var userLines []string
	for _, rec := range view.Transcript {
		if rec.Sender == model.SenderUser {
			userLines = append(userLines, rec.Text)
		}
	}
	assert.Equal(t, []string{"Robin"}, userLines)
}

func TestUnknownSession(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Handle(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHandleSerializesTurnsPerSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	start, err := svc.Start(ctx, nil)
	require.NoError(t, err)

	const sends = 8
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Handle(ctx, start.SessionID, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := svc.Get(ctx, start.SessionID)
	require.NoError(t, err)

	// Each blank line yields exactly one HQ prompt; a lost update would drop some.
	assert.Len(t, view.Transcript, len(start.Messages)+sends)
	assert.Empty(t, svc.locks)
}

func TestSubscribeReceivesCommittedTurns(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	start, err := svc.Start(ctx, nil)
	require.NoError(t, err)

	updates, cancel := svc.Subscribe(start.SessionID)
	other, cancelOther := svc.Subscribe("some-other-session")
	defer cancelOther()

	resp, err := svc.Handle(ctx, start.SessionID, "Robin")
	require.NoError(t, err)

	select {
	case u := <-updates:
		assert.Equal(t, resp, u.Turn)
		assert.Equal(t, len(start.Messages), u.Offset)
		require.Len(t, u.Records, 1+len(resp.Messages))
		assert.Equal(t, model.SenderUser, u.Records[0].Sender)
		assert.Equal(t, "Robin", u.Records[0].Text)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	select {
	case u := <-other:
		t.Fatalf("unexpected update for another session: %+v", u)
	default:
	}

	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)

	svc.subsMu.Lock()
	_, tracked := svc.subs[start.SessionID]
	svc.subsMu.Unlock()
	assert.False(t, tracked)
}
