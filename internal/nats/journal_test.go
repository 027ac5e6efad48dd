package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatgiftheist/agent-hq/internal/model"
)

type published struct {
	subject string
	data    []byte
}

// fakeJetStream implements only Publish; other methods panic via the nil
// embedded interface.
type fakeJetStream struct {
	jetstream.JetStream
	msgs []published
	err  error
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "hq.session_log.jolly_boots", SessionLogSubject("Jolly Boots"))
	assert.Equal(t, "hq.confirmation.frosty_mittens-12", ConfirmationSubject("Frosty  Mittens-12"))
	assert.Equal(t, "hq.session_log.agent_x_", SessionLogSubject("Agent.X*"))
}

func TestAppendSessionLogPublishes(t *testing.T) {
	js := &fakeJetStream{}
	j := NewJournal(js, nil)

	entry := model.SessionLog{
		SessionID:  "s1",
		Codename:   "Jolly Boots",
		Attendance: model.AttendanceAttending,
		Transcript: []model.MessageRecord{{Sender: model.SenderUser, Text: "yes", Timestamp: time.Now()}},
	}
	require.NoError(t, j.AppendSessionLog(context.Background(), entry))
	require.Len(t, js.msgs, 1)
	assert.Equal(t, "hq.session_log.jolly_boots", js.msgs[0].subject)

	var got model.SessionLog
	require.NoError(t, json.Unmarshal(js.msgs[0].data, &got))
	assert.Equal(t, "s1", got.SessionID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestNotifyConfirmationPublishes(t *testing.T) {
	js := &fakeJetStream{}
	j := NewJournal(js, nil)

	err := j.NotifyConfirmation(context.Background(), model.Profile{
		Codename:         "Sly Comet",
		RealName:         "Robin",
		ContactEmail:     "robin@example.com",
		AttendanceStatus: model.AttendanceNotAttending,
	})
	require.NoError(t, err)
	require.Len(t, js.msgs, 1)

	var event model.ProfileEvent
	require.NoError(t, json.Unmarshal(js.msgs[0].data, &event))
	assert.Equal(t, model.EventTypeConfirmation, event.Type)
	assert.Equal(t, "not_attending", event.Status)
	assert.NotEmpty(t, event.ID)
}

func TestPublishErrorsAreWrapped(t *testing.T) {
	boom := errors.New("no responders")
	j := NewJournal(&fakeJetStream{err: boom}, nil)
	err := j.AppendSessionLog(context.Background(), model.SessionLog{SessionID: "s1", Codename: "Jolly Boots"})
	assert.ErrorIs(t, err, boom)
}
