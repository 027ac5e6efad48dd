package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/knadh/smtppool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatgiftheist/agent-hq/internal/model"
)

type fakePool struct {
	sent   []smtppool.Email
	err    error
	closed bool
}

func (f *fakePool) Send(e smtppool.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakePool) Close() { f.closed = true }

func TestMailerSendsPlainText(t *testing.T) {
	pool := &fakePool{}
	m := newMailer(pool, "hq@example.com", nil, nil)

	err := m.NotifyConfirmation(context.Background(), model.Profile{
		Codename:         "Jolly Boots",
		RealName:         "Robin",
		ContactEmail:     "robin@example.com",
		AttendanceStatus: model.AttendanceNotAttending,
	})
	require.NoError(t, err)
	require.Len(t, pool.sent, 1)

	mail := pool.sent[0]
	assert.Equal(t, "hq@example.com", mail.From)
	assert.Equal(t, []string{"robin@example.com"}, mail.To)
	assert.Contains(t, mail.Subject, "Jolly Boots")
	assert.Contains(t, string(mail.Text), "not attending")

	m.Close()
	assert.True(t, pool.closed)
}

func TestMailerSkipsProfilesWithoutEmail(t *testing.T) {
	pool := &fakePool{}
	m := newMailer(pool, "hq@example.com", nil, nil)
	require.NoError(t, m.NotifyConfirmation(context.Background(), model.Profile{Codename: "Sly Comet"}))
	assert.Empty(t, pool.sent)
}

func TestMailerWrapsSendErrors(t *testing.T) {
	boom := errors.New("421 try later")
	m := newMailer(&fakePool{err: boom}, "hq@example.com", nil, nil)
	err := m.NotifyConfirmation(context.Background(), model.Profile{Codename: "Sly Comet", ContactEmail: "a@b.c"})
	assert.ErrorIs(t, err, boom)
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) NotifyConfirmation(context.Context, model.Profile) error {
	c.calls++
	return c.err
}

func TestMultiCallsEveryNotifier(t *testing.T) {
	boom := errors.New("down")
	a := &countingNotifier{err: boom}
	b := &countingNotifier{}

	err := Multi{a, b, Noop{}}.NotifyConfirmation(context.Background(), model.Profile{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
