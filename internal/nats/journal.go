package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/codename"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
	"github.com/greatgiftheist/agent-hq/pkg/metrics"
)

const (
	// StreamName is the name of the onboarding journal stream.
	StreamName = "AGENTHQ"

	// SubjectPrefix is the prefix for all journal subjects.
	SubjectPrefix = "hq"
)

// Journal publishes onboarding events to JetStream: session logs written
// after a profile save, and confirmation events consumed by mailers.
type Journal struct {
	js     jetstream.JetStream
	logger *logger.Logger
}

// NewJournal creates a journal on js.
func NewJournal(js jetstream.JetStream, log *logger.Logger) *Journal {
	if log == nil {
		log = logger.NewNop()
	}
	return &Journal{js: js, logger: log}
}

// EnsureStream ensures the journal stream exists with proper configuration.
func (j *Journal) EnsureStream(ctx context.Context) error {
	// Check if stream exists
	_, err := j.js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = j.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		Description: "Agent HQ session logs and confirmations",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	j.logger.Info("created journal stream", zap.String("stream", StreamName))
	return nil
}

// subjectToken turns a codename into a single subject token.
func subjectToken(name string) string {
	folded := codename.Fold(name)
	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// SessionLogSubject returns the subject for a codename's session logs.
func SessionLogSubject(name string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, model.EventTypeSessionLog, subjectToken(name))
}

// ConfirmationSubject returns the subject for a codename's confirmations.
func ConfirmationSubject(name string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, model.EventTypeConfirmation, subjectToken(name))
}

func (j *Journal) publish(ctx context.Context, kind model.EventType, subject, msgID string, v any) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s: %w", kind, err)
	}

	ack, err := j.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
	if err != nil {
		metrics.JournalPublishes.WithLabelValues(string(kind), "error").Inc()
		return 0, fmt.Errorf("failed to publish %s: %w", kind, err)
	}
	metrics.JournalPublishes.WithLabelValues(string(kind), "success").Inc()
	return ack.Sequence, nil
}

// AppendSessionLog publishes the session transcript. It satisfies
// store.SessionLogWriter.
func (j *Journal) AppendSessionLog(ctx context.Context, entry model.SessionLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	msgID := fmt.Sprintf("%s:%s:%d", entry.SessionID, subjectToken(entry.Codename), entry.CreatedAt.UnixMilli())
	_, err := j.publish(ctx, model.EventTypeSessionLog, SessionLogSubject(entry.Codename), msgID, entry)
	return err
}

// NotifyConfirmation publishes a confirmation event for a saved profile.
func (j *Journal) NotifyConfirmation(ctx context.Context, p model.Profile) error {
	event := model.ProfileEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      model.EventTypeConfirmation,
		Codename:  p.Codename,
		RealName:  p.RealName,
		Email:     p.ContactEmail,
		Status:    string(p.AttendanceStatus),
		CreatedAt: time.Now().UTC(),
	}
	_, err := j.publish(ctx, model.EventTypeConfirmation, ConfirmationSubject(p.Codename), event.ID, event)
	return err
}

// SessionLogs reads back up to limit session logs for a codename.
func (j *Journal) SessionLogs(ctx context.Context, name string) ([]model.SessionLog, error) {
	const limit = 50

	consumer, err := j.js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject:     SessionLogSubject(name),
		AckPolicy:         jetstream.AckNonePolicy,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		InactiveThreshold: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session logs: %w", err)
	}

	var logs []model.SessionLog
	for msg := range batch.Messages() {
		var entry model.SessionLog
		if err := json.Unmarshal(msg.Data(), &entry); err != nil {
			j.logger.Warn("skipping malformed session log", zap.String("subject", msg.Subject()), zap.Error(err))
			continue
		}
		logs = append(logs, entry)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("batch error: %w", err)
	}
	return logs, nil
}
