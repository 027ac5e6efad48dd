// Package service provides the business logic behind the HTTP API: it opens
// onboarding sessions, feeds participant input to the engine and persists
// the resulting snapshots.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/onboarding"
	"github.com/greatgiftheist/agent-hq/internal/session"
	"github.com/greatgiftheist/agent-hq/internal/store"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// SessionService handles onboarding session operations.
type SessionService struct {
	engine   *onboarding.Engine
	sessions session.Store
	profiles store.ProfileStore
	owners   store.ReservationReader
	logger   *logger.Logger
	tracer   trace.Tracer

	// Turns for one session are serialized; the engine itself is stateless.
	mu    sync.Mutex
	locks map[string]*sessionLock

	subsMu sync.Mutex
	subs   map[string]map[chan TurnUpdate]struct{}
}

// TurnUpdate is published to subscribers after a turn is persisted.
type TurnUpdate struct {
	Turn *model.TurnResponse
	// Offset is the transcript index of Records[0].
	Offset int
	// Records are the transcript lines the turn added, the participant's
	// own line included.
	Records []model.MessageRecord
}

// subscriberBuffer bounds how far a slow stream may fall behind before
// updates to it are dropped.
const subscriberBuffer = 16

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionService creates a new session service. owners proves resume
// tokens; without it no participant is ever resumed.
func NewSessionService(engine *onboarding.Engine, sessions session.Store, profiles store.ProfileStore, owners store.ReservationReader, log *logger.Logger) *SessionService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionService{
		engine:   engine,
		sessions: sessions,
		profiles: profiles,
		owners:   owners,
		logger:   log,
		tracer:   otel.Tracer("github.com/greatgiftheist/agent-hq/internal/service"),
		locks:    make(map[string]*sessionLock),
		subs:     make(map[string]map[chan TurnUpdate]struct{}),
	}
}

// Start opens a session. A remembered codename resumes that participant
// only when it comes with the resume token issued to the session that
// reserved it and still resolves to a stored profile; anything else starts a
// new recruit.
func (s *SessionService) Start(ctx context.Context, req *model.StartSessionRequest) (*model.TurnResponse, error) {
	ctx, span := s.tracer.Start(ctx, "session.start")
	defer span.End()

	sc := onboarding.SessionContext{SessionID: uuid.Must(uuid.NewV7()).String()}
	span.SetAttributes(attribute.String("session.id", sc.SessionID))

	if req != nil {
		if returning := s.returningProfile(ctx, req.ReturningCodename, req.ResumeToken); returning != nil {
			sc.Returning = returning
			sc.ResumeToken = req.ResumeToken
			span.SetAttributes(attribute.String("session.codename", returning.Codename))
		}
	}

	snap, out := s.engine.Start(ctx, sc)
	if err := s.sessions.Put(ctx, snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist session")
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.Info("session started",
		zap.String("session_id", snap.SessionID),
		zap.Bool("returning", sc.Returning != nil),
	)
	return turnResponse(snap, out), nil
}

func (s *SessionService) returningProfile(ctx context.Context, name, token string) *model.Profile {
	name = strings.TrimSpace(name)
	if name == "" || token == "" || s.owners == nil {
		return nil
	}

	owner, err := s.owners.ReservationOwner(ctx, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("reservation lookup failed", zap.String("codename", name), zap.Error(err))
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(owner), []byte(token)) != 1 {
		s.logger.Warn("resume token rejected", zap.String("codename", name))
		return nil
	}

	p, err := s.profiles.GetByCodename(ctx, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("returning participant lookup failed", zap.String("codename", name), zap.Error(err))
		}
		return nil
	}
	return &p
}

// Handle feeds one line of participant input to the session.
func (s *SessionService) Handle(ctx context.Context, sessionID, text string) (*model.TurnResponse, error) {
	ctx, span := s.tracer.Start(ctx, "session.handle", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	unlock := s.lock(sessionID)
	defer unlock()

	prev, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("session.state", prev.State.String()))

	next, out := s.engine.Handle(ctx, prev, text)
	if err := s.sessions.Put(ctx, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist session")
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	span.SetAttributes(attribute.String("session.next_state", next.State.String()))
	resp := turnResponse(next, out)
	s.publish(sessionID, resp, prev, next)
	return resp, nil
}

// Subscribe returns a channel of updates for every turn committed to the
// session from now on. The returned func unsubscribes and closes the
// channel.
func (s *SessionService) Subscribe(sessionID string) (<-chan TurnUpdate, func()) {
	ch := make(chan TurnUpdate, subscriberBuffer)

	s.subsMu.Lock()
	set, ok := s.subs[sessionID]
	if !ok {
		set = make(map[chan TurnUpdate]struct{})
		s.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			delete(set, ch)
			if len(set) == 0 {
				delete(s.subs, sessionID)
			}
			close(ch)
		})
	}
}

func (s *SessionService) publish(sessionID string, resp *model.TurnResponse, prev, next onboarding.Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	set := s.subs[sessionID]
	if len(set) == 0 {
		return
	}

	offset := len(prev.Transcript)
	var records []model.MessageRecord
	if len(next.Transcript) > offset {
		records = append(records, next.Transcript[offset:]...)
	}
	update := TurnUpdate{Turn: resp, Offset: offset, Records: records}

	for ch := range set {
		select {
		case ch <- update:
		default:
			s.logger.Warn("stream subscriber behind, dropping update", zap.String("session_id", sessionID))
		}
	}
}

// Get returns the current view of a session.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.SessionView, error) {
	snap, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	transcript := snap.Transcript
	if transcript == nil {
		transcript = []model.MessageRecord{}
	}
	return &model.SessionView{
		SessionID:  snap.SessionID,
		State:      snap.State.String(),
		Codename:   snap.Profile.Codename,
		RealName:   snap.Profile.RealName,
		Transcript: transcript,
		CreatedAt:  snap.CreatedAt,
		UpdatedAt:  snap.UpdatedAt,
	}, nil
}

func (s *SessionService) load(ctx context.Context, sessionID string) (onboarding.Snapshot, error) {
	snap, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return onboarding.Snapshot{}, ErrSessionNotFound
	}
	if err != nil {
		return onboarding.Snapshot{}, fmt.Errorf("failed to load session: %w", err)
	}
	return snap, nil
}

// lock acquires the per-session mutex and returns its release func.
func (s *SessionService) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func turnResponse(snap onboarding.Snapshot, out []model.MessageRecord) *model.TurnResponse {
	if out == nil {
		out = []model.MessageRecord{}
	}
	resp := &model.TurnResponse{
		SessionID: snap.SessionID,
		State:     snap.State.String(),
		Codename:  snap.Profile.Codename,
		Messages:  out,
		Ended:     snap.Ended(),
	}
	if resp.Codename != "" {
		resp.ResumeToken = snap.ResumeToken
	}
	return resp
}
