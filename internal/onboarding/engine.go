package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/codename"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/store"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
	"github.com/greatgiftheist/agent-hq/pkg/metrics"
)

// TextGenerator produces personality questions and codenames. Every error is
// recoverable: the engine falls back to canned content.
type TextGenerator interface {
	NextQuestion(ctx context.Context, history []model.MessageRecord, participantName string, round int) (string, error)
	GenerateCodename(ctx context.Context, participantName string, responses []string) (string, error)
}

// Advisor answers free-form gift questions once onboarding is complete.
type Advisor interface {
	GiftIdeas(ctx context.Context, profile model.Profile, question string) (string, error)
}

// Notifier fires the confirmation signal after a full profile save.
type Notifier interface {
	NotifyConfirmation(ctx context.Context, profile model.Profile) error
}

// Dependencies are the collaborators an Engine calls. Store and Registry are
// required; the rest are optional.
type Dependencies struct {
	Store      store.ProfileStore
	Registry   codename.Registry
	Generator  TextGenerator
	Advisor    Advisor
	SessionLog store.SessionLogWriter
	Notifier   Notifier
}

// Engine runs conversations: it feeds input to Transition and carries out the
// resulting effects. An Engine holds no per-conversation state and is safe
// for concurrent use.
type Engine struct {
	cfg    Config
	deps   Dependencies
	picker *codename.Picker
	logger *logger.Logger
	now    func() time.Time
}

// NewEngine creates an engine.
func NewEngine(cfg Config, deps Dependencies, log *logger.Logger) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("onboarding: profile store is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("onboarding: codename registry is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	cfg = cfg.withDefaults()
	offline := codename.NewOffline(cfg.Content.CodenameWords.Adjectives, cfg.Content.CodenameWords.Nouns)

	return &Engine{
		cfg:    cfg,
		deps:   deps,
		picker: codename.NewPicker(deps.Registry, offline, cfg.MaxCodenameAttempts),
		logger: log,
		now:    time.Now,
	}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// effectError carries the line shown to the participant when an effect
// fails and the turn is rolled back.
type effectError struct {
	userMessage string
	err         error
}

func (e *effectError) Error() string { return e.err.Error() }
func (e *effectError) Unwrap() error { return e.err }

// Start opens a conversation and returns its first snapshot and HQ lines.
func (e *Engine) Start(ctx context.Context, sc SessionContext) (Snapshot, []model.MessageRecord) {
	s, effects := Open(e.cfg, sc)
	now := e.now()
	s.CreatedAt = now
	s.UpdatedAt = now

	out, err := e.apply(ctx, &s, effects)
	if err != nil {
		e.logger.Error("failed to open conversation", zap.String("session_id", sc.SessionID), zap.Error(err))
	}
	metrics.SessionsStarted.WithLabelValues(strconv.FormatBool(sc.Returning != nil)).Inc()
	return s, out
}

// Handle processes one participant line. The returned snapshot is committed
// only if every effect succeeded; otherwise it is prev plus the exchange,
// still in prev's state.
func (e *Engine) Handle(ctx context.Context, prev Snapshot, input string) (Snapshot, []model.MessageRecord) {
	log := e.logger.With(zap.String("session_id", prev.SessionID), zap.String("state", prev.State.String()))
	input = strings.TrimSpace(input)

	next, effects := Transition(e.cfg, prev, input)
	var userLine *model.MessageRecord
	if input != "" {
		userLine = &model.MessageRecord{Sender: model.SenderUser, Text: input, Timestamp: e.now()}
		next.Transcript = append(next.Transcript, *userLine)
	}

	out, err := e.apply(ctx, &next, effects)
	if err != nil {
		text := msgTransmission
		var ee *effectError
		if errors.As(err, &ee) {
			text = ee.userMessage
		}
		log.Error("turn rolled back", zap.Error(err))

		failed := prev.Clone()
		if userLine != nil {
			failed.Transcript = append(failed.Transcript, *userLine)
		}
		line := e.say(&failed, text)
		failed.UpdatedAt = e.now()
		return failed, []model.MessageRecord{line}
	}

	next.UpdatedAt = e.now()
	if next.State != prev.State {
		metrics.StateTransitions.WithLabelValues(prev.State.String(), next.State.String()).Inc()
		log.Debug("state transition", zap.String("to", next.State.String()))
	}
	return next, out
}

func (e *Engine) apply(ctx context.Context, s *Snapshot, effects []Effect) ([]model.MessageRecord, error) {
	var out []model.MessageRecord
	queue := effects
	for len(queue) > 0 {
		eff := queue[0]
		queue = queue[1:]

		switch eff := eff.(type) {
		case EffectEmit:
			out = append(out, e.say(s, eff.Text))

		case EffectAskQuestion:
			out = append(out, e.say(s, e.question(ctx, s, eff.Round)))

		case EffectGenerateCodename:
			outcome, err := e.picker.Pick(ctx, e.codenameSource(s))
			if err != nil {
				return nil, &effectError{userMessage: msgCodenameFailure, err: err}
			}
			e.logger.Debug("codename picked",
				zap.String("session_id", s.SessionID),
				zap.String("codename", outcome.Codename),
				zap.Int("attempts", outcome.Attempts),
				zap.Int("collisions", outcome.Collisions),
				zap.Bool("suffixed", outcome.Suffixed),
				zap.Bool("fallback", outcome.UsedFallback),
			)
			s.Candidate = outcome.Codename
			out = append(out, e.say(s, msgCodenamePresent(outcome.Codename)))

		case EffectReserveCodename:
			ok, err := e.reserve(ctx, eff.Codename, s.SessionID)
			if err != nil {
				return nil, &effectError{userMessage: msgCodenameFailure, err: err}
			}
			if !ok {
				metrics.CodenameOutcomes.WithLabelValues("reserve_conflict").Inc()
				s.State = StateCodenameConfirm
				s.Profile.Codename = ""
				s.CodenameAttempts++
				queue = []Effect{emit(msgCodenameClaimed), EffectGenerateCodename{}}
			}

		case EffectSaveProfile:
			full := s.Profile.Clone()
			full.ConversationLog = append([]model.MessageRecord(nil), s.Transcript...)
			stored, err := e.save(ctx, "full", full.Codename, model.FullPatch(full))
			if err != nil {
				return nil, &effectError{userMessage: msgTransmission, err: err}
			}
			e.commitProfile(s, stored)
			if line, ok := e.archive(ctx, s); !ok {
				out = append(out, line)
			}
			e.notify(ctx, stored)

		case EffectSavePatch:
			if eff.Patch.IsEmpty() {
				continue
			}
			stored, err := e.save(ctx, "patch", s.Profile.Codename, eff.Patch)
			if err != nil {
				return nil, &effectError{userMessage: msgTransmission, err: err}
			}
			e.commitProfile(s, stored)

		case EffectAdvise:
			out = append(out, e.say(s, e.advise(ctx, s, eff.Question)))

		case EffectShowCard:
			out = append(out, e.say(s, renderCard(e.latestProfile(ctx, s))))

		case EffectShowRoster:
			out = append(out, e.say(s, e.roster(ctx)))

		default:
			return nil, fmt.Errorf("unknown effect %T", eff)
		}
	}
	return out, nil
}

// say appends an HQ line to the transcript.
func (e *Engine) say(s *Snapshot, text string) model.MessageRecord {
	line := model.MessageRecord{Sender: model.SenderHQ, Text: text, Timestamp: e.now()}
	s.Transcript = append(s.Transcript, line)
	return line
}

func (e *Engine) commitProfile(s *Snapshot, stored model.Profile) {
	stored.ConversationLog = nil
	s.Profile = stored
	s.Saved = true
}

func (e *Engine) question(ctx context.Context, s *Snapshot, round int) string {
	fallback := e.cfg.Content.FallbackQuestion(round)
	if e.deps.Generator == nil {
		metrics.TextGenFallbacks.WithLabelValues("question").Inc()
		return fallback
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	history := append([]model.MessageRecord(nil), s.Transcript...)
	q, err := e.deps.Generator.NextQuestion(callCtx, history, s.Profile.RealName, round)
	q = strings.TrimSpace(q)
	if err != nil || q == "" {
		e.logger.Warn("question generation failed, using fallback",
			zap.String("session_id", s.SessionID), zap.Int("round", round), zap.Error(err))
		metrics.TextGenFallbacks.WithLabelValues("question").Inc()
		return fallback
	}
	return q
}

func (e *Engine) codenameSource(s *Snapshot) codename.GenerateFunc {
	if e.deps.Generator == nil {
		return nil
	}
	name := s.Profile.RealName
	responses := append([]string(nil), s.Profile.PersonalityResponses...)
	return func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
		return e.deps.Generator.GenerateCodename(callCtx, name, responses)
	}
}

func (e *Engine) reserve(ctx context.Context, name, owner string) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	ok, err := e.deps.Registry.Reserve(callCtx, name, owner)
	if err != nil {
		return false, fmt.Errorf("reserve codename %q: %w", name, err)
	}
	return ok, nil
}

// save upserts with bounded exponential backoff.
func (e *Engine) save(ctx context.Context, kind, name string, patch model.ProfilePatch) (model.Profile, error) {
	var stored model.Profile
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
		defer cancel()

		p, err := e.deps.Store.Upsert(callCtx, name, patch)
		if err != nil {
			return err
		}
		stored = p
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.cfg.SaveRetries)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		e.logger.Warn("profile save failed, retrying",
			zap.String("codename", name), zap.String("kind", kind), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		metrics.ProfileSaves.WithLabelValues(kind, "error").Inc()
		return model.Profile{}, fmt.Errorf("save profile %q: %w", name, err)
	}
	metrics.ProfileSaves.WithLabelValues(kind, "success").Inc()
	return stored, nil
}

// archive writes the secondary session log. A failure yields a warning line
// for the participant and never undoes the profile save.
func (e *Engine) archive(ctx context.Context, s *Snapshot) (model.MessageRecord, bool) {
	if e.deps.SessionLog == nil {
		return model.MessageRecord{}, true
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	entry := model.SessionLog{
		SessionID:  s.SessionID,
		Codename:   s.Profile.Codename,
		Attendance: s.Profile.AttendanceStatus,
		Transcript: append([]model.MessageRecord(nil), s.Transcript...),
		CreatedAt:  e.now(),
	}
	if err := e.deps.SessionLog.AppendSessionLog(callCtx, entry); err != nil {
		e.logger.Warn("session log write failed",
			zap.String("session_id", s.SessionID), zap.String("codename", s.Profile.Codename), zap.Error(err))
		return e.say(s, msgSessionLogFailed), false
	}
	return model.MessageRecord{}, true
}

// notify fires the confirmation signal without waiting for it.
func (e *Engine) notify(ctx context.Context, p model.Profile) {
	if e.deps.Notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
		defer cancel()
		if err := e.deps.Notifier.NotifyConfirmation(callCtx, p); err != nil {
			e.logger.Warn("confirmation notification failed", zap.String("codename", p.Codename), zap.Error(err))
		}
	}()
}

func (e *Engine) advise(ctx context.Context, s *Snapshot, question string) string {
	fallback := e.cfg.Content.Render(e.cfg.Content.Answers.GiftIdeas, nil)
	if e.deps.Advisor == nil {
		return fallback
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	answer, err := e.deps.Advisor.GiftIdeas(callCtx, s.Profile, question)
	answer = strings.TrimSpace(answer)
	if err != nil || answer == "" {
		e.logger.Warn("gift advice failed, using canned answer", zap.String("session_id", s.SessionID), zap.Error(err))
		metrics.TextGenFallbacks.WithLabelValues("advice").Inc()
		return fallback
	}
	return answer
}

// latestProfile prefers the stored copy so the card reflects edits made
// elsewhere.
func (e *Engine) latestProfile(ctx context.Context, s *Snapshot) model.Profile {
	if !s.Saved || s.Profile.Codename == "" {
		return s.Profile
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	p, err := e.deps.Store.GetByCodename(callCtx, s.Profile.Codename)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("profile lookup failed", zap.String("codename", s.Profile.Codename), zap.Error(err))
		}
		return s.Profile
	}
	return p
}

func (e *Engine) roster(ctx context.Context) string {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	profiles, err := e.deps.Store.List(callCtx)
	if err != nil {
		e.logger.Warn("roster lookup failed", zap.Error(err))
		return msgRosterFailed
	}
	return renderRoster(profiles)
}

// Conversation is a single participant's session driven in-process.
type Conversation struct {
	engine *Engine

	mu   sync.Mutex
	snap Snapshot
}

// NewConversation starts a conversation and returns HQ's opening lines.
func (e *Engine) NewConversation(ctx context.Context, sc SessionContext) (*Conversation, []model.MessageRecord) {
	snap, out := e.Start(ctx, sc)
	return &Conversation{engine: e, snap: snap}, out
}

// Send feeds one line of input and returns HQ's replies.
func (c *Conversation) Send(ctx context.Context, input string) []model.MessageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, out := c.engine.Handle(ctx, c.snap, input)
	c.snap = next
	return out
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}
