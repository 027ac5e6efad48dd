package onboarding

import (
	"strings"
	"time"

	"github.com/greatgiftheist/agent-hq/internal/content"
	"github.com/greatgiftheist/agent-hq/internal/model"
)

// DefaultPersonalityRounds is the number of personality questions asked when
// Config leaves it unset.
const DefaultPersonalityRounds = 3

// Config tunes the conversation and its collaborator calls.
type Config struct {
	// PersonalityRounds is how many personality questions are asked.
	PersonalityRounds int
	// Content supplies party facts, canned answers and fallback questions.
	Content *content.Pack
	// CallTimeout bounds each text-generation call.
	CallTimeout time.Duration
	// StoreTimeout bounds each store, registry or journal call.
	StoreTimeout time.Duration
	// SaveRetries is how many times a failed profile save is retried.
	SaveRetries int
	// RetryInterval is the first backoff interval between save retries.
	RetryInterval time.Duration
	// MaxCodenameAttempts bounds codename generation before suffixing.
	MaxCodenameAttempts int
}

func (c Config) withDefaults() Config {
	if c.PersonalityRounds <= 0 {
		c.PersonalityRounds = DefaultPersonalityRounds
	}
	if c.Content == nil {
		c.Content = content.Default()
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.SaveRetries < 0 {
		c.SaveRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	return c
}

// SessionContext is resolved by the caller before a conversation opens.
type SessionContext struct {
	SessionID string
	// Returning is the stored profile of a participant recognised from an
	// earlier visit, or nil for a new recruit.
	Returning *model.Profile

	// ResumeToken is the secret presented to resume Returning. It is the ID
	// of the session that first reserved the codename.
	ResumeToken string
}

// Snapshot is the complete, serializable state of one conversation.
type Snapshot struct {
	SessionID string `json:"session_id"`
	State     State  `json:"state"`

	// ResumeToken lets the participant open a later session as the same
	// agent. It is the reserving session's ID.
	ResumeToken string `json:"resume_token"`

	// Profile is the in-memory profile. Nothing is written to the store
	// until the primary flow completes.
	Profile model.Profile `json:"profile"`
	// Saved is true once the profile exists in the store.
	Saved bool `json:"saved"`

	Round             int    `json:"round"`
	Candidate         string `json:"candidate,omitempty"`
	CodenameAttempts  int    `json:"codename_attempts"`
	PendingGuestCount int    `json:"pending_guest_count,omitempty"`

	Transcript []model.MessageRecord `json:"transcript"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Profile = s.Profile.Clone()
	if s.Transcript != nil {
		out.Transcript = make([]model.MessageRecord, len(s.Transcript))
		copy(out.Transcript, s.Transcript)
	}
	return out
}

// Ended reports whether the participant signed off.
func (s Snapshot) Ended() bool {
	return s.State == StateEnded
}

// Open starts a conversation. A returning participant goes straight to
// StateComplete with a welcome back; everyone else is greeted and asked for
// their name.
func Open(cfg Config, sc SessionContext) (Snapshot, []Effect) {
	cfg = cfg.withDefaults()
	s := Snapshot{SessionID: sc.SessionID, ResumeToken: sc.SessionID, State: StateGreeting}

	if sc.Returning != nil {
		s.ResumeToken = sc.ResumeToken
		s.Profile = sc.Returning.Clone()
		s.Profile.ConversationLog = nil
		s.Saved = true
		s.State = StateComplete
		text := cfg.Content.Render(cfg.Content.WelcomeBack, map[string]string{
			"codename": s.Profile.Codename,
			"name":     s.Profile.RealName,
		})
		return s, []Effect{emit(text)}
	}

	s.State = StateName
	return s, []Effect{emit(cfg.Content.Render(cfg.Content.Greeting, nil))}
}

// Transition computes the next snapshot and the effects needed to reach it.
// It performs no I/O; the returned snapshot is tentative until the effects
// succeed.
func Transition(cfg Config, prev Snapshot, input string) (Snapshot, []Effect) {
	cfg = cfg.withDefaults()
	s := prev.Clone()
	input = strings.TrimSpace(input)

	if s.State == StateEnded {
		return s, []Effect{emit(msgEnded)}
	}
	if input == "" {
		return s, []Effect{emit(msgEmpty)}
	}

	switch s.State {
	case StateGreeting:
		s.State = StateName
		return s, []Effect{emit(cfg.Content.Render(cfg.Content.Greeting, nil))}
	case StateName:
		return onName(cfg, s, input)
	case StatePersonality:
		return onPersonality(cfg, s, input)
	case StateCodenameConfirm:
		return onCodenameConfirm(cfg, s, input)
	case StateRSVP:
		return onRSVP(s, input)
	case StateGuestsCount:
		return onGuestsCount(s, input)
	case StateGuestNames:
		return onGuestNames(s, input)
	case StateRemindersOptIn:
		return onRemindersOptIn(s, input)
	case StateReminderEmail:
		return onReminderEmail(s, input)
	case StateReminderPhone:
		return onReminderPhone(s, input)
	case StateComplete:
		return onComplete(cfg, s, input)
	case StateUpdateMenu:
		return onUpdateMenu(s, input)
	}
	if s.State.Updating() {
		return onUpdateField(s, input)
	}

	// Unknown state from a stale snapshot: park it at complete.
	s.State = StateComplete
	return s, []Effect{emit(msgComplete)}
}

func onName(cfg Config, s Snapshot, input string) (Snapshot, []Effect) {
	s.Profile.RealName = input
	s.Profile.PersonalityResponses = []string{}
	s.Round = 0
	s.State = StatePersonality
	intro := cfg.Content.Render(cfg.Content.PersonalityIntro, map[string]string{"name": input})
	return s, []Effect{emit(intro), EffectAskQuestion{Round: 0}}
}

func onPersonality(cfg Config, s Snapshot, input string) (Snapshot, []Effect) {
	s.Profile.PersonalityResponses = append(s.Profile.PersonalityResponses, input)
	s.Round++
	if s.Round < cfg.PersonalityRounds {
		return s, []Effect{EffectAskQuestion{Round: s.Round}}
	}
	s.State = StateCodenameConfirm
	s.CodenameAttempts = 1
	return s, []Effect{emit(msgAnalyzing), EffectGenerateCodename{}}
}

func onCodenameConfirm(cfg Config, s Snapshot, input string) (Snapshot, []Effect) {
	if ClassifyConsent(input) != ConsentAccept || s.Candidate == "" {
		s.CodenameAttempts++
		s.Candidate = ""
		return s, []Effect{emit(msgCodenameRetry), EffectGenerateCodename{}}
	}

	name := s.Candidate
	s.Profile.Codename = name
	s.Candidate = ""
	s.State = StateRSVP
	return s, []Effect{
		EffectReserveCodename{Codename: name},
		emit(msgCodenameConfirmed(name, cfg.Content.Event.Name, cfg.Content.Event.Date)),
	}
}

func onRSVP(s Snapshot, input string) (Snapshot, []Effect) {
	switch ClassifyRSVP(input) {
	case RSVPAttending:
		s.Profile.AttendanceStatus = model.AttendanceAttending
		s.State = StateGuestsCount
		return s, []Effect{emit(msgAttending)}
	case RSVPDeclining:
		s.Profile.AttendanceStatus = model.AttendanceNotAttending
		s.Profile.GuestCount = 0
		s.Profile.GuestNames = []string{}
		return finish(s, msgDeclined(s.Profile.Codename))
	default:
		s.Profile.AttendanceStatus = model.AttendanceUncertain
		s.Profile.GuestCount = 0
		s.Profile.GuestNames = []string{}
		return finish(s, msgUncertain(s.Profile.Codename))
	}
}

func onGuestsCount(s Snapshot, input string) (Snapshot, []Effect) {
	n, ok := ParseGuestCount(input)
	if !ok {
		return s, []Effect{emit(msgGuestCountRetry)}
	}
	s.Profile.GuestCount = n
	if n == 0 {
		s.Profile.GuestNames = []string{}
		s.State = StateRemindersOptIn
		return s, []Effect{emit(msgRemindersAsk)}
	}
	s.State = StateGuestNames
	return s, []Effect{emit(msgGuestNamesAsk(n))}
}

func onGuestNames(s Snapshot, input string) (Snapshot, []Effect) {
	names := ParseGuestNames(input)
	if len(names) == 0 {
		return s, []Effect{emit(msgGuestNamesRetry)}
	}
	s.Profile.GuestNames = names
	s.State = StateRemindersOptIn
	return s, []Effect{emit(msgRemindersAsk)}
}

func onRemindersOptIn(s Snapshot, input string) (Snapshot, []Effect) {
	if ClassifyConsent(input) == ConsentAccept {
		s.Profile.WantsReminders = true
		s.State = StateReminderEmail
		return s, []Effect{emit(msgEmailAsk)}
	}
	s.Profile.WantsReminders = false
	return finish(s, msgRemindersDeclined)
}

func onReminderEmail(s Snapshot, input string) (Snapshot, []Effect) {
	if !ValidEmail(input) {
		return s, []Effect{emit(msgEmailRetry)}
	}
	s.Profile.ContactEmail = input
	s.State = StateReminderPhone
	return s, []Effect{emit(msgPhoneAsk)}
}

func onReminderPhone(s Snapshot, input string) (Snapshot, []Effect) {
	if IsSkip(input) {
		s.Profile.ContactPhone = ""
	} else {
		s.Profile.ContactPhone = input
	}
	return finish(s, msgContactSaved)
}

// finish ends the primary flow with the one full profile save.
func finish(s Snapshot, ack string) (Snapshot, []Effect) {
	if s.Profile.GuestNames == nil {
		s.Profile.GuestNames = []string{}
	}
	s.State = StateComplete
	return s, []Effect{emit(ack), EffectSaveProfile{}, emit(msgComplete)}
}

func onComplete(cfg Config, s Snapshot, input string) (Snapshot, []Effect) {
	answers := cfg.Content.Answers
	switch ClassifyCommand(input) {
	case CommandExit:
		s.State = StateEnded
		return s, []Effect{emit(cfg.Content.Render(answers.Exit, nil))}
	case CommandCard:
		return s, []Effect{EffectShowCard{}}
	case CommandRoster:
		return s, []Effect{EffectShowRoster{}}
	case CommandUpdate:
		s.State = StateUpdateMenu
		return s, []Effect{emit(msgUpdateMenu)}
	case CommandGiftIdeas:
		return s, []Effect{EffectAdvise{Question: input}}
	case CommandFood:
		return s, []Effect{emit(cfg.Content.Render(answers.Food, nil))}
	case CommandRules:
		return s, []Effect{emit(cfg.Content.Render(answers.Rules, nil))}
	case CommandLogistics:
		return s, []Effect{emit(cfg.Content.Render(answers.Logistics, nil))}
	case CommandHelp:
		return s, []Effect{emit(msgComplete)}
	}
	return s, []Effect{emit(cfg.Content.Render(answers.Help, nil))}
}

func onUpdateMenu(s Snapshot, input string) (Snapshot, []Effect) {
	switch ClassifyUpdateField(input) {
	case FieldCancel:
		s.State = StateComplete
		return s, []Effect{emit(msgUpdateCancelled)}
	case FieldCodename:
		return s, []Effect{emit(msgCodenameLocked)}
	case FieldAttendance:
		s.State = StateUpdateAttendance
		return s, []Effect{emit(msgAskAttendance)}
	case FieldGuests:
		s.State = StateUpdateGuestsCount
		return s, []Effect{emit(msgAskGuests)}
	case FieldDietary:
		s.State = StateUpdateDietary
		return s, []Effect{emit(msgAskDietary)}
	case FieldEmail:
		s.State = StateUpdateEmail
		return s, []Effect{emit(msgEmailAsk)}
	case FieldPhone:
		s.State = StateUpdatePhone
		return s, []Effect{emit(msgAskPhone)}
	}
	return s, []Effect{emit(msgUpdateUnknown)}
}

// onUpdateField handles the second step of every update dialogue.
func onUpdateField(s Snapshot, input string) (Snapshot, []Effect) {
	if IsCancelReply(input) {
		s.State = StateComplete
		s.PendingGuestCount = 0
		return s, []Effect{emit(msgUpdateCancelled)}
	}

	var (
		field Field
		patch model.ProfilePatch
	)
	switch s.State {
	case StateUpdateAttendance:
		status := model.AttendanceUncertain
		switch ClassifyRSVP(input) {
		case RSVPAttending:
			status = model.AttendanceAttending
		case RSVPDeclining:
			status = model.AttendanceNotAttending
		}
		field = FieldAttendance
		patch.AttendanceStatus = &status

	case StateUpdateGuestsCount:
		n, ok := ParseGuestCount(input)
		if !ok {
			return s, []Effect{emit(msgGuestCountRetry)}
		}
		if n > 0 {
			s.PendingGuestCount = n
			s.State = StateUpdateGuestNames
			return s, []Effect{emit(msgGuestNamesAsk(n))}
		}
		names := []string{}
		field = FieldGuests
		patch.GuestCount = &n
		patch.GuestNames = &names

	case StateUpdateGuestNames:
		names := ParseGuestNames(input)
		if len(names) == 0 {
			return s, []Effect{emit(msgGuestNamesRetry)}
		}
		n := s.PendingGuestCount
		field = FieldGuests
		patch.GuestCount = &n
		patch.GuestNames = &names

	case StateUpdateDietary:
		dietary := input
		if IsSkip(input) {
			dietary = ""
		}
		field = FieldDietary
		patch.DietaryRestrictions = &dietary

	case StateUpdateEmail:
		if !ValidEmail(input) {
			return s, []Effect{emit(msgEmailRetry)}
		}
		email := input
		field = FieldEmail
		patch.ContactEmail = &email

	case StateUpdatePhone:
		phone := input
		if IsSkip(input) {
			phone = ""
		}
		field = FieldPhone
		patch.ContactPhone = &phone
	}

	patch.Apply(&s.Profile)
	s.PendingGuestCount = 0
	s.State = StateComplete
	return s, []Effect{EffectSavePatch{Field: field, Patch: patch}, emit(msgUpdated(field))}
}
