package onboarding

import (
	"slices"
	"strings"
	"unicode"
)

// Consent is the classification of a yes/no style reply.
type Consent int

const (
	ConsentAmbiguous Consent = iota
	ConsentAccept
	ConsentReject
)

// RSVP is the classification of an attendance reply.
type RSVP int

const (
	RSVPUncertain RSVP = iota
	RSVPAttending
	RSVPDeclining
)

// Command is a request typed once onboarding is complete.
type Command int

const (
	CommandFreeText Command = iota
	CommandExit
	CommandCard
	CommandRoster
	CommandUpdate
	CommandGiftIdeas
	CommandFood
	CommandRules
	CommandLogistics
	CommandHelp
)

// Field is the profile field picked from the update menu.
type Field int

const (
	FieldUnknown Field = iota
	FieldCancel
	FieldCodename
	FieldAttendance
	FieldGuests
	FieldDietary
	FieldEmail
	FieldPhone
)

var (
	consentNegated = []string{"don't like", "dont like", "do not like", "not sure", "no thanks", "no way"}
	consentAccept  = []string{"yes", "yeah", "yep", "yup", "accept", "accepted", "sure", "like", "love", "ok", "okay", "please", "absolutely", "definitely"}
	consentReject  = []string{"no", "nope", "nah", "reject", "another", "different", "new", "hate", "pass"}

	rsvpEager     = []string{"can't wait", "cant wait", "wouldn't miss", "wouldnt miss"}
	rsvpNegated   = []string{"can't", "cant", "cannot", "won't", "wont", "not coming", "not attending", "not going", "unable"}
	rsvpAttending = []string{"yes", "yeah", "yep", "accept", "definitely", "absolutely", "attending", "count me in", "i'm in", "im in", "of course"}
	rsvpDeclining = []string{"no", "nope", "nah", "decline", "declined", "sadly not"}

	cancelWords = []string{"cancel", "back", "nevermind", "never mind", "abort", "stop"}
	skipWords   = []string{"skip", "none", "no", "n/a", "na", "nothing", "pass"}
)

type commandRule struct {
	command  Command
	keywords []string
}

var commandRules = []commandRule{
	{CommandExit, []string{"exit", "quit", "bye", "goodbye", "logout", "log out", "sign off"}},
	{CommandUpdate, []string{"update", "edit", "change", "modify"}},
	{CommandCard, []string{"card", "dossier", "my profile", "my info", "id"}},
	{CommandRoster, []string{"roster", "agents", "who's coming", "who is coming", "whos coming", "guest list"}},
	{CommandGiftIdeas, []string{"gift ideas", "gift idea", "gift", "gifts", "present", "ideas", "what to bring"}},
	{CommandFood, []string{"food", "eat", "eating", "dinner", "snacks", "drinks", "menu", "dietary"}},
	{CommandRules, []string{"rules", "rule", "how to play", "how does it work", "steal", "steals", "game"}},
	{CommandLogistics, []string{"logistics", "where", "when", "time", "date", "location", "address", "venue", "parking", "directions"}},
	{CommandHelp, []string{"help", "commands", "options"}},
}

type fieldRule struct {
	field    Field
	keywords []string
}

var fieldRules = []fieldRule{
	{FieldCodename, []string{"codename", "code name", "rename", "alias"}},
	{FieldGuests, []string{"guest", "guests", "plus one", "plus ones", "companions"}},
	{FieldEmail, []string{"email", "mail", "address"}},
	{FieldPhone, []string{"phone", "mobile", "cell", "number", "text"}},
	{FieldDietary, []string{"dietary", "diet", "food", "allergy", "allergies", "vegetarian", "vegan"}},
	{FieldAttendance, []string{"attendance", "rsvp", "attending", "coming", "status"}},
}

// tokens lowercases text and splits it into words. Apostrophes stay inside
// words so "can't" remains one token.
func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '/'
	})
}

// matcher answers keyword queries against one piece of text. Single-word
// keywords match whole tokens and multi-word keywords match token phrases, so
// "know" never matches "no".
type matcher struct {
	words  map[string]struct{}
	joined string
}

func newMatcher(text string) matcher {
	toks := tokens(strings.ReplaceAll(text, "’", "'"))
	m := matcher{words: make(map[string]struct{}, len(toks))}
	for _, t := range toks {
		m.words[t] = struct{}{}
	}
	m.joined = " " + strings.Join(toks, " ") + " "
	return m
}

func (m matcher) has(keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(m.joined, " "+keyword+" ")
	}
	_, ok := m.words[keyword]
	return ok
}

func (m matcher) any(keywords []string) bool {
	for _, k := range keywords {
		if m.has(k) {
			return true
		}
	}
	return false
}

// ClassifyConsent classifies a reply to a yes/no question.
func ClassifyConsent(text string) Consent {
	m := newMatcher(text)
	switch {
	case m.any(consentNegated):
		return ConsentReject
	case m.any(consentAccept):
		return ConsentAccept
	case m.any(consentReject):
		return ConsentReject
	}
	return ConsentAmbiguous
}

// ClassifyRSVP classifies a reply to the attendance question.
func ClassifyRSVP(text string) RSVP {
	m := newMatcher(text)
	switch {
	case m.any(rsvpEager):
		return RSVPAttending
	case m.any(rsvpNegated):
		return RSVPDeclining
	case m.any(rsvpAttending):
		return RSVPAttending
	case m.any(rsvpDeclining):
		return RSVPDeclining
	}
	return RSVPUncertain
}

// ClassifyCommand maps text typed after onboarding to a command. Rules are
// checked in order and the first match wins.
func ClassifyCommand(text string) Command {
	m := newMatcher(text)
	for _, rule := range commandRules {
		if m.any(rule.keywords) {
			return rule.command
		}
	}
	return CommandFreeText
}

// ClassifyUpdateField maps an update menu reply to a profile field.
func ClassifyUpdateField(text string) Field {
	if IsCancel(text) {
		return FieldCancel
	}
	m := newMatcher(text)
	for _, rule := range fieldRules {
		if m.any(rule.keywords) {
			return rule.field
		}
	}
	return FieldUnknown
}

// IsCancel reports whether text asks to abandon the current update.
func IsCancel(text string) bool {
	return newMatcher(text).any(cancelWords)
}

// IsCancelReply reports whether the whole reply is a cancel phrase. Field
// answers use it so that a value merely containing one, such as
// "back.office@example.com", is still taken as the answer.
func IsCancelReply(text string) bool {
	phrase := strings.Join(tokens(strings.ReplaceAll(text, "’", "'")), " ")
	phrase = strings.TrimPrefix(phrase, "go ")
	return slices.Contains(cancelWords, phrase)
}

// IsSkip reports whether text declines an optional answer.
func IsSkip(text string) bool {
	m := newMatcher(text)
	if m.has("skip") {
		return true
	}
	// The other skip words only count when they are the whole reply.
	return len(m.words) == 1 && m.any(skipWords)
}
