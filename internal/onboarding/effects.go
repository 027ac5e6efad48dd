package onboarding

import "github.com/greatgiftheist/agent-hq/internal/model"

// Effect is a side effect requested by Transition and carried out by the
// Engine, in order.
type Effect interface {
	effect()
}

// EffectEmit sends an HQ line to the participant.
type EffectEmit struct {
	Text string
}

// EffectAskQuestion asks personality question number Round (zero-based).
type EffectAskQuestion struct {
	Round int
}

// EffectGenerateCodename picks a unique codename candidate and presents it.
type EffectGenerateCodename struct{}

// EffectReserveCodename claims Codename in the registry for this session.
type EffectReserveCodename struct {
	Codename string
}

// EffectSaveProfile writes the whole profile, transcript included.
type EffectSaveProfile struct{}

// EffectSavePatch writes a single-field change made in the update flow.
type EffectSavePatch struct {
	Field Field
	Patch model.ProfilePatch
}

// EffectAdvise answers a free-form gift question.
type EffectAdvise struct {
	Question string
}

// EffectShowCard renders the participant's dossier.
type EffectShowCard struct{}

// EffectShowRoster lists the agents who are attending.
type EffectShowRoster struct{}

func (EffectEmit) effect()             {}
func (EffectAskQuestion) effect()      {}
func (EffectGenerateCodename) effect() {}
func (EffectReserveCodename) effect()  {}
func (EffectSaveProfile) effect()      {}
func (EffectSavePatch) effect()        {}
func (EffectAdvise) effect()           {}
func (EffectShowCard) effect()         {}
func (EffectShowRoster) effect()       {}

func emit(text string) EffectEmit {
	return EffectEmit{Text: text}
}
