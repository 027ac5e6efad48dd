package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatgiftheist/agent-hq/internal/model"
)

func TestOpenNewRecruit(t *testing.T) {
	s, effects := Open(Config{}, SessionContext{SessionID: "abc"})
	assert.Equal(t, StateName, s.State)
	assert.False(t, s.Saved)
	assert.Equal(t, "abc", s.ResumeToken)
	require.Len(t, effects, 1)
	assert.IsType(t, EffectEmit{}, effects[0])
}

func TestOpenReturningParticipant(t *testing.T) {
	p := &model.Profile{Codename: "Sly Comet", RealName: "Robin"}
	s, effects := Open(Config{}, SessionContext{SessionID: "abc", Returning: p, ResumeToken: "first"})
	assert.Equal(t, StateComplete, s.State)
	assert.True(t, s.Saved)
	assert.Equal(t, "first", s.ResumeToken)
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].(EffectEmit).Text, "Sly Comet")
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	prev := Snapshot{
		State:   StatePersonality,
		Profile: model.Profile{RealName: "Robin", PersonalityResponses: []string{"one"}},
		Round:   1,
	}
	next, effects := Transition(Config{PersonalityRounds: 3}, prev, "two")

	assert.Equal(t, []string{"one"}, prev.Profile.PersonalityResponses)
	assert.Equal(t, 1, prev.Round)
	assert.Equal(t, []string{"one", "two"}, next.Profile.PersonalityResponses)
	assert.Equal(t, []Effect{EffectAskQuestion{Round: 2}}, effects)
}

func TestTransitionPersonalityRoundsConfigurable(t *testing.T) {
	s := Snapshot{State: StateName}
	s, _ = Transition(Config{PersonalityRounds: 1}, s, "Robin")
	require.Equal(t, StatePersonality, s.State)

	s, effects := Transition(Config{PersonalityRounds: 1}, s, "answer")
	assert.Equal(t, StateCodenameConfirm, s.State)
	assert.Contains(t, effects, Effect(EffectGenerateCodename{}))
}

func TestTransitionFullSaveOnlyAtCompletion(t *testing.T) {
	countSaves := func(effects []Effect) int {
		n := 0
		for _, e := range effects {
			if _, ok := e.(EffectSaveProfile); ok {
				n++
			}
		}
		return n
	}

	s := Snapshot{State: StateRSVP, Profile: model.Profile{Codename: "Jolly Boots"}}
	s, effects := Transition(Config{}, s, "yes")
	assert.Zero(t, countSaves(effects))
	s, effects = Transition(Config{}, s, "2")
	assert.Zero(t, countSaves(effects))
	s, effects = Transition(Config{}, s, "Alice, Bob")
	assert.Zero(t, countSaves(effects))
	s, effects = Transition(Config{}, s, "yes please")
	assert.Zero(t, countSaves(effects))
	s, effects = Transition(Config{}, s, "robin@example.com")
	assert.Zero(t, countSaves(effects))
	s, effects = Transition(Config{}, s, "555-0100")
	assert.Equal(t, 1, countSaves(effects))
	assert.Equal(t, StateComplete, s.State)
	assert.Equal(t, "555-0100", s.Profile.ContactPhone)
}

func TestUpdatePatchCarriesOnlyTheField(t *testing.T) {
	s := Snapshot{State: StateUpdateDietary, Saved: true, Profile: model.Profile{Codename: "Jolly Boots"}}
	s, effects := Transition(Config{}, s, "vegetarian")
	require.Len(t, effects, 2)

	save, ok := effects[0].(EffectSavePatch)
	require.True(t, ok)
	assert.Equal(t, FieldDietary, save.Field)
	require.NotNil(t, save.Patch.DietaryRestrictions)
	assert.Equal(t, "vegetarian", *save.Patch.DietaryRestrictions)
	assert.Nil(t, save.Patch.ConversationLog)
	assert.Nil(t, save.Patch.GuestCount)
	assert.Equal(t, StateComplete, s.State)
}

func TestUpdateFieldCancelNeedsWholeReply(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		input      string
		wantField  Field
		wantCancel bool
	}{
		{name: "email containing back", state: StateUpdateEmail, input: "back.office@example.com", wantField: FieldEmail},
		{name: "email containing stop", state: StateUpdateEmail, input: "stop@example.com", wantField: FieldEmail},
		{name: "dietary mentioning stop", state: StateUpdateDietary, input: "please stop the peanuts", wantField: FieldDietary},
		{name: "bare cancel", state: StateUpdateEmail, input: "cancel", wantCancel: true},
		{name: "go back", state: StateUpdatePhone, input: "Go back.", wantCancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := Snapshot{State: tt.state, Saved: true, Profile: model.Profile{Codename: "Jolly Boots"}}
			next, effects := Transition(Config{}, prev, tt.input)
			assert.Equal(t, StateComplete, next.State)

			if tt.wantCancel {
				assert.Equal(t, []Effect{EffectEmit{Text: msgUpdateCancelled}}, effects)
				return
			}
			require.Len(t, effects, 2)
			save, ok := effects[0].(EffectSavePatch)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, save.Field)
		})
	}
}
