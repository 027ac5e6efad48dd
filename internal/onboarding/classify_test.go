package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyConsent(t *testing.T) {
	tests := []struct {
		input string
		want  Consent
	}{
		{"yes", ConsentAccept},
		{"Sure, I'll take it", ConsentAccept},
		{"I like it", ConsentAccept},
		{"accept", ConsentAccept},
		{"I don't like it", ConsentReject},
		{"no", ConsentReject},
		{"give me another one", ConsentReject},
		{"I know what you mean", ConsentAmbiguous},
		{"hmm", ConsentAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyConsent(tt.input))
		})
	}
}

func TestClassifyRSVP(t *testing.T) {
	tests := []struct {
		input string
		want  RSVP
	}{
		{"yes", RSVPAttending},
		{"Definitely!", RSVPAttending},
		{"I accept", RSVPAttending},
		{"can't wait", RSVPAttending},
		{"no", RSVPDeclining},
		{"I must decline", RSVPDeclining},
		{"I can't make it", RSVPDeclining},
		{"maybe", RSVPUncertain},
		{"I know it's soon", RSVPUncertain},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRSVP(tt.input))
		})
	}
}

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"exit", CommandExit},
		{"show my card", CommandCard},
		{"roster", CommandRoster},
		{"who's coming?", CommandRoster},
		{"update", CommandUpdate},
		{"any gift ideas?", CommandGiftIdeas},
		{"what food is there", CommandFood},
		{"what are the rules", CommandRules},
		{"where is it", CommandLogistics},
		{"help", CommandHelp},
		{"tell me a joke", CommandFreeText},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCommand(tt.input))
		})
	}
}

func TestClassifyUpdateField(t *testing.T) {
	tests := []struct {
		input string
		want  Field
	}{
		{"guests", FieldGuests},
		{"my plus one", FieldGuests},
		{"email", FieldEmail},
		{"e-mail", FieldEmail},
		{"phone number", FieldPhone},
		{"dietary", FieldDietary},
		{"attendance", FieldAttendance},
		{"rsvp", FieldAttendance},
		{"change my codename", FieldCodename},
		{"cancel", FieldCancel},
		{"nevermind", FieldCancel},
		{"shoe size", FieldUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyUpdateField(tt.input))
		})
	}
}
