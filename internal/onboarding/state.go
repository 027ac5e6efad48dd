// Package onboarding drives the HQ recruitment conversation: identity,
// personality, codename, RSVP, guests and the post-onboarding update flow.
package onboarding

// State is one step of the onboarding conversation.
type State string

const (
	StateGreeting          State = "greeting"
	StateName              State = "name"
	StatePersonality       State = "personality"
	StateCodenameConfirm   State = "codename_confirm"
	StateRSVP              State = "rsvp"
	StateGuestsCount       State = "guests_count"
	StateGuestNames        State = "guest_names"
	StateRemindersOptIn    State = "reminders_opt_in"
	StateReminderEmail     State = "reminder_email"
	StateReminderPhone     State = "reminder_phone"
	StateComplete          State = "complete"
	StateUpdateMenu        State = "update_menu"
	StateUpdateAttendance  State = "update_attendance"
	StateUpdateGuestsCount State = "update_guests_count"
	StateUpdateGuestNames  State = "update_guest_names"
	StateUpdateDietary     State = "update_dietary"
	StateUpdateEmail       State = "update_email"
	StateUpdatePhone       State = "update_phone"
	StateEnded             State = "ended"
)

// Onboarding reports whether s belongs to the primary flow that ends with the
// first full profile save.
func (s State) Onboarding() bool {
	switch s {
	case StateGreeting, StateName, StatePersonality, StateCodenameConfirm, StateRSVP,
		StateGuestsCount, StateGuestNames, StateRemindersOptIn, StateReminderEmail, StateReminderPhone:
		return true
	}
	return false
}

// Updating reports whether s is part of the update sub-flow.
func (s State) Updating() bool {
	switch s {
	case StateUpdateMenu, StateUpdateAttendance, StateUpdateGuestsCount, StateUpdateGuestNames,
		StateUpdateDietary, StateUpdateEmail, StateUpdatePhone:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}
