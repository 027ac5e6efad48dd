// Package model defines data structures for the agent onboarding service.
package model

import (
	"time"
)

// AttendanceStatus is the RSVP intent recorded for a participant.
type AttendanceStatus string

const (
	AttendanceAttending    AttendanceStatus = "attending"
	AttendanceNotAttending AttendanceStatus = "not_attending"
	AttendanceUncertain    AttendanceStatus = "uncertain"
)

// Valid reports whether s is one of the known attendance values.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceAttending, AttendanceNotAttending, AttendanceUncertain:
		return true
	}
	return false
}

// Sender identifies who wrote a transcript line.
type Sender string

const (
	SenderHQ   Sender = "HQ"
	SenderUser Sender = "USER"
)

// MessageRecord is one line of the onboarding transcript.
type MessageRecord struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the durable record for one participant, keyed by codename.
type Profile struct {
	// Identity
	Codename string `json:"codename"`
	RealName string `json:"real_name"`

	// Contact
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`

	// RSVP
	AttendanceStatus    AttendanceStatus `json:"attendance_status,omitempty"`
	GuestCount          int              `json:"guest_count"`
	GuestNames          []string         `json:"guest_names"`
	DietaryRestrictions string           `json:"dietary_restrictions,omitempty"`
	WantsReminders      bool             `json:"wants_reminders"`

	// Onboarding artifacts
	PersonalityResponses []string        `json:"personality_responses,omitempty"`
	ConversationLog      []MessageRecord `json:"conversation_log,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the profile so callers can mutate slices freely.
func (p Profile) Clone() Profile {
	out := p
	out.GuestNames = cloneStrings(p.GuestNames)
	out.PersonalityResponses = cloneStrings(p.PersonalityResponses)
	if p.ConversationLog != nil {
		out.ConversationLog = make([]MessageRecord, len(p.ConversationLog))
		copy(out.ConversationLog, p.ConversationLog)
	}
	return out
}

// ProfilePatch carries the fields of one upsert. Nil fields are left untouched.
type ProfilePatch struct {
	RealName             *string           `json:"real_name,omitempty"`
	ContactEmail         *string           `json:"contact_email,omitempty"`
	ContactPhone         *string           `json:"contact_phone,omitempty"`
	AttendanceStatus     *AttendanceStatus `json:"attendance_status,omitempty"`
	GuestCount           *int              `json:"guest_count,omitempty"`
	GuestNames           *[]string         `json:"guest_names,omitempty"`
	DietaryRestrictions  *string           `json:"dietary_restrictions,omitempty"`
	WantsReminders       *bool             `json:"wants_reminders,omitempty"`
	PersonalityResponses *[]string         `json:"personality_responses,omitempty"`
	ConversationLog      *[]MessageRecord  `json:"conversation_log,omitempty"`
}

// FullPatch builds a patch that writes every onboarding field of p,
// transcript included.
func FullPatch(p Profile) ProfilePatch {
	p = p.Clone()
	if p.GuestNames == nil {
		p.GuestNames = []string{}
	}
	return ProfilePatch{
		RealName:             &p.RealName,
		ContactEmail:         &p.ContactEmail,
		ContactPhone:         &p.ContactPhone,
		AttendanceStatus:     &p.AttendanceStatus,
		GuestCount:           &p.GuestCount,
		GuestNames:           &p.GuestNames,
		DietaryRestrictions:  &p.DietaryRestrictions,
		WantsReminders:       &p.WantsReminders,
		PersonalityResponses: &p.PersonalityResponses,
		ConversationLog:      &p.ConversationLog,
	}
}

// IsEmpty reports whether the patch would change nothing.
func (pp ProfilePatch) IsEmpty() bool {
	return pp.RealName == nil && pp.ContactEmail == nil && pp.ContactPhone == nil &&
		pp.AttendanceStatus == nil && pp.GuestCount == nil && pp.GuestNames == nil &&
		pp.DietaryRestrictions == nil && pp.WantsReminders == nil &&
		pp.PersonalityResponses == nil && pp.ConversationLog == nil
}

// Apply writes the non-nil fields of the patch onto p.
func (pp ProfilePatch) Apply(p *Profile) {
	if pp.RealName != nil {
		p.RealName = *pp.RealName
	}
	if pp.ContactEmail != nil {
		p.ContactEmail = *pp.ContactEmail
	}
	if pp.ContactPhone != nil {
		p.ContactPhone = *pp.ContactPhone
	}
	if pp.AttendanceStatus != nil {
		p.AttendanceStatus = *pp.AttendanceStatus
	}
	if pp.GuestCount != nil {
		p.GuestCount = *pp.GuestCount
	}
	if pp.GuestNames != nil {
		p.GuestNames = cloneStrings(*pp.GuestNames)
	}
	if pp.DietaryRestrictions != nil {
		p.DietaryRestrictions = *pp.DietaryRestrictions
	}
	if pp.WantsReminders != nil {
		p.WantsReminders = *pp.WantsReminders
	}
	if pp.PersonalityResponses != nil {
		p.PersonalityResponses = cloneStrings(*pp.PersonalityResponses)
	}
	if pp.ConversationLog != nil {
		p.ConversationLog = make([]MessageRecord, len(*pp.ConversationLog))
		copy(p.ConversationLog, *pp.ConversationLog)
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
