package onboarding

import (
	"fmt"
	"strings"

	"github.com/greatgiftheist/agent-hq/internal/model"
)

const (
	msgEmpty             = "Transmission unclear. HQ needs an answer to continue."
	msgAnalyzing         = "Analyzing your psychological profile..."
	msgCodenameRetry     = "Understood. Generating a new codename..."
	msgCodenameClaimed   = "Another agent claimed that codename a moment ago. Generating a new one..."
	msgAttending         = "Excellent. How many guests are you bringing? Say \"just me\" if you're flying solo."
	msgGuestCountRetry   = "HQ couldn't read that number. How many guests are you bringing? Try \"two\" or \"just me\"."
	msgGuestNamesRetry   = "HQ needs at least one name. Separate names with commas."
	msgRemindersAsk      = "Would you like HQ to send you reminders before the mission?"
	msgRemindersDeclined = "No reminders. Radio silence it is."
	msgEmailAsk          = "What email should HQ use for reminders?"
	msgEmailRetry        = "That email address doesn't look right. It needs an @."
	msgPhoneAsk          = "And a phone number for text alerts? Type \"skip\" to leave it blank."
	msgContactSaved      = "Contact details logged."
	msgComplete          = "Your dossier is on file. Type \"card\", \"roster\", \"update\", \"gift ideas\", \"food\", \"rules\", \"logistics\" or \"exit\"."
	msgUpdateMenu        = "What would you like to update: attendance, guests, dietary, email or phone? Type \"cancel\" to go back."
	msgUpdateUnknown     = "HQ doesn't have a field by that name. Choose attendance, guests, dietary, email or phone, or type \"cancel\"."
	msgUpdateCancelled   = "Update cancelled. No changes made."
	msgCodenameLocked    = "Codenames are permanent once issued, Agent. Pick another field or type \"cancel\"."
	msgAskAttendance     = "Will you attend? Answer yes, no or maybe."
	msgAskGuests         = "How many guests are you bringing now?"
	msgAskDietary        = "Any dietary restrictions? Type \"none\" to clear them."
	msgAskPhone          = "What phone number should HQ use? Type \"skip\" to clear it."
	msgEnded             = "This channel is closed. Open a new session to reach HQ again."
	msgTransmission      = "Transmission error: HQ could not file your dossier. Please send that again."
	msgCodenameFailure   = "Transmission error: the codename registry is unreachable. Please send that again."
	msgSessionLogFailed  = "Note: the mission log could not be archived, but your dossier is safe."
	msgRosterEmpty       = "No agents have confirmed yet. You could be the first."
	msgRosterFailed      = "The roster is locked down right now. Try again shortly."
)

func msgCodenamePresent(name string) string {
	return fmt.Sprintf("Your proposed codename is %q. Do you accept it?", name)
}

func msgCodenameConfirmed(name, event, date string) string {
	return fmt.Sprintf("Welcome aboard, Agent %s. Will you attend %s on %s? Answer yes, no or maybe.", name, event, date)
}

func msgDeclined(name string) string {
	return fmt.Sprintf("Understood, Agent %s. HQ will miss you at the heist.", name)
}

func msgUncertain(name string) string {
	return fmt.Sprintf("Noted, Agent %s. You're marked as undecided. Type \"update\" any time to change that.", name)
}

func msgGuestNamesAsk(n int) string {
	if n == 1 {
		return "Copy that, one guest. What is their name?"
	}
	return fmt.Sprintf("Copy that, %d guests. What are their names? Separate them with commas.", n)
}

func msgUpdated(f Field) string {
	return fmt.Sprintf("Dossier updated: %s.", fieldLabel(f))
}

func fieldLabel(f Field) string {
	switch f {
	case FieldAttendance:
		return "attendance"
	case FieldGuests:
		return "guests"
	case FieldDietary:
		return "dietary restrictions"
	case FieldEmail:
		return "email"
	case FieldPhone:
		return "phone"
	case FieldCodename:
		return "codename"
	}
	return "unknown"
}

func attendanceLabel(s model.AttendanceStatus) string {
	switch s {
	case model.AttendanceAttending:
		return "attending"
	case model.AttendanceNotAttending:
		return "not attending"
	case model.AttendanceUncertain:
		return "undecided"
	}
	return "unknown"
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none on file"
	}
	return s
}

// renderCard formats a profile as the dossier shown by the card command.
func renderCard(p model.Profile) string {
	var b strings.Builder
	b.WriteString("AGENT DOSSIER\n")
	fmt.Fprintf(&b, "Codename: %s\n", p.Codename)
	fmt.Fprintf(&b, "Name: %s\n", p.RealName)
	fmt.Fprintf(&b, "Status: %s\n", attendanceLabel(p.AttendanceStatus))
	if len(p.GuestNames) > 0 {
		fmt.Fprintf(&b, "Guests: %d (%s)\n", p.GuestCount, strings.Join(p.GuestNames, ", "))
	} else {
		fmt.Fprintf(&b, "Guests: %d\n", p.GuestCount)
	}
	fmt.Fprintf(&b, "Dietary: %s\n", orNone(p.DietaryRestrictions))
	fmt.Fprintf(&b, "Email: %s\n", orNone(p.ContactEmail))
	fmt.Fprintf(&b, "Phone: %s\n", orNone(p.ContactPhone))
	if p.WantsReminders {
		b.WriteString("Reminders: on")
	} else {
		b.WriteString("Reminders: off")
	}
	return b.String()
}

// renderRoster lists the codenames of attending agents.
func renderRoster(profiles []model.Profile) string {
	var names []string
	guests := 0
	for _, p := range profiles {
		if p.AttendanceStatus != model.AttendanceAttending {
			continue
		}
		names = append(names, p.Codename)
		guests += p.GuestCount
	}
	if len(names) == 0 {
		return msgRosterEmpty
	}
	return fmt.Sprintf("Confirmed agents (%d, plus %d guests): %s", len(names), guests, strings.Join(names, ", "))
}
