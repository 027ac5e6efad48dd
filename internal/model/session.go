package model

import (
	"time"
)

// StartSessionRequest is the request to open an onboarding session.
type StartSessionRequest struct {
	// ReturningCodename is the codename the browser remembered from a previous
	// visit, if any.
	ReturningCodename string `json:"returning_codename,omitempty"`
	// ResumeToken is the token handed out with that codename. Both must
	// match for the session to resume.
	ResumeToken string `json:"resume_token,omitempty"`
}

// SendInputRequest carries one line typed by the participant.
type SendInputRequest struct {
	Text string `json:"text"`
}

// TurnResponse is returned after a session is started or fed input.
type TurnResponse struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	Codename  string          `json:"codename,omitempty"`
	Messages  []MessageRecord `json:"messages"`
	Ended     bool            `json:"ended,omitempty"`

	// ResumeToken is set once a codename is held; keep it to come back later.
	ResumeToken string `json:"resume_token,omitempty"`
}

// SessionView is the read model for an in-progress session.
type SessionView struct {
	SessionID  string          `json:"session_id"`
	State      string          `json:"state"`
	Codename   string          `json:"codename,omitempty"`
	RealName   string          `json:"real_name,omitempty"`
	Transcript []MessageRecord `json:"transcript"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ListProfilesResponse is the admin listing of stored profiles.
type ListProfilesResponse struct {
	Profiles []Profile `json:"profiles"`
	Total    int       `json:"total"`
}

// ErrorEvent represents an error pushed over SSE.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TurnCompleteEvent closes an SSE turn stream.
type TurnCompleteEvent struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Codename  string `json:"codename,omitempty"`
	Ended     bool   `json:"ended"`
}

// ReplayCompleteEvent marks the end of a transcript replay.
type ReplayCompleteEvent struct {
	MessageCount int `json:"message_count"`
}

// HeartbeatEvent keeps an idle SSE connection open.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
