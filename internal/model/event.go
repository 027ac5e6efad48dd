package model

import (
	"time"
)

// EventType represents the type of onboarding event published downstream.
type EventType string

const (
	EventTypeSessionLog   EventType = "session_log"
	EventTypeConfirmation EventType = "confirmation"
)

// SessionLog is the best-effort secondary record written after a profile save.
type SessionLog struct {
	SessionID  string           `json:"session_id"`
	Codename   string           `json:"codename"`
	Attendance AttendanceStatus `json:"attendance_status,omitempty"`
	Transcript []MessageRecord  `json:"transcript"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ProfileEvent is published when a profile is confirmed.
type ProfileEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Codename  string    `json:"codename"`
	RealName  string    `json:"real_name"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"attendance_status"`
	CreatedAt time.Time `json:"created_at"`
}
