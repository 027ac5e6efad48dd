package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxMessageLength bounds a single chat line.
	MaxMessageLength = 2000
	// MaxCodenameLength bounds a codename in a URL or request body.
	MaxCodenameLength = 64
)

// ValidateMessageContent validates a chat line. Blank lines are allowed;
// the onboarding engine answers them with a prompt.
func ValidateMessageContent(content string) error {
	if len(content) > MaxMessageLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateCodename validates a codename.
func ValidateCodename(name string) error {
	if len(name) == 0 {
		return errors.New("codename cannot be empty")
	}
	if len(name) > MaxCodenameLength {
		return errors.New("codename exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("codename must be valid UTF-8")
	}
	return nil
}
