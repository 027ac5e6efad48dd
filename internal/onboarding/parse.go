package onboarding

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	zeroGuestPhrases = []string{"just me", "only me", "myself", "solo", "alone", "none", "no one", "noone", "nobody", "no", "zero"}

	wordNumbers = []struct {
		word  string
		value int
	}{
		{"one", 1},
		{"two", 2},
		{"three", 3},
		{"four", 4},
		{"five", 5},
	}

	leadingInt = regexp.MustCompile(`^[+-]?\d+`)
)

// ParseGuestCount reads a guest count from free text. The rules are tried in
// order: phrases meaning nobody, the words one to five, then a leading
// integer. ok is false for unparseable or negative input.
func ParseGuestCount(text string) (n int, ok bool) {
	m := newMatcher(text)
	if m.any(zeroGuestPhrases) {
		return 0, true
	}
	for _, wn := range wordNumbers {
		// "no one" was handled above, so a bare "one" is a real count here.
		if m.has(wn.word) {
			return wn.value, true
		}
	}

	digits := leadingInt.FindString(strings.TrimSpace(text))
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseGuestNames splits a comma-separated list, trimming entries and
// dropping empty ones. The result is never nil.
func ParseGuestNames(text string) []string {
	names := []string{}
	for _, part := range strings.Split(text, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ValidEmail performs the loose check used for contact emails.
func ValidEmail(text string) bool {
	text = strings.TrimSpace(text)
	return strings.Contains(text, "@") && !strings.ContainsAny(text, " \t")
}
