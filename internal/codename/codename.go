// Package codename generates participant codenames and enforces their
// case-insensitive uniqueness.
package codename

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// MaxLength is the longest codename accepted from any generator.
const MaxLength = 40

// Registry is the single logical uniqueness check for codenames.
//
// Reserve reports false, with a nil error, when the codename is already held
// by someone other than owner. Calling Reserve again with the same owner
// succeeds.
type Registry interface {
	IsAvailable(ctx context.Context, codename string) (bool, error)
	Reserve(ctx context.Context, codename, owner string) (bool, error)
}

// Fold returns the comparison key for a codename: whitespace collapsed and
// Unicode case-folded.
func Fold(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// Equal compares two codenames case-insensitively.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Clean normalizes raw generator output into a presentable codename. It
// returns "" when nothing usable remains.
func Clean(raw string) string {
	line := strings.TrimSpace(raw)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimPrefix(line, "Codename:")
	line = strings.Trim(line, " \t\"'`*.!")
	line = strings.Join(strings.Fields(line), " ")
	if line == "" || utf8.RuneCountInString(line) > MaxLength {
		return ""
	}
	return line
}
