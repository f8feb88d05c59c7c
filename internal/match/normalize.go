// Package match decides whether two paper titles refer to the same paper.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a title for comparison: lowercase, letters,
// alphabetic marks, digits and single spaces only, no leading or trailing
// space.
//
// Normalize is idempotent.
func Normalize(title string) string {
	if title == "" {
		return ""
	}

	lower := strings.ToLower(norm.NFC.String(title))

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.Is(unicode.Other_Alphabetic, r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	// Stripping marks and punctuation can leave composable neighbours.
	return norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
}

// Tokens returns the distinct whitespace-separated tokens of a normalized
// title.
func Tokens(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
