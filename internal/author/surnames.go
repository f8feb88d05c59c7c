// Package author reduces remote author lists to the surname form stored in
// paper records.
package author

import (
	"strings"
	"unicode"
)

// separators split an author list into individual names.
const separators = ",;&"

// Surnames reduces a raw author-list string to "Last, Last, ...".
//
// The list is split on any of ',', ';' and '&'. For each name the last
// whitespace-separated token is taken as the surname and stripped of
// leading and trailing non-letters; names that yield nothing are dropped.
// Given names are discarded.
//
//   - "Ashish Vaswani, Noam Shazeer" → "Vaswani, Shazeer"
//   - "A. Smith; B. Jones & C. Brown" → "Smith, Jones, Brown"
//   - "Jane Doe (MIT), 42" → "Doe"
func Surnames(raw string) string {
	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})

	names := make([]string, 0, len(segments))
	for _, seg := range segments {
		if last := Surname(seg); last != "" {
			names = append(names, last)
		}
	}
	return strings.Join(names, ", ")
}

// Surname returns the cleaned last token of a single name, or "".
func Surname(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimFunc(parts[len(parts)-1], func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// FromNames formats a list of full author names, as returned by a search
// hit, into surname form.
func FromNames(names []string) string {
	return Surnames(strings.Join(names, ", "))
}
