package paper

import (
	"strings"

	"golang.org/x/text/cases"
)

// VenueKey returns the lookup key for a venue name. Two publications
// belong to the same venue exactly when their keys are equal.
func VenueKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// FindPublication returns the index of the publication whose venue
// matches name case-insensitively, or -1.
func (p *Paper) FindPublication(name string) int {
	key := VenueKey(name)
	if key == "" {
		return -1
	}
	for i := range p.Publications {
		if VenueKey(p.Publications[i].Name) == key {
			return i
		}
	}
	return -1
}

// Publication returns a pointer into the record's publication slice for
// the named venue, or nil.
func (p *Paper) Publication(name string) *Publication {
	if i := p.FindPublication(name); i >= 0 {
		return &p.Publications[i]
	}
	return nil
}

// Upsert replaces the publication with the same venue key, or appends pub.
// It returns true when pub was appended.
func (p *Paper) Upsert(pub Publication) bool {
	if i := p.FindPublication(pub.Name); i >= 0 {
		p.Publications[i] = pub
		return false
	}
	p.Publications = append(p.Publications, pub)
	return true
}
