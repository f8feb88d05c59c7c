// Package paper defines the record types stored in the papers directory.
package paper

import (
	"errors"
	"fmt"
	"strings"
)

// ArXivVenue is the publication name used for arXiv preprints.
const ArXivVenue = "arXiv"

// Paper is one paper record, stored as a single YAML file.
type Paper struct {
	// Identity
	Title string `yaml:"title"` // Matching anchor for every remote lookup; never rewritten

	// Metadata
	Authors  *string  `yaml:"authors,omitempty"` // Surnames, "Last, Last, ..."; only ever set from empty
	Abstract *string  `yaml:"abstract,omitempty"`
	Labels   []string `yaml:"labels,omitempty"`

	// Venue appearances, unique by VenueKey(Name)
	Publications []Publication `yaml:"publications,omitempty"`

	// Passthrough identifiers maintained by other tools
	Year  *int    `yaml:"year,omitempty"`
	ArXiv *string `yaml:"arxiv,omitempty"`
	S2ID  *string `yaml:"s2_id,omitempty"`
}

// Publication is one venue-specific appearance of a paper.
type Publication struct {
	Name    string  `yaml:"name"`
	URL     *string `yaml:"url,omitempty"`
	Year    *int    `yaml:"year,omitempty"`
	Month   *int    `yaml:"month,omitempty"` // 1-12
	Day     *int    `yaml:"day,omitempty"`   // 1-31
	DBLPKey *string `yaml:"dblp_key,omitempty"`
	BibTeX  *string `yaml:"bibtex,omitempty"`
}

// Validation errors returned by Validate.
var (
	ErrMissingTitle     = errors.New("missing title")
	ErrMissingVenueName = errors.New("publication without name")
	ErrDuplicateVenue   = errors.New("duplicate publication venue")
)

// HasAuthors reports whether the authors field is populated.
func (p *Paper) HasAuthors() bool {
	return p.Authors != nil && strings.TrimSpace(*p.Authors) != ""
}

// Validate checks the record invariants the updater relies on.
func (p *Paper) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrMissingTitle
	}

	seen := make(map[string]bool, len(p.Publications))
	for i, pub := range p.Publications {
		key := VenueKey(pub.Name)
		if key == "" {
			return fmt.Errorf("publications[%d]: %w", i, ErrMissingVenueName)
		}
		if seen[key] {
			return fmt.Errorf("publications[%d] %q: %w", i, pub.Name, ErrDuplicateVenue)
		}
		seen[key] = true
	}
	return nil
}

// String returns a pointer to s, or nil if s is blank.
func String(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
