// Package reconcile decides whether a remote search hit is the same paper
// as a local record and merges the hit's metadata into the record.
//
// Hits are considered in the order the remote source returned them and the
// first one whose title scores at or above the threshold wins; remaining
// hits are ignored even if they would score higher.
package reconcile

import "time"

// Source names used in reports.
const (
	SourceArXiv = "arxiv"
	SourceDBLP  = "dblp"
	SourceS2    = "s2"
)

// ArXivHit is one preprint search result, already extracted from the wire
// format. Zero values mean the field was absent.
type ArXivHit struct {
	Title     string
	Authors   []string  // Full names in listed order
	Published time.Time // Publish timestamp of the first version
	ID        string    // Canonical abstract URL, possibly with a version suffix
}

// DBLPHit is one indexed-publication search result. Zero values mean the
// field was absent.
type DBLPHit struct {
	Title   string
	Authors []string
	Venue   string // Raw venue label as reported by the index
	Year    string // Unparsed; non-numeric years are treated as absent
	Key     string // Persistent record key, e.g. "conf/nips/VaswaniSPUJGKP17"
	URL     string // Electronic edition link
	BibTeX  string // Citation record, fetched separately for the winning hit
}

// S2Hit is one Semantic Scholar paper, from a lookup or a title search.
type S2Hit struct {
	PaperID string // 40-character hex paper ID
	Title   string
	ArXivID string // Bare identifier, e.g. "1706.03762"; empty if not on arXiv
	DBLPKey string
	Year    int
}

// EventKind classifies a change made to a record.
type EventKind string

const (
	// EventAuthors means the record's empty authors field was filled.
	EventAuthors EventKind = "authors_updated"
	// EventNewPublication means a publication entry was appended.
	EventNewPublication EventKind = "new_publication"
	// EventUpdated means an existing publication entry changed.
	EventUpdated EventKind = "updated"
	// EventIdentifier means an empty identifier field (s2_id, arxiv) was
	// filled. The event's detail names the field and its new value.
	EventIdentifier EventKind = "identifier_filled"
)

// Event is one change made to a record by a merge.
type Event struct {
	Kind   EventKind `json:"kind"`
	Venue  string    `json:"venue,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Report describes the outcome of reconciling one record against one
// source's hits.
type Report struct {
	Source       string  `json:"source"`
	Matched      bool    `json:"matched"`
	MatchedTitle string  `json:"matched_title,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Events       []Event `json:"events,omitempty"`
}

// Changed reports whether the merge modified the record.
func (r Report) Changed() bool {
	return len(r.Events) > 0
}

// Has reports whether the report contains an event of the given kind.
func (r Report) Has(kind EventKind) bool {
	return r.Count(kind) > 0
}

// Count returns the number of events of the given kind.
func (r Report) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Report) add(kind EventKind, venue, detail string) {
	r.Events = append(r.Events, Event{Kind: kind, Venue: venue, Detail: detail})
}
