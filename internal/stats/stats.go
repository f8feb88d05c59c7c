// Package stats summarizes a collection of paper records: identifier
// coverage, label and venue frequencies, and publications per year.
package stats

import (
	"cmp"
	"slices"
	"strings"

	"github.com/alps-lab/alps/internal/paper"
)

// DefaultTopVenues is how many venues Summarize lists.
const DefaultTopVenues = 20

// Coverage counts the records that have a field populated.
type Coverage struct {
	Count   int `json:"count"`
	Percent int `json:"percent"` // Rounded down
}

// Count is one value and how often it occurs.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// YearCount is the number of non-arXiv publications in one year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// Summary describes a collection.
type Summary struct {
	Total        int         `json:"total"`
	WithS2ID     Coverage    `json:"with_s2_id"`
	WithArXiv    Coverage    `json:"with_arxiv"`
	WithAbstract Coverage    `json:"with_abstract"`
	Labels       []Count     `json:"labels"`
	TopVenues    []Count     `json:"top_venues"`
	Years        []YearCount `json:"publications_by_year"`
}

// Summarize computes the summary of papers. Labels are listed most
// frequent first, venues likewise but only the topVenues most frequent,
// and years in ascending order. Venues are grouped by their comparison key
// and shown under the first spelling seen; arXiv entries are left out of
// the year counts.
func Summarize(papers []*paper.Paper, topVenues int) Summary {
	s := Summary{Total: len(papers)}

	var s2, arxiv, abstract int
	labels := newCounter()
	venues := newCounter()
	years := make(map[int]int)

	for _, p := range papers {
		if nonBlank(p.S2ID) {
			s2++
		}
		if nonBlank(p.ArXiv) {
			arxiv++
		}
		if nonBlank(p.Abstract) {
			abstract++
		}
		for _, l := range p.Labels {
			labels.add(l, l)
		}
		for _, pub := range p.Publications {
			venues.add(paper.VenueKey(pub.Name), pub.Name)
			if pub.Year != nil && paper.VenueKey(pub.Name) != paper.VenueKey(paper.ArXivVenue) {
				years[*pub.Year]++
			}
		}
	}

	s.WithS2ID = coverage(s2, s.Total)
	s.WithArXiv = coverage(arxiv, s.Total)
	s.WithAbstract = coverage(abstract, s.Total)
	s.Labels = labels.sorted(0)
	s.TopVenues = venues.sorted(topVenues)

	s.Years = make([]YearCount, 0, len(years))
	for y, n := range years {
		s.Years = append(s.Years, YearCount{Year: y, Count: n})
	}
	slices.SortFunc(s.Years, func(a, b YearCount) int { return cmp.Compare(a.Year, b.Year) })
	return s
}

func nonBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func coverage(n, total int) Coverage {
	c := Coverage{Count: n}
	if total > 0 {
		c.Percent = 100 * n / total
	}
	return c
}

// counter counts values by key, remembering the first name seen per key.
type counter struct {
	counts map[string]*Count
}

func newCounter() *counter {
	return &counter{counts: make(map[string]*Count)}
}

func (c *counter) add(key, name string) {
	if key == "" {
		return
	}
	if e, ok := c.counts[key]; ok {
		e.Count++
		return
	}
	c.counts[key] = &Count{Name: name, Count: 1}
}

// sorted returns the counts most frequent first, ties by name. A positive
// limit keeps only that many.
func (c *counter) sorted(limit int) []Count {
	out := make([]Count, 0, len(c.counts))
	for _, e := range c.counts {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Count) int {
		if n := cmp.Compare(b.Count, a.Count); n != 0 {
			return n
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
