package reconcile

import (
	"strconv"
	"strings"

	"github.com/alps-lab/alps/internal/paper"
)

// VenueFilter reports whether a hit with the given raw venue may be merged.
type VenueFilter func(venue string) bool

// DefaultVenueFilter rejects hits without a venue and the "CoRR" pseudo
// venue, which mirrors arXiv preprints already tracked from the arXiv side.
func DefaultVenueFilter(venue string) bool {
	v := strings.TrimSpace(venue)
	return v != "" && v != "CoRR"
}

// DBLP reconciles p against indexed-publication hits. Hits rejected by
// filter are skipped; the first remaining hit scoring at least threshold is
// merged. A nil filter means DefaultVenueFilter.
func DBLP(p *paper.Paper, hits []DBLPHit, threshold float64, filter VenueFilter, aliases VenueAliases) Report {
	i, score := SelectDBLP(p, hits, threshold, filter)
	if i < 0 {
		return Report{Source: SourceDBLP}
	}
	return MergeDBLP(p, hits[i], score, aliases)
}

// SelectDBLP finds the winning hit for p without modifying it, so callers
// can fetch the winner's BibTeX before merging.
func SelectDBLP(p *paper.Paper, hits []DBLPHit, threshold float64, filter VenueFilter) (int, float64) {
	if filter == nil {
		filter = DefaultVenueFilter
	}
	return Select(p.Title, hits, threshold,
		func(h DBLPHit) string { return h.Title },
		func(h DBLPHit) bool { return filter(h.Venue) },
	)
}

// MergeDBLP merges a hit already known to match p.
//
// If p has a publication for the hit's venue, under either its DBLP name or
// its short name, only its empty url, dblp_key and bibtex fields are
// filled; populated fields are never touched. Otherwise a new publication
// is appended under the short name.
func MergeDBLP(p *paper.Paper, hit DBLPHit, score float64, aliases VenueAliases) Report {
	rep := Report{
		Source:       SourceDBLP,
		Matched:      true,
		MatchedTitle: hit.Title,
		Score:        score,
	}

	fillAuthors(p, hit.Authors, &rep)

	venue := aliases.Canonical(hit.Venue)
	if venue == "" {
		return rep
	}

	if pub := aliases.FindPublication(p, hit.Venue); pub != nil {
		var filled []string
		if fillIfAbsent(&pub.URL, hit.URL) {
			filled = append(filled, "url")
		}
		if fillIfAbsent(&pub.DBLPKey, hit.Key) {
			filled = append(filled, "dblp_key")
		}
		if fillIfAbsent(&pub.BibTeX, hit.BibTeX) {
			filled = append(filled, "bibtex")
		}
		if len(filled) > 0 {
			rep.add(EventUpdated, pub.Name, strings.Join(filled, ","))
		}
		return rep
	}

	p.Publications = append(p.Publications, paper.Publication{
		Name:    venue,
		URL:     paper.String(hit.URL),
		Year:    parseYear(hit.Year),
		DBLPKey: paper.String(hit.Key),
		BibTeX:  paper.String(hit.BibTeX),
	})
	rep.add(EventNewPublication, venue, hit.Key)
	return rep
}

// parseYear returns the year as an int, or nil when it is not a number.
func parseYear(s string) *int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &y
}
