package reconcile

import (
	"strings"

	"github.com/alps-lab/alps/internal/match"
	"github.com/alps-lab/alps/internal/paper"
)

// S2Unresolvable is the s2_id value marking a record Semantic Scholar does
// not index. It is kept like any other ID and never replaced.
const S2Unresolvable = "none"

// Identifier fields named by EventIdentifier details.
const (
	FieldS2ID  = "s2_id"
	FieldArXiv = "arxiv"
)

// Field returns the identifier field an EventIdentifier filled, or "" for
// other kinds.
func (e Event) Field() string {
	if e.Kind != EventIdentifier {
		return ""
	}
	field, _, _ := strings.Cut(e.Detail, ":")
	return field
}

func identifierDetail(field, value string) string {
	return field + ": " + value
}

// ArXivID returns the bare arXiv identifier held in s, which may be an abs
// or pdf URL, an "arXiv:" reference or the identifier itself. Any version
// suffix is removed.
//
//	https://arxiv.org/abs/1706.03762v5 → 1706.03762
//	arXiv:hep-th/9901001v1             → hep-th/9901001
func ArXivID(s string) string {
	id := strings.TrimSpace(s)
	for _, marker := range []string{"/abs/", "/pdf/"} {
		if _, rest, ok := strings.Cut(id, marker); ok {
			id = rest
			break
		}
	}
	if len(id) > 6 && strings.EqualFold(id[:6], "arxiv:") {
		id = id[6:]
	}
	id = strings.TrimSuffix(id, ".pdf")
	return versionSuffix.ReplaceAllString(id, "")
}

// FillArXivID sets p's empty arxiv field from the URL of its arXiv
// publication. The report is unmatched when nothing changed.
func FillArXivID(p *paper.Paper) Report {
	rep := Report{Source: SourceArXiv}
	pub := p.Publication(paper.ArXivVenue)
	if pub == nil {
		return rep
	}
	id := ArXivID(paper.Deref(pub.URL))
	if fillIfAbsent(&p.ArXiv, id) {
		rep.Matched = true
		rep.Score = 1
		rep.add(EventIdentifier, "", identifierDetail(FieldArXiv, id))
	}
	return rep
}

// SelectS2 returns the index and score of the first title-search hit that
// matches p and carries a paper ID, or -1.
func SelectS2(p *paper.Paper, hits []S2Hit, threshold float64) (int, float64) {
	return Select(p.Title, hits, threshold,
		func(h S2Hit) string { return h.Title },
		func(h S2Hit) bool { return h.PaperID != "" })
}

// MergeS2 fills p's empty s2_id and arxiv fields from a hit already known
// to be p. Populated fields are left alone. A zero score is replaced by the
// title score, so lookups by identifier still report how well titles agree.
func MergeS2(p *paper.Paper, hit S2Hit, score float64) Report {
	if score == 0 {
		score = match.Score(hit.Title, p.Title)
	}
	rep := Report{
		Source:       SourceS2,
		Matched:      true,
		MatchedTitle: hit.Title,
		Score:        score,
	}
	if fillIfAbsent(&p.S2ID, hit.PaperID) {
		rep.add(EventIdentifier, "", identifierDetail(FieldS2ID, hit.PaperID))
	}
	if id := ArXivID(hit.ArXivID); fillIfAbsent(&p.ArXiv, id) {
		rep.add(EventIdentifier, "", identifierDetail(FieldArXiv, id))
	}
	return rep
}
