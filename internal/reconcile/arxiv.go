package reconcile

import (
	"regexp"
	"strings"

	"github.com/alps-lab/alps/internal/paper"
)

// versionSuffix matches the trailing version of an arXiv identifier ("v5").
var versionSuffix = regexp.MustCompile(`v\d+$`)

// CleanArXivURL strips the version suffix from an arXiv id URL and forces
// the https scheme.
//
//	http://arxiv.org/abs/1706.03762v5 → https://arxiv.org/abs/1706.03762
func CleanArXivURL(id string) string {
	u := versionSuffix.ReplaceAllString(strings.TrimSpace(id), "")
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		u = "https://" + rest
	}
	return u
}

// ArXiv reconciles p against preprint hits. The first hit scoring at least
// threshold replaces the record's arXiv publication wholesale.
func ArXiv(p *paper.Paper, hits []ArXivHit, threshold float64) Report {
	i, score := Select(p.Title, hits, threshold, func(h ArXivHit) string { return h.Title }, nil)
	if i < 0 {
		return Report{Source: SourceArXiv}
	}
	return MergeArXiv(p, hits[i], score)
}

// MergeArXiv merges a hit already known to match p.
//
// arXiv metadata is refreshed on every run: a fresh "arXiv" publication is
// built from the hit and replaces any existing one. The report carries a
// new-publication event when there was none before and an updated event
// when the URL changed.
func MergeArXiv(p *paper.Paper, hit ArXivHit, score float64) Report {
	rep := Report{
		Source:       SourceArXiv,
		Matched:      true,
		MatchedTitle: hit.Title,
		Score:        score,
	}

	fillAuthors(p, hit.Authors, &rep)

	url := CleanArXivURL(hit.ID)
	if url == "" || hit.Published.IsZero() {
		return rep
	}

	var prevURL string
	existed := false
	if prev := p.Publication(paper.ArXivVenue); prev != nil {
		existed = true
		prevURL = paper.Deref(prev.URL)
	}

	pub := paper.Publication{
		Name:  paper.ArXivVenue,
		URL:   paper.String(url),
		Year:  paper.Int(hit.Published.Year()),
		Month: paper.Int(int(hit.Published.Month())),
		Day:   paper.Int(hit.Published.Day()),
	}
	p.Upsert(pub)

	switch {
	case !existed:
		rep.add(EventNewPublication, paper.ArXivVenue, url)
	case prevURL != url:
		rep.add(EventUpdated, paper.ArXivVenue, url)
	}
	return rep
}
