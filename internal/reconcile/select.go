package reconcile

import (
	"strings"

	"github.com/alps-lab/alps/internal/author"
	"github.com/alps-lab/alps/internal/match"
	"github.com/alps-lab/alps/internal/paper"
)

// Select returns the index and score of the first hit whose title scores at
// least threshold against title and which accept allows. It returns -1 when
// no hit qualifies. A nil accept allows every hit.
func Select[H any](title string, hits []H, threshold float64, titleOf func(H) string, accept func(H) bool) (int, float64) {
	for i, h := range hits {
		if accept != nil && !accept(h) {
			continue
		}
		if score := match.Score(titleOf(h), title); score >= threshold {
			return i, score
		}
	}
	return -1, 0
}

// fillAuthors sets the record's authors from names if the record has none.
func fillAuthors(p *paper.Paper, names []string, rep *Report) {
	if p.HasAuthors() || len(names) == 0 {
		return
	}
	surnames := author.FromNames(names)
	if surnames == "" {
		return
	}
	p.Authors = &surnames
	rep.add(EventAuthors, "", surnames)
}

// fillIfAbsent copies src into *dst when *dst is empty and src is not.
// It reports whether *dst changed.
func fillIfAbsent(dst **string, src string) bool {
	if *dst != nil && strings.TrimSpace(**dst) != "" {
		return false
	}
	v := paper.String(src)
	if v == nil {
		return false
	}
	*dst = v
	return true
}
