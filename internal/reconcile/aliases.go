package reconcile

import (
	"strings"

	"github.com/alps-lab/alps/internal/paper"
)

// VenueAliases maps long venue names, keyed by paper.VenueKey, to the short
// names used in records. A nil VenueAliases maps every name to itself.
type VenueAliases map[string]string

// NewVenueAliases builds an alias table from long-name → short-name pairs.
func NewVenueAliases(pairs map[string]string) VenueAliases {
	a := make(VenueAliases, len(pairs))
	for long, short := range pairs {
		if key := paper.VenueKey(long); key != "" && strings.TrimSpace(short) != "" {
			a[key] = strings.TrimSpace(short)
		}
	}
	return a
}

// Canonical returns the short name for venue, or the trimmed venue itself
// when it has no alias.
func (a VenueAliases) Canonical(venue string) string {
	venue = strings.TrimSpace(venue)
	if short, ok := a[paper.VenueKey(venue)]; ok {
		return short
	}
	return venue
}

// FindPublication returns the publication of p that venue refers to: the
// one whose name matches venue ignoring case, else the one whose short name
// equals venue's short name. It returns nil when p has neither.
func (a VenueAliases) FindPublication(p *paper.Paper, venue string) *paper.Publication {
	if pub := p.Publication(venue); pub != nil {
		return pub
	}
	key := paper.VenueKey(a.Canonical(venue))
	if key == "" {
		return nil
	}
	for i := range p.Publications {
		if paper.VenueKey(a.Canonical(p.Publications[i].Name)) == key {
			return &p.Publications[i]
		}
	}
	return nil
}

// DefaultVenueAliases lists the long-form venue names seen in remote
// results and the short names records use for them.
var DefaultVenueAliases = map[string]string{
	"Advances in Neural Information Processing Systems":                 "NeurIPS",
	"Neural Information Processing Systems":                             "NeurIPS",
	"International Conference on Machine Learning":                      "ICML",
	"International Conference on Learning Representations":              "ICLR",
	"AAAI Conference on Artificial Intelligence":                        "AAAI",
	"International Joint Conference on Artificial Intelligence":         "IJCAI",
	"ACM SIGMETRICS":                                                    "SIGMETRICS",
	"Symposium on Discrete Algorithms":                                  "SODA",
	"ACM-SIAM Symposium on Discrete Algorithms":                         "SODA",
	"Symposium on Theory of Computing":                                  "STOC",
	"ACM Symposium on Theory of Computing":                              "STOC",
	"Foundations of Computer Science":                                   "FOCS",
	"IEEE Symposium on Foundations of Computer Science":                 "FOCS",
	"Innovations in Theoretical Computer Science":                       "ITCS",
	"ACM Conference on Economics and Computation":                       "EC",
	"Economics and Computation":                                         "EC",
	"European Symposium on Algorithms":                                  "ESA",
	"International Symposium on Algorithms and Computation":             "ISAAC",
	"Algorithmic Learning Theory":                                       "ALT",
	"International Conference on Artificial Intelligence and Statistics": "AISTATS",
	"Conference on Learning Theory":                                     "COLT",
	"World Wide Web Conference":                                         "WWW",
	"ACM Web Conference":                                                "WWW",
	"The Web Conference":                                                "WWW",
	"Knowledge Discovery and Data Mining":                               "KDD",
	"ACM SIGKDD":                                                        "KDD",
	"Mathematical Programming":                                          "Math. Program.",
	"Mathematics of Operations Research":                                "Math. Oper. Res.",
	"Operations Research":                                               "Oper. Res.",
	"Journal of the ACM":                                                "J. ACM",
	"SIAM Journal on Computing":                                         "SIAM J. Comput.",
	"Information Processing Letters":                                    "Inf. Process. Lett.",
}
