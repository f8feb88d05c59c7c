package s2

import (
	"regexp"
	"strings"
)

// Identifier prefixes accepted by the paper lookup endpoint.
const (
	PrefixArXiv = "ARXIV:"
	PrefixDBLP  = "DBLP:"
)

// paperIDPattern matches a 40-character hex string (raw paper ID).
var paperIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// IsPaperID reports whether id is a raw Semantic Scholar paper ID.
func IsPaperID(id string) bool {
	return paperIDPattern.MatchString(strings.TrimSpace(id))
}

// ArXivRef returns the lookup identifier for a bare arXiv ID.
func ArXivRef(id string) string {
	return PrefixArXiv + strings.TrimSpace(id)
}

// DBLPRef returns the lookup identifier for a DBLP record key.
func DBLPRef(key string) string {
	return PrefixDBLP + strings.TrimSpace(key)
}
