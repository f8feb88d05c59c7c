package arxiv

import "encoding/xml"

// Feed is the Atom document returned by the arXiv query API.
type Feed struct {
	XMLName      xml.Name `xml:"feed"`
	TotalResults int      `xml:"totalResults"`
	Entries      []Entry  `xml:"entry"`
}

// Entry is one preprint in the feed.
type Entry struct {
	ID        string   `xml:"id"` // "http://arxiv.org/abs/1706.03762v5"
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"` // RFC 3339
	Updated   string   `xml:"updated"`
	Authors   []Author `xml:"author"`
}

// Author is an entry author.
type Author struct {
	Name string `xml:"name"`
}
