package dblp

// Result is the XML document returned by the publication search API.
type Result struct {
	Hits Hits `xml:"hits"`
}

// Hits wraps the returned hits with DBLP's counters.
type Hits struct {
	Total int   `xml:"total,attr"`
	Sent  int   `xml:"sent,attr"`
	Hit   []Hit `xml:"hit"`
}

// Hit is one search result.
type Hit struct {
	Score int  `xml:"score,attr"`
	Info  Info `xml:"info"`
}

// Info carries the bibliographic fields of a hit. DBLP repeats venue and
// ee for some records; the first of each is used.
type Info struct {
	Authors []string `xml:"authors>author"`
	Title   string   `xml:"title"`
	Venue   []string `xml:"venue"`
	Year    string   `xml:"year"`
	Type    string   `xml:"type"`
	Key     string   `xml:"key"`
	EE      []string `xml:"ee"`
	URL     string   `xml:"url"`
}
