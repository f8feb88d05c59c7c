package s2

// Paper is the subset of a Graph API paper object that alps requests.
type Paper struct {
	PaperID     string      `json:"paperId"`
	Title       string      `json:"title"`
	Year        int         `json:"year,omitempty"`
	ExternalIDs ExternalIDs `json:"externalIds"`
}

// ExternalIDs holds a paper's identifiers in other indexes.
type ExternalIDs struct {
	ArXiv    string `json:"ArXiv,omitempty"`
	DBLP     string `json:"DBLP,omitempty"`
	DOI      string `json:"DOI,omitempty"`
	CorpusID int    `json:"CorpusId,omitempty"`
}

// SearchResponse is the body of a paper title search.
type SearchResponse struct {
	Total int     `json:"total"`
	Data  []Paper `json:"data"`
}

// errorBody is the JSON error payload the API sends with 4xx statuses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
