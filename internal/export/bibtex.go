// Package export writes paper records and update history to formats other
// tools consume: a BibTeX collection and an XLSX history workbook.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/alps-lab/alps/internal/paper"
)

// Record is a loaded paper record and the file it came from.
type Record struct {
	File  string
	Paper *paper.Paper
}

// Entry is one BibTeX entry in an export.
type Entry struct {
	Key       string `json:"key"`
	File      string `json:"file"`
	Venue     string `json:"venue,omitempty"`
	Generated bool   `json:"generated,omitempty"`
	Text      string `json:"-"`
}

// Duplicate reports an entry dropped because its key was already exported.
type Duplicate struct {
	Key  string `json:"key"`
	File string `json:"file"`
	Kept string `json:"kept"`
}

// Collection is the result of Collect.
type Collection struct {
	Entries    []Entry     `json:"entries"`
	Duplicates []Duplicate `json:"duplicates"`
	Missing    []string    `json:"missing"` // files with no BibTeX and no entry generated
}

// CollectOptions controls Collect.
type CollectOptions struct {
	// Generate builds an entry from record fields for papers that carry
	// no stored BibTeX.
	Generate bool
	// Existing holds keys to skip, typically parsed from the output file.
	Existing *BibTeXIndex
}

var entryStartRegex = regexp.MustCompile(`@\w+\s*\{\s*([^,\s]+)\s*,`)

// CitationKey returns the key of the first entry in text, or "".
func CitationKey(text string) string {
	if m := entryStartRegex.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return ""
}

// Collect gathers the stored BibTeX of every publication in records,
// keeping the first entry seen for each citation key.
func Collect(records []Record, opts CollectOptions) *Collection {
	idx := opts.Existing
	if idx == nil {
		idx = NewBibTeXIndex()
	}
	kept := make(map[string]string)
	c := &Collection{Entries: []Entry{}, Duplicates: []Duplicate{}, Missing: []string{}}

	add := func(e Entry) {
		if idx.HasKey(e.Key) {
			c.Duplicates = append(c.Duplicates, Duplicate{Key: e.Key, File: e.File, Kept: kept[e.Key]})
			return
		}
		idx.Add(e.Key)
		kept[e.Key] = e.File
		c.Entries = append(c.Entries, e)
	}

	for _, r := range records {
		found := false
		for _, pub := range r.Paper.Publications {
			text := strings.TrimSpace(paper.Deref(pub.BibTeX))
			if text == "" {
				continue
			}
			found = true
			key := CitationKey(text)
			if key == "" {
				continue
			}
			add(Entry{Key: key, File: r.File, Venue: pub.Name, Text: text + "\n"})
		}
		if found {
			continue
		}
		if !opts.Generate {
			c.Missing = append(c.Missing, r.File)
			continue
		}
		pub := preferredPublication(r.Paper)
		key := GenerateKey(r.Paper, pub)
		e := Entry{Key: key, File: r.File, Generated: true, Text: ToBibTeX(r.Paper, pub, key)}
		if pub != nil {
			e.Venue = pub.Name
		}
		add(e)
	}
	return c
}

// String joins the collected entries into one .bib document.
func (c *Collection) String() string {
	texts := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		texts[i] = e.Text
	}
	return strings.Join(texts, "\n")
}

// preferredPublication picks the peer-reviewed venue over arXiv.
func preferredPublication(p *paper.Paper) *paper.Publication {
	var fallback *paper.Publication
	for i := range p.Publications {
		pub := &p.Publications[i]
		if paper.VenueKey(pub.Name) == paper.VenueKey(paper.ArXivVenue) {
			fallback = pub
			continue
		}
		return pub
	}
	return fallback
}

// GenerateKey builds a citation key as surname + year + first title word,
// e.g. "vaswani2017attention".
func GenerateKey(p *paper.Paper, pub *paper.Publication) string {
	var b strings.Builder
	if p.HasAuthors() {
		first, _, _ := strings.Cut(*p.Authors, ",")
		b.WriteString(keyPart(first))
	}
	if y := publicationYear(p, pub); y > 0 {
		fmt.Fprintf(&b, "%d", y)
	}
	for _, w := range strings.Fields(p.Title) {
		if part := keyPart(w); part != "" {
			b.WriteString(part)
			break
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

func keyPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func publicationYear(p *paper.Paper, pub *paper.Publication) int {
	if pub != nil && pub.Year != nil {
		return *pub.Year
	}
	if p.Year != nil {
		return *p.Year
	}
	return 0
}

// ToBibTeX renders an entry from record fields.
func ToBibTeX(p *paper.Paper, pub *paper.Publication, key string) string {
	venue := ""
	if pub != nil {
		venue = pub.Name
	}
	entryType := determineEntryType(venue)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", entryType, key)

	if p.HasAuthors() {
		fmt.Fprintf(&b, "  author = {%s},\n", formatAuthors(*p.Authors))
	}

	fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(p.Title))

	if venue != "" {
		fieldName := "journal"
		if entryType == "inproceedings" {
			fieldName = "booktitle"
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", fieldName, escapeLatex(venue))
	}

	if y := publicationYear(p, pub); y > 0 {
		fmt.Fprintf(&b, "  year = {%d},\n", y)
	}
	if pub != nil && pub.Month != nil {
		fmt.Fprintf(&b, "  month = {%d},\n", *pub.Month)
	}
	if pub != nil && pub.URL != nil {
		fmt.Fprintf(&b, "  url = {%s},\n", *pub.URL)
	}

	b.WriteString("}\n")
	return b.String()
}

// determineEntryType returns the BibTeX entry type for a venue name.
func determineEntryType(venue string) string {
	v := strings.ToLower(venue)
	switch {
	case v == "":
		return "misc"
	case strings.Contains(v, "arxiv"), strings.Contains(v, "corr"):
		return "article"
	case strings.Contains(v, "journal"), strings.Contains(v, "transactions"):
		return "article"
	}
	return "inproceedings"
}

// formatAuthors turns the record's comma-separated surnames into
// BibTeX's "A and B" form.
func formatAuthors(authors string) string {
	var names []string
	for _, a := range strings.Split(authors, ",") {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, escapeLatex(a))
		}
	}
	return strings.Join(names, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// & must come first
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
