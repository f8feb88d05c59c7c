package export

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// BibTeXIndex tracks citation keys already written.
type BibTeXIndex struct {
	Keys map[string]bool
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{Keys: make(map[string]bool)}
}

// HasKey reports whether key is indexed. Keys compare case-insensitively,
// as BibTeX does.
func (idx *BibTeXIndex) HasKey(key string) bool {
	return idx.Keys[strings.ToLower(key)]
}

// Add indexes key.
func (idx *BibTeXIndex) Add(key string) {
	idx.Keys[strings.ToLower(key)] = true
}

// ParseBibTeX indexes the entry keys in r.
func ParseBibTeX(r io.Reader) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if key := CitationKey(scanner.Text()); key != "" {
			idx.Add(key)
		}
	}
	return idx, scanner.Err()
}

// ParseBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewBibTeXIndex(), nil
		}
		return nil, err
	}
	defer file.Close()
	return ParseBibTeX(file)
}

// AppendToBibFile appends BibTeX content to a file.
func AppendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// Start on a new line
	_, err = file.WriteString("\n" + content)
	return err
}
