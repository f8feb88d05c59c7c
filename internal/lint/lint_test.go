package lint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

// messages returns the issues for file as "severity: message" strings.
func messages(res *Result, file string) []string {
	var out []string
	for _, i := range res.Issues {
		if i.File == file {
			out = append(out, string(i.Severity)+": "+i.Message)
		}
	}
	return out
}

func hasMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestDir_CleanFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.yml": `title: Attention Is All You Need
authors: Vaswani, Shazeer
labels:
  - transformers
publications:
  - name: NeurIPS
    url: https://papers.nips.cc/7181
    year: 2017
    dblp_key: conf/nips/VaswaniSPUJGKP17
  - name: arXiv
    year: 2017
    month: 6
    day: 12
`,
		"b.yml": `title: BERT
authors: Devlin
labels: [transformers]
`,
	})

	res, err := Dir(dir, "")
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if res.Files != 2 {
		t.Errorf("Files = %d, want 2", res.Files)
	}
	if res.Errors != 0 || res.Warnings != 0 {
		t.Errorf("issues = %v", res.Issues)
	}
}

func TestDir_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "title: T\nauthors: A\ncitations: 3\n", "unknown field 'citations'"},
		{"missing title", "authors: A\n", "missing required field 'title'"},
		{"missing authors", "title: T\n", "missing required field 'authors'"},
		{"empty authors", "title: T\nauthors: ''\n", "missing required field 'authors'"},
		{"numeric title", "title: 2017\nauthors: A\n", "'title' must be a string, got int"},
		{"year as string", "title: T\nauthors: A\nyear: soon\n", "'year' must be an integer, got str"},
		{"labels mapping", "title: T\nauthors: A\nlabels:\n  x: y\n", "'labels' must be a list, got mapping"},
		{"label not string", "title: T\nauthors: A\nlabels: [[x]]\n", "labels[0] must be a string, got list"},
		{"publications scalar", "title: T\nauthors: A\npublications: ICML\n", "'publications' must be a list, got str"},
		{"publication scalar", "title: T\nauthors: A\npublications: [ICML]\n", "publications[0] must be a mapping, got str"},
		{"publication unknown", "title: T\nauthors: A\npublications:\n  - name: ICML\n    pages: 1-9\n", "publications[0]: unknown field 'pages'"},
		{"publication no name", "title: T\nauthors: A\npublications:\n  - year: 2020\n", "publications[0]: missing required field 'name'"},
		{"publication bad month", "title: T\nauthors: A\npublications:\n  - name: arXiv\n    month: 13\n", "'month' out of range"},
		{"publication month string", "title: T\nauthors: A\npublications:\n  - name: arXiv\n    month: June\n", "'month' must be an integer, got str"},
		{"publication url int", "title: T\nauthors: A\npublications:\n  - name: ICML\n    url: 5\n", "'url' must be a string, got int"},
		{"duplicate venue", "title: T\nauthors: A\npublications:\n  - name: ICML\n  - name: icml\n", "venue 'icml' already listed at publications[0]"},
		{"not a mapping", "- a\n- b\n", "not a YAML mapping"},
		{"empty file", "", "not a YAML mapping"},
		{"malformed", "title: [x\n", "cannot parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"p.yml": tt.content})
			res, err := Dir(dir, "")
			if err != nil {
				t.Fatalf("Dir() error = %v", err)
			}
			msgs := messages(res, "p.yml")
			if !hasMessage(msgs, "error: "+tt.want) && !hasMessage(msgs, tt.want) {
				t.Errorf("issues = %v, want one containing %q", msgs, tt.want)
			}
			if res.Errors == 0 {
				t.Error("Errors = 0")
			}
		})
	}
}

func TestDir_Warnings(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.yml": "authors: A\ntitle: T\nlabels: [shared, tpyo]\npublications:\n  - url: u\n    name: ICML\n",
		"b.yml": "title: U\nauthors: B\nlabels: [shared]\n",
	})

	res, err := Dir(dir, "")
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if res.Errors != 0 {
		t.Errorf("Errors = %d: %v", res.Errors, res.Issues)
	}

	msgs := messages(res, "a.yml")
	for _, want := range []string{
		"warning: label 'tpyo' is unique to this file",
		"warning: field order should be [title, authors, labels, publications], got [authors, title, labels, publications]",
		"warning: publications[0]: field order should be [name, url]",
	} {
		if !hasMessage(msgs, want) {
			t.Errorf("issues = %v, want %q", msgs, want)
		}
	}
	if hasMessage(msgs, "label 'shared'") {
		t.Error("shared label reported as unique")
	}
	if len(messages(res, "b.yml")) != 0 {
		t.Errorf("b.yml issues = %v", messages(res, "b.yml"))
	}
}

func TestDir_Filter(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.yml": "title: T\n",
		"b.yml": "title: U\nauthors: B\n",
	})

	res, err := Dir(dir, "b*")
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if res.Files != 1 || res.Errors != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestIssue_String(t *testing.T) {
	i := Issue{File: "p.yml", Line: 3, Severity: SeverityError, Message: "bad"}
	if got := i.String(); got != "p.yml:3: error: bad" {
		t.Errorf("String() = %q", got)
	}
	i.Line = 0
	if got := i.String(); got != "p.yml: error: bad" {
		t.Errorf("String() = %q", got)
	}
}
