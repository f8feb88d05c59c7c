// Package lint checks paper record files against the record layout:
// known fields, field types, field order, unique venues, and labels that
// occur in only one file.
package lint

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alps-lab/alps/internal/paper"
	"github.com/alps-lab/alps/internal/storage"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// FieldOrder is the expected order of top-level record fields.
var FieldOrder = []string{"title", "authors", "abstract", "labels", "publications", "year", "arxiv", "s2_id"}

// PublicationFieldOrder is the expected order of publication fields.
var PublicationFieldOrder = []string{"name", "url", "year", "month", "day", "dblp_key", "bibtex"}

var (
	stringFields    = []string{"abstract", "arxiv", "s2_id"}
	pubStringFields = []string{"url", "dblp_key", "bibtex"}
	pubIntFields    = []string{"year", "month", "day"}
)

// Issue is one finding in one file.
type Issue struct {
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", i.File, i.Line, i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.File, i.Severity, i.Message)
}

// Result summarizes a lint run.
type Result struct {
	Files    int     `json:"files"`
	Errors   int     `json:"errors"`
	Warnings int     `json:"warnings"`
	Issues   []Issue `json:"issues"`
}

// document is a parsed record file.
type document struct {
	name string
	root *yaml.Node // mapping node, nil if the file is not a mapping
	err  error      // read or parse failure
}

// Dir lints every record file in dir whose name matches filter.
func Dir(dir, filter string) (*Result, error) {
	paths, err := storage.ListRecords(dir, filter)
	if err != nil {
		return nil, err
	}
	return Files(paths), nil
}

// Files lints the given record files. Label uniqueness is judged across
// all of them.
func Files(paths []string) *Result {
	docs := make([]document, 0, len(paths))
	labels := make(map[string]int)

	for _, path := range paths {
		doc := parse(path)
		docs = append(docs, doc)
		if doc.root == nil {
			continue
		}
		if seq := lookup(doc.root, "labels"); seq != nil && seq.Kind == yaml.SequenceNode {
			for _, l := range seq.Content {
				if isString(l) {
					labels[l.Value]++
				}
			}
		}
	}

	res := &Result{Files: len(paths), Issues: []Issue{}}
	for _, doc := range docs {
		for _, issue := range check(doc, labels) {
			res.Issues = append(res.Issues, issue)
			if issue.Severity == SeverityError {
				res.Errors++
			} else {
				res.Warnings++
			}
		}
	}
	return res
}

func parse(path string) document {
	doc := document{name: filepath.Base(path)}

	raw, err := os.ReadFile(path)
	if err != nil {
		doc.err = err
		return doc
	}
	data, err := storage.DecodeText(raw)
	if err != nil {
		doc.err = err
		return doc
	}

	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		doc.err = err
		return doc
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 && n.Content[0].Kind == yaml.MappingNode {
		doc.root = n.Content[0]
	}
	return doc
}

// checker accumulates the issues of one file.
type checker struct {
	file   string
	issues []Issue
}

func (c *checker) errorf(n *yaml.Node, format string, args ...any) {
	c.add(SeverityError, n, format, args...)
}

func (c *checker) warnf(n *yaml.Node, format string, args ...any) {
	c.add(SeverityWarning, n, format, args...)
}

func (c *checker) add(sev Severity, n *yaml.Node, format string, args ...any) {
	issue := Issue{File: c.file, Severity: sev, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		issue.Line = n.Line
	}
	c.issues = append(c.issues, issue)
}

func check(doc document, labels map[string]int) []Issue {
	c := &checker{file: doc.name}

	if doc.err != nil {
		c.errorf(nil, "cannot parse: %v", doc.err)
		return c.issues
	}
	if doc.root == nil || len(doc.root.Content) == 0 {
		c.errorf(nil, "file is empty or not a YAML mapping")
		return c.issues
	}
	root := doc.root

	var keys []string
	for i := 0; i+1 < len(root.Content); i += 2 {
		k := root.Content[i]
		if !slices.Contains(FieldOrder, k.Value) {
			c.errorf(k, "unknown field '%s'", k.Value)
			continue
		}
		keys = append(keys, k.Value)
	}

	for _, req := range []string{"title", "authors"} {
		v := lookup(root, req)
		switch {
		case v == nil || isEmpty(v):
			c.errorf(root, "missing required field '%s'", req)
		case !isString(v):
			c.errorf(v, "'%s' must be a string, got %s", req, kindName(v))
		}
	}

	for _, f := range stringFields {
		if v := lookup(root, f); v != nil && !isNull(v) && !isString(v) {
			c.errorf(v, "'%s' must be a string, got %s", f, kindName(v))
		}
	}

	if v := lookup(root, "year"); v != nil && !isNull(v) && !isInt(v) {
		c.errorf(v, "'year' must be an integer, got %s", kindName(v))
	}

	if v := lookup(root, "labels"); v != nil && !isNull(v) {
		if v.Kind != yaml.SequenceNode {
			c.errorf(v, "'labels' must be a list, got %s", kindName(v))
		} else {
			for i, l := range v.Content {
				switch {
				case !isString(l):
					c.errorf(l, "labels[%d] must be a string, got %s", i, kindName(l))
				case labels[l.Value] == 1:
					c.warnf(l, "label '%s' is unique to this file (typo?)", l.Value)
				}
			}
		}
	}

	if v := lookup(root, "publications"); v != nil && !isNull(v) {
		if v.Kind != yaml.SequenceNode {
			c.errorf(v, "'publications' must be a list, got %s", kindName(v))
		} else {
			c.checkPublications(v)
		}
	}

	if want := ordered(keys, FieldOrder); !slices.Equal(keys, want) {
		c.warnf(root, "field order should be [%s], got [%s]", strings.Join(want, ", "), strings.Join(keys, ", "))
	}

	return c.issues
}

func (c *checker) checkPublications(seq *yaml.Node) {
	seen := make(map[string]int)

	for i, pub := range seq.Content {
		prefix := fmt.Sprintf("publications[%d]", i)
		if pub.Kind != yaml.MappingNode {
			c.errorf(pub, "%s must be a mapping, got %s", prefix, kindName(pub))
			continue
		}

		var keys []string
		for j := 0; j+1 < len(pub.Content); j += 2 {
			k := pub.Content[j]
			if !slices.Contains(PublicationFieldOrder, k.Value) {
				c.errorf(k, "%s: unknown field '%s'", prefix, k.Value)
				continue
			}
			keys = append(keys, k.Value)
		}

		name := lookup(pub, "name")
		switch {
		case name == nil || isEmpty(name):
			c.errorf(pub, "%s: missing required field 'name'", prefix)
		case !isString(name):
			c.errorf(name, "%s: 'name' must be a string", prefix)
		default:
			key := paper.VenueKey(name.Value)
			if first, dup := seen[key]; dup {
				c.errorf(name, "%s: venue '%s' already listed at publications[%d]", prefix, name.Value, first)
			} else {
				seen[key] = i
			}
		}

		for _, f := range pubStringFields {
			if v := lookup(pub, f); v != nil && !isNull(v) && !isString(v) {
				c.errorf(v, "%s: '%s' must be a string, got %s", prefix, f, kindName(v))
			}
		}
		for _, f := range pubIntFields {
			if v := lookup(pub, f); v != nil && !isNull(v) && !isInt(v) {
				c.errorf(v, "%s: '%s' must be an integer, got %s", prefix, f, kindName(v))
			}
		}
		c.checkRange(pub, prefix, "month", 1, 12)
		c.checkRange(pub, prefix, "day", 1, 31)

		if want := ordered(keys, PublicationFieldOrder); !slices.Equal(keys, want) {
			c.warnf(pub, "%s: field order should be [%s], got [%s]", prefix, strings.Join(want, ", "), strings.Join(keys, ", "))
		}
	}
}

func (c *checker) checkRange(pub *yaml.Node, prefix, field string, lo, hi int) {
	v := lookup(pub, field)
	if v == nil || !isInt(v) {
		return
	}
	var n int
	if err := v.Decode(&n); err != nil {
		return
	}
	if n < lo || n > hi {
		c.errorf(v, "%s: '%s' out of range [%d, %d]: %d", prefix, field, lo, hi, n)
	}
}

// ordered returns keys sorted into the reference order.
func ordered(keys, reference []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range reference {
		if slices.Contains(keys, k) {
			out = append(out, k)
		}
	}
	return out
}

// lookup returns the value node for key in a mapping node, or nil.
func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func isString(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

func isInt(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!int"
}

func isEmpty(n *yaml.Node) bool {
	return isNull(n) || (isString(n) && strings.TrimSpace(n.Value) == "")
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	}
	return strings.TrimPrefix(n.ShortTag(), "!!")
}
