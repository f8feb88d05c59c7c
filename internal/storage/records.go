// Package storage persists paper records as YAML files and keeps a SQLite
// ledger of update runs.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/alps-lab/alps/internal/paper"
)

// BackupSuffix is appended to a record path to form its backup path.
const BackupSuffix = ".bak"

// recordExts are the file extensions treated as paper records.
var recordExts = []string{".yml", ".yaml"}

// ErrUnknownEncoding is returned for record files that are not UTF-8 and
// whose character set cannot be detected.
var ErrUnknownEncoding = errors.New("unknown text encoding")

// ErrEmptyRecord is returned for record files without a YAML document.
var ErrEmptyRecord = errors.New("empty record file")

// utf8BOM is stripped from the start of record files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsRecordFile reports whether name has a record file extension.
func IsRecordFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range recordExts {
		if ext == e {
			return true
		}
	}
	return false
}

// ListRecords returns the record files in dir, sorted by name. When filter
// is non-empty only files whose base name matches the glob are returned.
// Subdirectories are not searched.
func ListRecords(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading papers directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsRecordFile(e.Name()) {
			continue
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, e.Name()); !ok {
				continue
			}
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// LoadRecord reads and validates one record file. Unknown fields are
// rejected so that saving a record never drops data.
func LoadRecord(path string) (*paper.Paper, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	data, err := DecodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p paper.Paper
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyRecord
		}
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record %s: %w", filepath.Base(path), err)
	}
	return &p, nil
}

// DecodeText returns data as UTF-8. Valid UTF-8 is returned as is, minus a
// byte-order mark; anything else is transcoded from the detected charset.
func DecodeText(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return bytes.TrimPrefix(data, utf8BOM), nil
	}

	det, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || det == nil {
		return nil, ErrUnknownEncoding
	}
	enc, err := htmlindex.Get(det.Charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, det.Charset)
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("transcoding from %s: %w", det.Charset, err)
	}
	return out, nil
}

// MarshalRecord encodes p in the record file layout.
func MarshalRecord(p *paper.Paper) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveRecord writes p to path, replacing the file atomically.
func SaveRecord(path string, p *paper.Paper) error {
	data, err := MarshalRecord(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing record: %w", err)
	}
	return nil
}

// Backup copies the record at path to path+BackupSuffix, overwriting any
// earlier backup. It returns the backup path.
func Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading record for backup: %w", err)
	}
	dst := path + BackupSuffix
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return dst, nil
}
