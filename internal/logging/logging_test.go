package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetup_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := Setup(Options{Level: "warn", Console: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer closeFn()

	logger.Info().Msg("hidden")
	logger.Warn().Str("paper", "attention.yml").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "paper=attention.yml") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "alps.log")
	var buf bytes.Buffer

	logger, closeFn, err := Setup(Options{File: path, Console: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info().Str("source", "dblp").Msg("searched")
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"source":"dblp"`) {
		t.Errorf("log file = %q, want JSON line", data)
	}
	if !strings.Contains(buf.String(), "searched") {
		t.Errorf("console = %q", buf.String())
	}
}

func TestSetup_BadLevel(t *testing.T) {
	if _, _, err := Setup(Options{Level: "loud", Console: &bytes.Buffer{}}); err == nil {
		t.Error("expected error for unknown level")
	}
}
