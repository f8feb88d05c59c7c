package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.RecordsProcessed.Inc()

	if got := testutil.ToFloat64(a.RecordsProcessed); got != 1 {
		t.Errorf("a.RecordsProcessed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.RecordsProcessed); got != 0 {
		t.Errorf("b.RecordsProcessed = %v, want 0", got)
	}
}

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("dblp", 200*time.Millisecond, nil)
	m.ObserveRequest("dblp", time.Second, errors.New("boom"))
	m.ObserveRequest("arxiv", time.Second, nil)

	if got := testutil.ToFloat64(m.SourceRequests.WithLabelValues("dblp", "ok")); got != 1 {
		t.Errorf("dblp ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SourceRequests.WithLabelValues("dblp", "error")); got != 1 {
		t.Errorf("dblp error = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.SourceLatency); got != 2 {
		t.Errorf("latency series = %d, want 2", got)
	}
}

func TestRunFinished(t *testing.T) {
	m := New()
	start := time.Unix(1700000000, 0)

	m.RunFinished(start, start.Add(90*time.Second))

	if got := testutil.ToFloat64(m.LastRun); got != 1700000090 {
		t.Errorf("LastRun = %v", got)
	}
	if got := testutil.ToFloat64(m.RunDuration); got != 90 {
		t.Errorf("RunDuration = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Updates.WithLabelValues("arxiv").Add(3)
	m.Errors.WithLabelValues(ErrorPersist).Inc()

	path := filepath.Join(t.TempDir(), "alps.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`alps_record_updates_total{source="arxiv"} 3`,
		`alps_errors_total{kind="persist"} 1`,
		`# HELP alps_records_processed_total`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}
