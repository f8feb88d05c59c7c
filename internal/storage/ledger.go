package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alps-lab/alps/internal/reconcile"
)

// ErrRunNotFound is returned when a run ID is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// Commands recorded as the kind of a run.
const (
	CommandUpdate  = "update"
	CommandResolve = "resolve"
)

// Ledger wraps the SQLite database recording update and resolve runs and
// the change events each run produced.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// RunCounts are the end-of-run totals stored with each run.
type RunCounts struct {
	Processed       int `json:"processed"`
	ArXivUpdates    int `json:"arxiv_updates"`
	DBLPUpdates     int `json:"dblp_updates"`
	NewPublications int `json:"new_publications"`
	S2Updates       int `json:"s2_updates"`
	Errors          int `json:"errors"`
}

// RunRow is one run as stored in the ledger.
type RunRow struct {
	ID         string     `json:"id"`
	Command    string     `json:"command"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	PapersDir  string     `json:"papers_dir"`
	DryRun     bool       `json:"dry_run"`
	Counts     RunCounts  `json:"counts"`
}

// EventRow is one change event as stored in the ledger.
type EventRow struct {
	RunID     string    `json:"run_id"`
	File      string    `json:"file"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	Venue     string    `json:"venue,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createLedgerSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}

	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func createLedgerSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			command TEXT NOT NULL DEFAULT 'update',
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			papers_dir TEXT NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			processed INTEGER NOT NULL DEFAULT 0,
			arxiv_updates INTEGER NOT NULL DEFAULT 0,
			dblp_updates INTEGER NOT NULL DEFAULT 0,
			new_publications INTEGER NOT NULL DEFAULT 0,
			s2_updates INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			file TEXT NOT NULL,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			kind TEXT NOT NULL,
			venue TEXT,
			detail TEXT,
			score REAL NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return addMissingColumns(db)
}

// runColumnsAdded are the runs columns absent from ledgers written before
// resolve runs were recorded.
var runColumnsAdded = []struct{ name, def string }{
	{"command", "TEXT NOT NULL DEFAULT 'update'"},
	{"s2_updates", "INTEGER NOT NULL DEFAULT 0"},
}

// addMissingColumns upgrades an older runs table in place.
func addMissingColumns(db *sql.DB) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info('runs')`)
	if err != nil {
		return err
	}
	have := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		have[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, col := range runColumnsAdded {
		if have[col.name] {
			continue
		}
		if _, err := db.Exec(`ALTER TABLE runs ADD COLUMN ` + col.name + ` ` + col.def); err != nil {
			return fmt.Errorf("adding column %s: %w", col.name, err)
		}
	}
	return nil
}

// BeginRun records the start of a run of command and returns its ID.
func (l *Ledger) BeginRun(command, papersDir string, dryRun bool) (string, error) {
	id := uuid.NewString()
	_, err := l.db.Exec(
		`INSERT INTO runs (id, command, started_at, papers_dir, dry_run) VALUES (?, ?, ?, ?, ?)`,
		id, command, l.now().UnixMilli(), papersDir, boolToInt(dryRun),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// RecordReport stores every event of rep against runID in one transaction.
// Reports without events are ignored.
func (l *Ledger) RecordReport(runID, file, title string, rep reconcile.Report) error {
	if len(rep.Events) == 0 {
		return nil
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO events (run_id, file, title, source, kind, venue, detail, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer stmt.Close()

	created := l.now().UnixMilli()
	for _, ev := range rep.Events {
		if _, err := stmt.Exec(runID, file, title, rep.Source, string(ev.Kind),
			nullableText(ev.Venue), nullableText(ev.Detail), rep.Score, created); err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
	}

	return tx.Commit()
}

// FinishRun stores the end-of-run totals.
func (l *Ledger) FinishRun(runID string, c RunCounts) error {
	res, err := l.db.Exec(`
		UPDATE runs SET finished_at = ?, processed = ?, arxiv_updates = ?,
			dblp_updates = ?, new_publications = ?, s2_updates = ?, errors = ?
		WHERE id = ?`,
		l.now().UnixMilli(), c.Processed, c.ArXivUpdates, c.DBLPUpdates,
		c.NewPublications, c.S2Updates, c.Errors, runID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns up to limit runs, most recent first. A non-positive
// limit returns every run.
func (l *Ledger) ListRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.Query(`
		SELECT id, command, started_at, finished_at, papers_dir, dry_run,
			processed, arxiv_updates, dblp_updates, new_publications, s2_updates, errors
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var (
			r        RunRow
			started  int64
			finished sql.NullInt64
			dryRun   int
		)
		if err := rows.Scan(&r.ID, &r.Command, &started, &finished, &r.PapersDir, &dryRun,
			&r.Counts.Processed, &r.Counts.ArXivUpdates, &r.Counts.DBLPUpdates,
			&r.Counts.NewPublications, &r.Counts.S2Updates, &r.Counts.Errors); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			t := time.UnixMilli(finished.Int64)
			r.FinishedAt = &t
		}
		r.DryRun = dryRun != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// EventsForRun returns the events recorded for runID in insertion order.
func (l *Ledger) EventsForRun(runID string) ([]EventRow, error) {
	rows, err := l.db.Query(`
		SELECT run_id, file, title, source, kind, venue, detail, score, created_at
		FROM events
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var (
			e       EventRow
			venue   sql.NullString
			detail  sql.NullString
			created int64
		)
		if err := rows.Scan(&e.RunID, &e.File, &e.Title, &e.Source, &e.Kind,
			&venue, &detail, &e.Score, &created); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Venue = venue.String
		e.Detail = detail.String
		e.CreatedAt = time.UnixMilli(created)
		events = append(events, e)
	}
	return events, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableText stores empty strings as NULL.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
