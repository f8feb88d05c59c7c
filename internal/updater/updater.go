// Package updater runs the batch enrichment of a papers directory: every
// record is reconciled against arXiv and then DBLP, and written back.
package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/alps-lab/alps/internal/metrics"
	"github.com/alps-lab/alps/internal/paper"
	"github.com/alps-lab/alps/internal/reconcile"
	"github.com/alps-lab/alps/internal/storage"
)

// ErrPapersDir is returned by Run when the papers directory cannot be
// listed. It is the only error that aborts a run.
var ErrPapersDir = errors.New("cannot enumerate papers directory")

// ArXivSource searches the preprint index.
type ArXivSource interface {
	Search(ctx context.Context, title string) ([]reconcile.ArXivHit, error)
}

// DBLPSource searches the indexed-publication database and fetches BibTeX
// for its records.
type DBLPSource interface {
	Search(ctx context.Context, title string) ([]reconcile.DBLPHit, error)
	BibTeX(ctx context.Context, key string) (string, error)
}

// Ledger records runs and their change events.
type Ledger interface {
	BeginRun(command, papersDir string, dryRun bool) (string, error)
	RecordReport(runID, file, title string, rep reconcile.Report) error
	FinishRun(runID string, c storage.RunCounts) error
}

// Options configures a run.
type Options struct {
	PapersDir      string
	Filter         string // Glob on record file names; empty means all
	ArXivThreshold float64
	DBLPThreshold  float64
	Pause          time.Duration // Between records
	DryRun         bool          // Reconcile and report, but write nothing
	Limit          int           // Process at most this many records; 0 means all
	VenueFilter    reconcile.VenueFilter
	Aliases        reconcile.VenueAliases
}

// Stats are the end-of-run totals.
type Stats struct {
	Processed       int    `json:"papers_processed"`
	ArXivUpdates    int    `json:"arxiv_updates"`
	DBLPUpdates     int    `json:"dblp_updates"`
	NewPublications int    `json:"new_publications"`
	Errors          int    `json:"errors"`
	LoadErrors      int    `json:"load_errors"`
	RemoteErrors    int    `json:"remote_errors"`
	PersistErrors   int    `json:"persist_errors"`
	Unchanged       int    `json:"unchanged"`
	Interrupted     bool   `json:"interrupted,omitempty"`
	RunID           string `json:"run_id,omitempty"`
}

func (s *Stats) counts() storage.RunCounts {
	return storage.RunCounts{
		Processed:       s.Processed,
		ArXivUpdates:    s.ArXivUpdates,
		DBLPUpdates:     s.DBLPUpdates,
		NewPublications: s.NewPublications,
		Errors:          s.Errors,
	}
}

// Record is a loaded record and the file it came from.
type Record struct {
	Path  string
	Paper *paper.Paper
}

// Updater drives one enrichment run.
type Updater struct {
	opts    Options
	arxiv   ArXivSource
	dblp    DBLPSource
	ledger  Ledger
	metrics *metrics.Metrics
	log     zerolog.Logger
	sleep   func(context.Context, time.Duration) error
	now     func() time.Time
}

// Option configures an Updater.
type Option func(*Updater)

// WithLedger records the run and its events in l.
func WithLedger(l Ledger) Option {
	return func(u *Updater) {
		u.ledger = l
	}
}

// WithMetrics updates m as the run progresses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(u *Updater) {
		u.metrics = m
	}
}

// WithLogger sets the progress logger.
func WithLogger(l zerolog.Logger) Option {
	return func(u *Updater) {
		u.log = l
	}
}

// New creates an Updater reading from arxiv and dblp.
func New(opts Options, arxiv ArXivSource, dblp DBLPSource, options ...Option) *Updater {
	u := &Updater{
		opts:  opts,
		arxiv: arxiv,
		dblp:  dblp,
		log:   zerolog.Nop(),
		sleep: sleepContext,
		now:   time.Now,
	}
	for _, opt := range options {
		opt(u)
	}
	return u
}

// Run processes every record in the papers directory, sequentially, in
// ascending order of publication count. Per-record failures are counted in
// the returned Stats and never stop the run; only an unlistable papers
// directory returns an error. Cancelling ctx stops the run between
// records, leaving already-written records on disk.
func (u *Updater) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	start := u.now()

	paths, err := storage.ListRecords(u.opts.PapersDir, u.opts.Filter)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrPapersDir, err)
	}

	records := u.load(paths, &stats)
	SortByPublications(records)
	if u.opts.Limit > 0 && len(records) > u.opts.Limit {
		records = records[:u.opts.Limit]
	}

	u.log.Info().
		Int("records", len(records)).
		Int("load_errors", stats.LoadErrors).
		Bool("dry_run", u.opts.DryRun).
		Msg("starting update")

	runID := u.beginRun()
	stats.RunID = runID

	for i, rec := range records {
		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}

		u.log.Info().
			Str("paper", rec.Paper.Title).
			Str("progress", fmt.Sprintf("%d/%d", i+1, len(records))).
			Msg("processing")
		u.process(ctx, runID, rec, &stats)

		if i < len(records)-1 && u.opts.Pause > 0 {
			if err := u.sleep(ctx, u.opts.Pause); err != nil {
				stats.Interrupted = true
				break
			}
		}
	}

	stats.Errors = stats.LoadErrors + stats.RemoteErrors + stats.PersistErrors
	u.finishRun(runID, &stats, start)
	return stats, nil
}

// load reads every path, counting and logging failures.
func (u *Updater) load(paths []string, stats *Stats) []Record {
	records := make([]Record, 0, len(paths))
	for _, path := range paths {
		p, err := storage.LoadRecord(path)
		if err != nil {
			stats.LoadErrors++
			u.countError(metrics.ErrorLoad)
			u.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("skipping record")
			continue
		}
		records = append(records, Record{Path: path, Paper: p})
	}
	return records
}

// SortByPublications orders records by ascending publication count,
// keeping file order among equals.
func SortByPublications(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return len(records[i].Paper.Publications) < len(records[j].Paper.Publications)
	})
}

// process reconciles one record against both sources and persists it.
func (u *Updater) process(ctx context.Context, runID string, rec Record, stats *Stats) {
	p := rec.Paper
	file := filepath.Base(rec.Path)
	logger := u.log.With().Str("file", file).Logger()

	before, _ := storage.MarshalRecord(p)

	if !u.opts.DryRun {
		if _, err := storage.Backup(rec.Path); err != nil {
			logger.Warn().Err(err).Msg("backup failed")
		}
	}

	if rep, ok := u.reconcileArXiv(ctx, p, logger, stats); ok {
		if rep.Changed() {
			stats.ArXivUpdates++
			u.countUpdate(reconcile.SourceArXiv)
		}
		u.record(runID, file, p.Title, rep, logger, stats)
	}

	if rep, ok := u.reconcileDBLP(ctx, p, logger, stats); ok {
		if rep.Changed() {
			stats.DBLPUpdates++
			u.countUpdate(reconcile.SourceDBLP)
		}
		u.record(runID, file, p.Title, rep, logger, stats)
	}

	stats.Processed++
	if u.metrics != nil {
		u.metrics.RecordsProcessed.Inc()
	}

	after, err := storage.MarshalRecord(p)
	if err == nil && bytes.Equal(before, after) {
		stats.Unchanged++
		if u.metrics != nil {
			u.metrics.RecordsUnchanged.Inc()
		}
		logger.Debug().Msg("unchanged")
		return
	}
	if u.opts.DryRun {
		return
	}
	if err := storage.SaveRecord(rec.Path, p); err != nil {
		stats.PersistErrors++
		u.countError(metrics.ErrorPersist)
		logger.Error().Err(err).Msg("saving record")
	}
}

func (u *Updater) reconcileArXiv(ctx context.Context, p *paper.Paper, logger zerolog.Logger, stats *Stats) (reconcile.Report, bool) {
	start := u.now()
	hits, err := u.arxiv.Search(ctx, p.Title)
	u.observe(reconcile.SourceArXiv, start, err)
	if err != nil {
		stats.RemoteErrors++
		u.countError(metrics.ErrorRemote)
		logger.Warn().Err(err).Str("source", reconcile.SourceArXiv).Msg("search failed")
		return reconcile.Report{}, false
	}
	return reconcile.ArXiv(p, hits, u.opts.ArXivThreshold), true
}

// reconcileDBLP selects the winning hit first so that BibTeX is fetched
// for it alone, and only when the merge could store it.
func (u *Updater) reconcileDBLP(ctx context.Context, p *paper.Paper, logger zerolog.Logger, stats *Stats) (reconcile.Report, bool) {
	start := u.now()
	hits, err := u.dblp.Search(ctx, p.Title)
	u.observe(reconcile.SourceDBLP, start, err)
	if err != nil {
		stats.RemoteErrors++
		u.countError(metrics.ErrorRemote)
		logger.Warn().Err(err).Str("source", reconcile.SourceDBLP).Msg("search failed")
		return reconcile.Report{}, false
	}

	i, score := reconcile.SelectDBLP(p, hits, u.opts.DBLPThreshold, u.opts.VenueFilter)
	if i < 0 {
		return reconcile.Report{Source: reconcile.SourceDBLP}, true
	}

	hit := hits[i]
	if hit.Key != "" && u.needsBibTeX(p, hit) {
		start := u.now()
		bib, err := u.dblp.BibTeX(ctx, hit.Key)
		u.observe(reconcile.SourceDBLP, start, err)
		if err != nil {
			logger.Warn().Err(err).Str("key", hit.Key).Msg("bibtex fetch failed")
		} else {
			hit.BibTeX = bib
		}
	}
	return reconcile.MergeDBLP(p, hit, score, u.opts.Aliases), true
}

// needsBibTeX reports whether merging hit could store its BibTeX.
func (u *Updater) needsBibTeX(p *paper.Paper, hit reconcile.DBLPHit) bool {
	pub := u.opts.Aliases.FindPublication(p, hit.Venue)
	return pub == nil || paper.Deref(pub.BibTeX) == ""
}

// record logs a report's events, counts new publications and writes the
// events to the ledger.
func (u *Updater) record(runID, file, title string, rep reconcile.Report, logger zerolog.Logger, stats *Stats) {
	if !rep.Matched {
		logger.Debug().Str("source", rep.Source).Msg("no match")
		return
	}
	for _, ev := range rep.Events {
		logger.Info().
			Str("source", rep.Source).
			Str("event", string(ev.Kind)).
			Str("venue", ev.Venue).
			Str("detail", ev.Detail).
			Float64("score", rep.Score).
			Msg("updated")
	}

	n := rep.Count(reconcile.EventNewPublication)
	stats.NewPublications += n
	if u.metrics != nil && n > 0 {
		u.metrics.NewPublications.Add(float64(n))
	}

	if u.ledger != nil && runID != "" {
		if err := u.ledger.RecordReport(runID, file, title, rep); err != nil {
			logger.Warn().Err(err).Msg("ledger write failed")
		}
	}
}

func (u *Updater) beginRun() string {
	if u.ledger == nil {
		return ""
	}
	id, err := u.ledger.BeginRun(storage.CommandUpdate, u.opts.PapersDir, u.opts.DryRun)
	if err != nil {
		u.log.Warn().Err(err).Msg("ledger unavailable")
		return ""
	}
	return id
}

func (u *Updater) finishRun(runID string, stats *Stats, start time.Time) {
	if u.ledger != nil && runID != "" {
		if err := u.ledger.FinishRun(runID, stats.counts()); err != nil {
			u.log.Warn().Err(err).Msg("ledger write failed")
		}
	}
	if u.metrics != nil {
		u.metrics.RunFinished(start, u.now())
	}

	u.log.Info().
		Int("processed", stats.Processed).
		Int("arxiv_updates", stats.ArXivUpdates).
		Int("dblp_updates", stats.DBLPUpdates).
		Int("new_publications", stats.NewPublications).
		Int("errors", stats.Errors).
		Bool("interrupted", stats.Interrupted).
		Msg("update finished")
}

func (u *Updater) observe(source string, start time.Time, err error) {
	if u.metrics != nil {
		u.metrics.ObserveRequest(source, u.now().Sub(start), err)
	}
}

func (u *Updater) countError(kind string) {
	if u.metrics != nil {
		u.metrics.Errors.WithLabelValues(kind).Inc()
	}
}

func (u *Updater) countUpdate(source string) {
	if u.metrics != nil {
		u.metrics.Updates.WithLabelValues(source).Inc()
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
