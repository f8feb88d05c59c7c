// Package resolver fills the Semantic Scholar paper ID and the arXiv ID of
// records that lack them. Each record is tried against a fixed sequence of
// strategies, cheapest first, and the first that yields a paper wins.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/alps-lab/alps/internal/metrics"
	"github.com/alps-lab/alps/internal/paper"
	"github.com/alps-lab/alps/internal/reconcile"
	"github.com/alps-lab/alps/internal/s2"
	"github.com/alps-lab/alps/internal/storage"
)

// ErrPapersDir is returned by Run when the papers directory cannot be
// listed. It is the only error that aborts a run.
var ErrPapersDir = errors.New("cannot enumerate papers directory")

// Strategies, in the order they are tried.
const (
	// StrategyCached means the record already had an s2_id.
	StrategyCached = "cached"
	// StrategyArXiv means the paper was found by the record's arXiv ID.
	StrategyArXiv = "arxiv"
	// StrategyDBLP means the paper was found by a publication's DBLP key.
	StrategyDBLP = "dblp"
	// StrategyTitle means a title search returned a matching paper.
	StrategyTitle = "title_search"
	// StrategyFailed means no strategy found the paper.
	StrategyFailed = "failed"
)

// Source looks papers up in Semantic Scholar. Paper returns an error
// matching s2.ErrNotFound for unindexed identifiers.
type Source interface {
	Paper(ctx context.Context, id string) (reconcile.S2Hit, error)
	Search(ctx context.Context, title string) ([]reconcile.S2Hit, error)
}

// Ledger records runs and their change events.
type Ledger interface {
	BeginRun(command, papersDir string, dryRun bool) (string, error)
	RecordReport(runID, file, title string, rep reconcile.Report) error
	FinishRun(runID string, c storage.RunCounts) error
}

// Options configures a run.
type Options struct {
	PapersDir string
	Filter    string  // Glob on record file names; empty means all
	Threshold float64 // Minimum title score for a title-search match
	DryRun    bool    // Resolve and report, but write nothing
	Limit     int     // Look up at most this many records; 0 means all
	NoSearch  bool    // Skip the title search strategy
}

// Stats are the end-of-run totals.
type Stats struct {
	Processed     int            `json:"papers_processed"`
	Strategies    map[string]int `json:"strategies"`
	S2IDsFilled   int            `json:"s2_ids_filled"`
	ArXivFilled   int            `json:"arxiv_filled"`
	Updated       int            `json:"records_updated"`
	Errors        int            `json:"errors"`
	LoadErrors    int            `json:"load_errors"`
	RemoteErrors  int            `json:"remote_errors"`
	PersistErrors int            `json:"persist_errors"`
	Interrupted   bool           `json:"interrupted,omitempty"`
	RunID         string         `json:"run_id,omitempty"`
}

func (s *Stats) counts() storage.RunCounts {
	return storage.RunCounts{
		Processed: s.Processed,
		S2Updates: s.Updated,
		Errors:    s.Errors,
	}
}

// Result is the outcome of resolving one record.
type Result struct {
	Strategy string
	Hit      reconcile.S2Hit
	Score    float64 // Title score of the hit; set by title search only
}

// Resolver drives one resolve run.
type Resolver struct {
	opts    Options
	source  Source
	ledger  Ledger
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLedger records the run and its events in l.
func WithLedger(l Ledger) Option {
	return func(r *Resolver) {
		r.ledger = l
	}
}

// WithMetrics updates m as the run progresses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithLogger sets the progress logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// New creates a Resolver reading from source.
func New(opts Options, source Source, options ...Option) *Resolver {
	r := &Resolver{
		opts:   opts,
		source: source,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Run resolves every record in the papers directory in file order.
// Per-record failures are counted and never stop the run; only an
// unlistable papers directory returns an error. Cancelling ctx stops the
// run between records.
func (r *Resolver) Run(ctx context.Context) (Stats, error) {
	stats := Stats{Strategies: make(map[string]int)}
	start := r.now()

	paths, err := storage.ListRecords(r.opts.PapersDir, r.opts.Filter)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrPapersDir, err)
	}

	r.log.Info().
		Int("records", len(paths)).
		Bool("dry_run", r.opts.DryRun).
		Bool("no_search", r.opts.NoSearch).
		Msg("starting resolve")

	runID := r.beginRun()
	stats.RunID = runID

	lookups := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}

		p, err := storage.LoadRecord(path)
		if err != nil {
			stats.LoadErrors++
			r.countError(metrics.ErrorLoad)
			r.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("skipping record")
			continue
		}

		remote := !hasS2ID(p)
		if remote && r.opts.Limit > 0 && lookups >= r.opts.Limit {
			continue
		}
		if remote {
			lookups++
		}
		r.process(ctx, runID, path, p, &stats)
	}

	if ctx.Err() != nil {
		stats.Interrupted = true
	}
	stats.Errors = stats.LoadErrors + stats.RemoteErrors + stats.PersistErrors
	r.finishRun(runID, &stats, start)
	return stats, nil
}

// hasS2ID reports whether p's s2_id is populated, including the
// unresolvable marker.
func hasS2ID(p *paper.Paper) bool {
	return paper.Deref(p.S2ID) != ""
}

// process fills one record's identifiers and persists it.
func (r *Resolver) process(ctx context.Context, runID, path string, p *paper.Paper, stats *Stats) {
	file := filepath.Base(path)
	logger := r.log.With().Str("file", file).Logger()

	before, _ := storage.MarshalRecord(p)

	local := reconcile.FillArXivID(p)
	r.record(runID, file, p.Title, local, logger, stats)

	res, err := r.Resolve(ctx, p)
	if err != nil {
		stats.RemoteErrors++
		r.countError(metrics.ErrorRemote)
		logger.Warn().Err(err).Str("source", reconcile.SourceS2).Msg("lookup failed")
	} else {
		stats.Strategies[res.Strategy]++
		logger.Debug().Str("strategy", res.Strategy).Msg("resolved")
		if res.Hit.PaperID != "" {
			rep := reconcile.MergeS2(p, res.Hit, res.Score)
			r.record(runID, file, p.Title, rep, logger, stats)
		}
	}

	stats.Processed++
	if r.metrics != nil {
		r.metrics.RecordsProcessed.Inc()
	}

	after, err := storage.MarshalRecord(p)
	if err == nil && bytes.Equal(before, after) {
		if r.metrics != nil {
			r.metrics.RecordsUnchanged.Inc()
		}
		return
	}
	stats.Updated++
	r.countUpdate()
	if r.opts.DryRun {
		return
	}
	if _, err := storage.Backup(path); err != nil {
		logger.Warn().Err(err).Msg("backup failed")
	}
	if err := storage.SaveRecord(path, p); err != nil {
		stats.PersistErrors++
		r.countError(metrics.ErrorPersist)
		logger.Error().Err(err).Msg("saving record")
	}
}

// Resolve finds p in Semantic Scholar. A record that already has an s2_id
// is not looked up. Identifier lookups that come back not found fall
// through to the next strategy; any other failure is returned.
func (r *Resolver) Resolve(ctx context.Context, p *paper.Paper) (Result, error) {
	if hasS2ID(p) {
		return Result{Strategy: StrategyCached}, nil
	}

	if id := paper.Deref(p.ArXiv); id != "" {
		hit, ok, err := r.lookup(ctx, s2.ArXivRef(reconcile.ArXivID(id)))
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{Strategy: StrategyArXiv, Hit: hit}, nil
		}
	}

	for _, pub := range p.Publications {
		key := paper.Deref(pub.DBLPKey)
		if key == "" {
			continue
		}
		hit, ok, err := r.lookup(ctx, s2.DBLPRef(key))
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{Strategy: StrategyDBLP, Hit: hit}, nil
		}
	}

	if !r.opts.NoSearch {
		start := r.now()
		hits, err := r.source.Search(ctx, p.Title)
		r.observe(start, err)
		if err != nil {
			return Result{}, err
		}
		if i, score := reconcile.SelectS2(p, hits, r.opts.Threshold); i >= 0 {
			return Result{Strategy: StrategyTitle, Hit: hits[i], Score: score}, nil
		}
	}

	return Result{Strategy: StrategyFailed}, nil
}

// lookup fetches one identifier, folding not-found into ok=false.
func (r *Resolver) lookup(ctx context.Context, id string) (reconcile.S2Hit, bool, error) {
	start := r.now()
	hit, err := r.source.Paper(ctx, id)
	if s2.IsNotFound(err) {
		r.observe(start, nil)
		return reconcile.S2Hit{}, false, nil
	}
	r.observe(start, err)
	if err != nil {
		return reconcile.S2Hit{}, false, err
	}
	return hit, hit.PaperID != "", nil
}

// record logs a report's events and writes them to the ledger.
func (r *Resolver) record(runID, file, title string, rep reconcile.Report, logger zerolog.Logger, stats *Stats) {
	for _, ev := range rep.Events {
		logger.Info().
			Str("source", rep.Source).
			Str("event", string(ev.Kind)).
			Str("detail", ev.Detail).
			Float64("score", rep.Score).
			Msg("updated")
	}
	for _, ev := range rep.Events {
		switch ev.Field() {
		case reconcile.FieldS2ID:
			stats.S2IDsFilled++
		case reconcile.FieldArXiv:
			stats.ArXivFilled++
		}
	}

	if r.ledger != nil && runID != "" {
		if err := r.ledger.RecordReport(runID, file, title, rep); err != nil {
			logger.Warn().Err(err).Msg("ledger write failed")
		}
	}
}

func (r *Resolver) beginRun() string {
	if r.ledger == nil {
		return ""
	}
	id, err := r.ledger.BeginRun(storage.CommandResolve, r.opts.PapersDir, r.opts.DryRun)
	if err != nil {
		r.log.Warn().Err(err).Msg("ledger unavailable")
		return ""
	}
	return id
}

func (r *Resolver) finishRun(runID string, stats *Stats, start time.Time) {
	if r.ledger != nil && runID != "" {
		if err := r.ledger.FinishRun(runID, stats.counts()); err != nil {
			r.log.Warn().Err(err).Msg("ledger write failed")
		}
	}
	if r.metrics != nil {
		r.metrics.RunFinished(start, r.now())
	}

	r.log.Info().
		Int("processed", stats.Processed).
		Int("s2_ids_filled", stats.S2IDsFilled).
		Int("arxiv_filled", stats.ArXivFilled).
		Int("errors", stats.Errors).
		Bool("interrupted", stats.Interrupted).
		Msg("resolve finished")
}

func (r *Resolver) observe(start time.Time, err error) {
	if r.metrics != nil {
		r.metrics.ObserveRequest(reconcile.SourceS2, r.now().Sub(start), err)
	}
}

func (r *Resolver) countError(kind string) {
	if r.metrics != nil {
		r.metrics.Errors.WithLabelValues(kind).Inc()
	}
}

func (r *Resolver) countUpdate() {
	if r.metrics != nil {
		r.metrics.Updates.WithLabelValues(reconcile.SourceS2).Inc()
	}
}
