package main

import (
	"context"
	"errors"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alps-lab/alps/internal/arxiv"
	"github.com/alps-lab/alps/internal/config"
	"github.com/alps-lab/alps/internal/dblp"
	"github.com/alps-lab/alps/internal/metrics"
	"github.com/alps-lab/alps/internal/reconcile"
	"github.com/alps-lab/alps/internal/storage"
	"github.com/alps-lab/alps/internal/updater"
)

var (
	updateFilter string
	updateDryRun bool
	updateLimit  int
)

func init() {
	f := updateCmd.Flags()
	f.String("papers", "", "Papers directory (default from config: papers)")
	f.StringVar(&updateFilter, "filter", "", "Only process record files matching this glob")
	f.BoolVar(&updateDryRun, "dry-run", false, "Reconcile and report without writing records")
	f.IntVar(&updateLimit, "limit", 0, "Process at most N records (0 = all)")
	f.Float64("arxiv-threshold", 0.7, "Minimum title score for an arXiv match")
	f.Float64("dblp-threshold", 0.6, "Minimum title score for a DBLP match")
	f.Duration("pause", 1500*time.Millisecond, "Pause between records")
	f.String("ledger", "", "Run ledger database (default from config: .alps/ledger.db)")
	f.String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Enrich every paper record from arXiv and DBLP",
	Long: `Enrich every paper record from arXiv and DBLP.

Records are processed one at a time, fewest publications first. Each record
is backed up to <file>.bak, matched against arXiv and then DBLP, and
rewritten only if something changed. Per-record failures are counted and
do not stop the run.

Examples:
  alps update
  alps update --papers ~/papers --filter 'attention*'
  alps update --dry-run --limit 5 --human`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

// UpdateResponse is the response for the update command.
type UpdateResponse struct {
	updater.Stats
	PapersDir string `json:"papers_dir"`
	DryRun    bool   `json:"dry_run"`
	Duration  string `json:"duration"`
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats, err := executeUpdate(ctx, cfg, updater.Options{
		Filter: updateFilter,
		DryRun: updateDryRun,
		Limit:  updateLimit,
	}, logger)
	if err != nil {
		if errors.Is(err, updater.ErrPapersDir) {
			exitWithError(ExitConfigError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	resp := UpdateResponse{
		Stats:     stats,
		PapersDir: cfg.PapersDir,
		DryRun:    updateDryRun,
		Duration:  formatDuration(time.Since(start)),
	}
	if humanOutput {
		printUpdateHuman(resp)
		return nil
	}
	return outputJSON(resp)
}

func printUpdateHuman(r UpdateResponse) {
	if r.DryRun {
		outputHuman("Dry run: no records were written.\n")
	}
	if r.Interrupted {
		outputHuman("Interrupted before all records were processed.\n")
	}
	outputHuman("Papers processed: %d (%d unchanged) in %s\n", r.Processed, r.Unchanged, r.Duration)
	outputHuman("arXiv updates:    %d\n", r.ArXivUpdates)
	outputHuman("DBLP updates:     %d\n", r.DBLPUpdates)
	outputHuman("New publications: %d\n", r.NewPublications)
	outputHuman("Errors:           %d (load %d, remote %d, persist %d)\n",
		r.Errors, r.LoadErrors, r.RemoteErrors, r.PersistErrors)
	if r.RunID != "" {
		outputHuman("Run:              %s\n", r.RunID)
	}
}

// executeUpdate wires the sources, ledger and metrics described by c into
// an updater and runs it. opts supplies the per-invocation settings; the
// rest comes from c.
func executeUpdate(ctx context.Context, c *config.Config, opts updater.Options, log zerolog.Logger) (updater.Stats, error) {
	opts.PapersDir = c.PapersDir
	opts.ArXivThreshold = c.ArXiv.Threshold
	opts.DBLPThreshold = c.DBLP.Threshold
	opts.Pause = c.Pause
	opts.VenueFilter = reconcile.DefaultVenueFilter
	opts.Aliases = venueAliases(c.VenueAliases)

	arxivClient := arxiv.NewClient(
		arxiv.WithBaseURL(c.ArXiv.BaseURL),
		arxiv.WithTimeout(c.ArXiv.Timeout),
		arxiv.WithMaxResults(c.ArXiv.MaxResults),
		arxiv.WithRateInterval(c.ArXiv.RateInterval),
	)
	dblpClient := dblp.NewClient(
		dblp.WithBaseURL(c.DBLP.BaseURL),
		dblp.WithTimeout(c.DBLP.Timeout),
		dblp.WithMaxResults(c.DBLP.MaxResults),
		dblp.WithRateInterval(c.DBLP.RateInterval),
	)

	m := metrics.New()
	options := []updater.Option{updater.WithLogger(log), updater.WithMetrics(m)}

	if c.LedgerPath != "" {
		ledger, err := openLedger(c.LedgerPath)
		if err != nil {
			log.Warn().Err(err).Str("file", c.LedgerPath).Msg("run ledger unavailable; continuing without it")
		} else {
			defer ledger.Close()
			options = append(options, updater.WithLedger(ledger))
		}
	}

	stats, err := updater.New(opts, arxivClient, dblpClient, options...).Run(ctx)
	if err != nil {
		return stats, err
	}

	if c.MetricsFile != "" {
		if err := m.WriteTextfile(c.MetricsFile); err != nil {
			log.Warn().Err(err).Str("file", c.MetricsFile).Msg("metrics not written")
		}
	}
	return stats, nil
}

// venueAliases merges the configured aliases over the built-in table.
func venueAliases(configured map[string]string) reconcile.VenueAliases {
	aliases := reconcile.NewVenueAliases(reconcile.DefaultVenueAliases)
	maps.Copy(aliases, reconcile.NewVenueAliases(configured))
	return aliases
}

// openLedger opens the ledger at path, creating its directory.
func openLedger(path string) (*storage.Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return storage.OpenLedger(path)
}
