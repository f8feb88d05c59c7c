package main

import (
	"context"
	"errors"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alps-lab/alps/internal/config"
	"github.com/alps-lab/alps/internal/metrics"
	"github.com/alps-lab/alps/internal/resolver"
	"github.com/alps-lab/alps/internal/s2"
)

var (
	resolveFilter   string
	resolveDryRun   bool
	resolveLimit    int
	resolveNoSearch bool
)

func init() {
	f := resolveCmd.Flags()
	f.String("papers", "", "Papers directory (default from config: papers)")
	f.StringVar(&resolveFilter, "filter", "", "Only process record files matching this glob")
	f.BoolVar(&resolveDryRun, "dry-run", false, "Resolve and report without writing records")
	f.IntVar(&resolveLimit, "limit", 0, "Look up at most N records without an s2_id (0 = all)")
	f.BoolVar(&resolveNoSearch, "no-search", false, "Only use identifier lookups, never title search")
	f.Float64("s2-threshold", 0.8, "Minimum title score for a Semantic Scholar title-search match")
	f.String("ledger", "", "Run ledger database (default from config: .alps/ledger.db)")
	f.String("metrics-file", "", "Write Prometheus metrics after the run (to <name>.resolve<ext>)")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Fill missing Semantic Scholar and arXiv IDs",
	Long: `Fill the s2_id and arxiv fields of records that lack them.

A record's arxiv field is first taken from its arXiv publication URL. Records
without an s2_id are then looked up in Semantic Scholar by arXiv ID, then by
each DBLP key, then by title search; the first paper found supplies the
s2_id and, if still empty, the arxiv field. Existing values, including the
"none" marker, are never changed.

Set S2_API_KEY to use an API key.

Examples:
  alps resolve --dry-run --human
  alps resolve --no-search
  alps resolve --filter 'attention*' --limit 10`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

// ResolveResponse is the response for the resolve command.
type ResolveResponse struct {
	resolver.Stats
	PapersDir string `json:"papers_dir"`
	DryRun    bool   `json:"dry_run"`
	Duration  string `json:"duration"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats, err := executeResolve(ctx, cfg, resolver.Options{
		Filter:   resolveFilter,
		DryRun:   resolveDryRun,
		Limit:    resolveLimit,
		NoSearch: resolveNoSearch,
	}, logger)
	if err != nil {
		if errors.Is(err, resolver.ErrPapersDir) {
			exitWithError(ExitConfigError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	resp := ResolveResponse{
		Stats:     stats,
		PapersDir: cfg.PapersDir,
		DryRun:    resolveDryRun,
		Duration:  formatDuration(time.Since(start)),
	}
	if humanOutput {
		printResolveHuman(resp)
		return nil
	}
	return outputJSON(resp)
}

func printResolveHuman(r ResolveResponse) {
	if r.DryRun {
		outputHuman("Dry run: no records were written.\n")
	}
	if r.Interrupted {
		outputHuman("Interrupted before all records were processed.\n")
	}
	outputHuman("Papers processed: %d in %s\n", r.Processed, r.Duration)
	for _, name := range slices.Sorted(maps.Keys(r.Strategies)) {
		outputHuman("  %-14s %d\n", name+":", r.Strategies[name])
	}
	outputHuman("s2_id filled:     %d\n", r.S2IDsFilled)
	outputHuman("arxiv filled:     %d\n", r.ArXivFilled)
	outputHuman("Records updated:  %d\n", r.Updated)
	outputHuman("Errors:           %d (load %d, remote %d, persist %d)\n",
		r.Errors, r.LoadErrors, r.RemoteErrors, r.PersistErrors)
	if r.RunID != "" {
		outputHuman("Run:              %s\n", r.RunID)
	}
}

// executeResolve wires the Semantic Scholar client, ledger and metrics
// described by c into a resolver and runs it.
func executeResolve(ctx context.Context, c *config.Config, opts resolver.Options, log zerolog.Logger) (resolver.Stats, error) {
	opts.PapersDir = c.PapersDir
	opts.Threshold = c.S2.Threshold

	client := s2.NewClient(
		s2.WithBaseURL(c.S2.BaseURL),
		s2.WithTimeout(c.S2.Timeout),
		s2.WithMaxResults(c.S2.MaxResults),
		s2.WithRateInterval(c.S2.RateInterval),
	)

	m := metrics.New()
	options := []resolver.Option{resolver.WithLogger(log), resolver.WithMetrics(m)}

	if c.LedgerPath != "" {
		ledger, err := openLedger(c.LedgerPath)
		if err != nil {
			log.Warn().Err(err).Str("file", c.LedgerPath).Msg("run ledger unavailable; continuing without it")
		} else {
			defer ledger.Close()
			options = append(options, resolver.WithLedger(ledger))
		}
	}

	stats, err := resolver.New(opts, client, options...).Run(ctx)
	if err != nil {
		return stats, err
	}

	if c.MetricsFile != "" {
		path := resolveMetricsFile(c.MetricsFile)
		if err := m.WriteTextfile(path); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("metrics not written")
		}
	}
	return stats, nil
}

// resolveMetricsFile derives the resolve run's metrics file from the
// configured one, so the two commands do not overwrite each other:
// alps.prom becomes alps.resolve.prom.
func resolveMetricsFile(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".resolve" + ext
}
