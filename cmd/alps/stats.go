package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alps-lab/alps/internal/paper"
	"github.com/alps-lab/alps/internal/stats"
	"github.com/alps-lab/alps/internal/storage"
)

var (
	statsFilter string
	statsTop    int
)

func init() {
	f := statsCmd.Flags()
	f.String("papers", "", "Papers directory (default from config: papers)")
	f.StringVar(&statsFilter, "filter", "", "Only count record files matching this glob")
	f.IntVar(&statsTop, "top", stats.DefaultTopVenues, "Number of venues to list (0 = all)")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	Long: `Show collection statistics: identifier and abstract coverage, label
counts, the most frequent venues, and non-arXiv publications per year.

Records that fail to load are skipped and counted.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

// StatsResponse is the response for the stats command.
type StatsResponse struct {
	stats.Summary
	PapersDir  string `json:"papers_dir"`
	LoadErrors int    `json:"load_errors"`
}

func runStats(cmd *cobra.Command, args []string) error {
	paths, err := storage.ListRecords(cfg.PapersDir, statsFilter)
	if err != nil {
		exitWithError(ExitConfigError, "reading papers directory: %v", err)
	}

	papers := make([]*paper.Paper, 0, len(paths))
	loadErrors := 0
	for _, path := range paths {
		p, err := storage.LoadRecord(path)
		if err != nil {
			loadErrors++
			logger.Warn().Err(err).Str("file", filepath.Base(path)).Msg("skipping record")
			continue
		}
		papers = append(papers, p)
	}

	resp := StatsResponse{
		Summary:    stats.Summarize(papers, statsTop),
		PapersDir:  cfg.PapersDir,
		LoadErrors: loadErrors,
	}
	if humanOutput {
		printStatsHuman(resp)
		return nil
	}
	return outputJSON(resp)
}

func printStatsHuman(r StatsResponse) {
	outputHuman("Total papers:  %d\n", r.Total)
	outputHuman("With s2_id:    %d (%d%%)\n", r.WithS2ID.Count, r.WithS2ID.Percent)
	outputHuman("With arxiv:    %d (%d%%)\n", r.WithArXiv.Count, r.WithArXiv.Percent)
	outputHuman("With abstract: %d (%d%%)\n", r.WithAbstract.Count, r.WithAbstract.Percent)
	if r.LoadErrors > 0 {
		outputHuman("Unreadable:    %d\n", r.LoadErrors)
	}

	if len(r.Labels) > 0 {
		outputHuman("\nLabels\n")
		for _, c := range r.Labels {
			outputHuman("  %-40s %6d\n", truncateString(c.Name, 40), c.Count)
		}
	}
	if len(r.TopVenues) > 0 {
		outputHuman("\nTop venues\n")
		for _, c := range r.TopVenues {
			outputHuman("  %-40s %6d\n", truncateString(c.Name, 40), c.Count)
		}
	}
	if len(r.Years) > 0 {
		outputHuman("\nPublications by year (excluding arXiv)\n")
		for _, y := range r.Years {
			outputHuman("  %-6d %6d\n", y.Year, y.Count)
		}
	}
}
