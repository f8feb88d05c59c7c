package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alps-lab/alps/internal/export"
	"github.com/alps-lab/alps/internal/storage"
)

var (
	historyRuns   int
	historyRunID  string
	historyXLSX   string
	historyEvents bool
)

func init() {
	f := historyCmd.Flags()
	f.String("ledger", "", "Run ledger database (default from config: .alps/ledger.db)")
	f.IntVar(&historyRuns, "runs", DefaultHistoryRuns, "Number of most recent runs to show (0 = all)")
	f.StringVar(&historyRunID, "run", "", "Show only this run")
	f.BoolVar(&historyEvents, "events", false, "Include each run's change events")
	f.StringVar(&historyXLSX, "xlsx", "", "Also write runs and events to this .xlsx workbook")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past update and resolve runs from the ledger",
	Long: `Show past update and resolve runs from the ledger, most recent first.

Examples:
  alps history --human
  alps history --run 6f1c... --events
  alps history --runs 0 --xlsx history.xlsx`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

// HistoryRun is one run in the history response.
type HistoryRun struct {
	storage.RunRow
	Events []storage.EventRow `json:"events,omitempty"`
}

// HistoryResponse is the response for the history command.
type HistoryResponse struct {
	Runs []HistoryRun `json:"runs"`
	XLSX string       `json:"xlsx,omitempty"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.LedgerPath == "" {
		exitWithError(ExitConfigError, "no ledger configured (ledger_path is empty)")
	}
	if _, err := os.Stat(cfg.LedgerPath); err != nil {
		exitWithError(ExitConfigError, "ledger %s not found; run 'alps update' first", cfg.LedgerPath)
	}
	ledger, err := storage.OpenLedger(cfg.LedgerPath)
	if err != nil {
		exitWithError(ExitError, "opening ledger: %v", err)
	}
	defer ledger.Close()

	limit := historyRuns
	if historyRunID != "" {
		limit = 0
	}
	runs, err := ledger.ListRuns(limit)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	resp := HistoryResponse{Runs: []HistoryRun{}}
	var allEvents []storage.EventRow
	for _, r := range runs {
		if historyRunID != "" && r.ID != historyRunID {
			continue
		}
		hr := HistoryRun{RunRow: r}
		if historyEvents || historyXLSX != "" {
			events, err := ledger.EventsForRun(r.ID)
			if err != nil {
				exitWithError(ExitError, "%v", err)
			}
			allEvents = append(allEvents, events...)
			if historyEvents {
				hr.Events = events
			}
		}
		resp.Runs = append(resp.Runs, hr)
	}
	if historyRunID != "" && len(resp.Runs) == 0 {
		exitWithError(ExitError, "%v: %s", storage.ErrRunNotFound, historyRunID)
	}

	if historyXLSX != "" {
		if err := writeHistoryXLSX(historyXLSX, resp.Runs, allEvents); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		resp.XLSX = historyXLSX
	}

	if humanOutput {
		printHistoryHuman(resp)
		return nil
	}
	return outputJSON(resp)
}

func writeHistoryXLSX(path string, runs []HistoryRun, events []storage.EventRow) error {
	rows := make([]storage.RunRow, len(runs))
	for i, r := range runs {
		rows[i] = r.RunRow
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteHistory(f, rows, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printHistoryHuman(resp HistoryResponse) {
	if len(resp.Runs) == 0 {
		outputHuman("No runs recorded.\n")
	}
	for _, r := range resp.Runs {
		status := "unfinished"
		if r.FinishedAt != nil {
			status = formatDuration(r.FinishedAt.Sub(r.StartedAt))
		}
		dry := ""
		if r.DryRun {
			dry = " (dry run)"
		}
		outputHuman("%s  %-7s %s  %s%s\n", r.StartedAt.Local().Format(time.DateTime), r.Command, r.ID, status, dry)
		if r.Command == storage.CommandResolve {
			outputHuman("    processed %d, identifiers %d, errors %d\n",
				r.Counts.Processed, r.Counts.S2Updates, r.Counts.Errors)
		} else {
			outputHuman("    processed %d, arXiv %d, DBLP %d, new %d, errors %d\n",
				r.Counts.Processed, r.Counts.ArXivUpdates, r.Counts.DBLPUpdates,
				r.Counts.NewPublications, r.Counts.Errors)
		}
		for _, e := range r.Events {
			venue := ""
			if e.Venue != "" {
				venue = " " + e.Venue
			}
			outputHuman("    %-6s %-16s%s  %s\n", e.Source, e.Kind, venue, truncateString(e.Title, HistoryTitleMaxLen))
		}
	}
	if resp.XLSX != "" {
		outputHuman("Wrote %s\n", resp.XLSX)
	}
}
