package export

import (
	"fmt"
	"io"
	"time"

	excelize "github.com/xuri/excelize/v2"

	"github.com/alps-lab/alps/internal/storage"
)

// Sheet names in the history workbook.
const (
	RunsSheet   = "Runs"
	EventsSheet = "Events"
)

var (
	runsHeader = []any{"Run", "Command", "Started", "Finished", "Papers dir", "Dry run",
		"Processed", "arXiv updates", "DBLP updates", "New publications", "S2 updates", "Errors"}
	eventsHeader = []any{"Run", "Time", "File", "Title", "Source", "Kind", "Venue", "Detail", "Score"}
)

// WriteHistory writes runs and their events as a two-sheet workbook.
func WriteHistory(w io.Writer, runs []storage.RunRow, events []storage.EventRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RunsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(EventsSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	rows := [][]any{runsHeader}
	for _, r := range runs {
		finished := ""
		if r.FinishedAt != nil {
			finished = formatTime(*r.FinishedAt)
		}
		rows = append(rows, []any{r.ID, r.Command, formatTime(r.StartedAt), finished, r.PapersDir, r.DryRun,
			r.Counts.Processed, r.Counts.ArXivUpdates, r.Counts.DBLPUpdates,
			r.Counts.NewPublications, r.Counts.S2Updates, r.Counts.Errors})
	}
	if err := writeRows(f, RunsSheet, rows); err != nil {
		return err
	}

	rows = [][]any{eventsHeader}
	for _, e := range events {
		rows = append(rows, []any{e.RunID, formatTime(e.CreatedAt), e.File, e.Title,
			e.Source, e.Kind, e.Venue, e.Detail, e.Score})
	}
	if err := writeRows(f, EventsSheet, rows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
