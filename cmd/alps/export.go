package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alps-lab/alps/internal/export"
	"github.com/alps-lab/alps/internal/storage"
)

var (
	exportBibtex   bool
	exportOut      string
	exportFilter   string
	exportGenerate bool
)

func init() {
	f := exportCmd.Flags()
	f.String("papers", "", "Papers directory (default from config: papers)")
	f.BoolVar(&exportBibtex, "bibtex", false, "Export to BibTeX format")
	f.StringVar(&exportOut, "out", "", "Append new entries to this .bib file instead of printing")
	f.StringVar(&exportFilter, "filter", "", "Only export record files matching this glob")
	f.BoolVar(&exportGenerate, "generate", false, "Build entries from record fields for papers without stored BibTeX")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored BibTeX as one collection",
	Long: `Export the BibTeX stored in paper records as one collection,
keeping the first entry for each citation key.

With --out, entries whose keys the file already holds are skipped and the
rest are appended, so repeated exports only add new papers.

Examples:
  alps export --bibtex > refs.bib
  alps export --bibtex --generate --out refs.bib`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// ExportResponse is the response for export --out.
type ExportResponse struct {
	Path       string             `json:"path"`
	Added      []export.Entry     `json:"added"`
	Duplicates []export.Duplicate `json:"duplicates"`
	Missing    []string           `json:"missing"`
	Skipped    int                `json:"skipped"` // records that failed to load
}

func runExport(cmd *cobra.Command, args []string) error {
	if !exportBibtex {
		exitWithError(ExitError, "--bibtex flag is required")
	}

	paths, err := storage.ListRecords(cfg.PapersDir, exportFilter)
	if err != nil {
		exitWithError(ExitConfigError, "reading papers directory: %v", err)
	}

	var records []export.Record
	skipped := 0
	for _, path := range paths {
		p, err := storage.LoadRecord(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("skipping record")
			skipped++
			continue
		}
		records = append(records, export.Record{File: path, Paper: p})
	}

	opts := export.CollectOptions{Generate: exportGenerate}
	if exportOut != "" {
		idx, err := export.ParseBibTeXFile(exportOut)
		if err != nil {
			exitWithError(ExitError, "reading %s: %v", exportOut, err)
		}
		opts.Existing = idx
	}

	c := export.Collect(records, opts)
	for _, d := range c.Duplicates {
		logger.Debug().Str("key", d.Key).Str("file", d.File).Msg("duplicate citation key")
	}

	// Without --out, BibTeX is always text output, never JSON
	if exportOut == "" {
		fmt.Fprint(stdout, c.String())
		return nil
	}

	if len(c.Entries) > 0 {
		if err := export.AppendToBibFile(exportOut, c.String()); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportOut, err)
		}
	}

	resp := ExportResponse{
		Path:       exportOut,
		Added:      c.Entries,
		Duplicates: c.Duplicates,
		Missing:    c.Missing,
		Skipped:    skipped,
	}
	if humanOutput {
		outputHuman("Added %d entries to %s (%d duplicates, %d without BibTeX, %d unreadable)\n",
			len(resp.Added), resp.Path, len(resp.Duplicates), len(resp.Missing), resp.Skipped)
		return nil
	}
	return outputJSON(resp)
}

