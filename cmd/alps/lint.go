package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alps-lab/alps/internal/lint"
)

var (
	lintFilter string
	lintStrict bool
)

func init() {
	lintCmd.Flags().String("papers", "", "Papers directory (default from config: papers)")
	lintCmd.Flags().StringVar(&lintFilter, "filter", "", "Only check record files matching this glob")
	lintCmd.Flags().BoolVar(&lintStrict, "strict", false, "Treat warnings as errors")
	rootCmd.AddCommand(lintCmd)
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate paper records",
	Long: `Validate paper records: known fields, field types, field order,
one publication per venue, and labels used by only one record.

Exits with status 3 when any record has errors.`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	res, err := lint.Dir(cfg.PapersDir, lintFilter)
	if err != nil {
		exitWithError(ExitConfigError, "reading papers directory: %v", err)
	}

	if humanOutput {
		for _, issue := range res.Issues {
			outputHuman("%s\n", issue)
		}
		outputHuman("%d files checked: %d errors, %d warnings\n", res.Files, res.Errors, res.Warnings)
	} else if err := outputJSON(res); err != nil {
		return err
	}

	if res.Errors > 0 || (lintStrict && res.Warnings > 0) {
		closeLogs()
		os.Exit(ExitDataError)
	}
	return nil
}
