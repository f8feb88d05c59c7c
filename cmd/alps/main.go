// Package main provides the alps CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/alps-lab/alps/internal/config"
	"github.com/alps-lab/alps/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configFile  string

	// Set by loadConfig before any command runs.
	cfg       *config.Config
	logger    = zerolog.Nop()
	closeLogs = func() error { return nil }
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"log-file":        "log.file",
	"papers":          "papers_dir",
	"ledger":          "ledger_path",
	"metrics-file":    "metrics_file",
	"pause":           "pause",
	"arxiv-threshold": "arxiv.threshold",
	"dblp-threshold":  "dblp.threshold",
	"s2-threshold":    "s2.threshold",
}

func main() {
	err := rootCmd.Execute()
	closeLogs()
	if err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "alps",
	Short: "Enrich YAML paper records from arXiv, DBLP and Semantic Scholar",
	Long: `alps keeps a directory of YAML paper records up to date.

Each record is matched by title against arXiv and DBLP. Matches fill in
authors, add or refresh the arXiv preprint, and add peer-reviewed
publications with their DBLP key and BibTeX. The resolve command fills
Semantic Scholar and arXiv IDs. Existing values are never overwritten.
All commands output JSON by default.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	flags.StringVar(&configFile, "config", "", "Config file (default: ./alps.yml, then $XDG_CONFIG_HOME/alps/alps.yml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Also write JSON logs to this rotating file")
	rootCmd.Version = Version
}

// loadConfig resolves the configuration for cmd and sets up logging.
// Flags given on the command line take precedence over ALPS_* variables,
// which take precedence over the config file.
func loadConfig(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	v, err := config.NewViper(configFile)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	cfg, err = config.FromViper(v)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	logger, closeLogs, err = logging.Setup(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		NoColor: os.Getenv("NO_COLOR") != "",
	})
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if cfg.File != "" {
		logger.Debug().Str("file", cfg.File).Msg("loaded config")
	}
	return nil
}

// bindFlags binds every flag of fs that overrides a config key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}
