package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration after defaults, the config file,
ALPS_* environment variables and flags are applied.

With --human the configuration is printed as YAML, ready to save as alps.yml.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	File   string         `json:"file,omitempty"`
	Config map[string]any `json:"config"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	// YAML renders durations as "1.5s"; the JSON form reuses it
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if humanOutput {
		if cfg.File != "" {
			outputHuman("# %s\n", cfg.File)
		}
		outputHuman("%s", out)
		return nil
	}

	var m map[string]any
	if err := yaml.Unmarshal(out, &m); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return outputJSON(ConfigResponse{File: cfg.File, Config: m})
}
