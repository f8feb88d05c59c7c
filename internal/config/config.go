// Package config loads alps configuration from defaults, an optional
// alps.yml file, ALPS_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// ConfigName is the config file base name searched for.
	ConfigName = "alps"
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "alps"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ALPS"
	// StateDir holds the ledger by default.
	StateDir = ".alps"
	// LedgerFile is the default ledger file name inside StateDir.
	LedgerFile = "ledger.db"
)

// Config is the effective alps configuration.
type Config struct {
	PapersDir    string            `mapstructure:"papers_dir" yaml:"papers_dir"`
	LedgerPath   string            `mapstructure:"ledger_path" yaml:"ledger_path"`     // Empty disables the ledger
	MetricsFile  string            `mapstructure:"metrics_file" yaml:"metrics_file"`   // Empty disables metrics output
	Pause        time.Duration     `mapstructure:"pause" yaml:"pause"`                 // Between records
	Log          LogConfig         `mapstructure:"log" yaml:"log"`
	ArXiv        SourceConfig      `mapstructure:"arxiv" yaml:"arxiv"`
	DBLP         SourceConfig      `mapstructure:"dblp" yaml:"dblp"`
	S2           SourceConfig      `mapstructure:"s2" yaml:"s2"`                       // Semantic Scholar, used by resolve
	VenueAliases map[string]string `mapstructure:"venue_aliases" yaml:"venue_aliases"` // Long name → short name

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"` // Rotating log file; empty logs to stderr only
}

// SourceConfig configures one remote bibliographic source.
type SourceConfig struct {
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	Threshold    float64       `mapstructure:"threshold" yaml:"threshold"`
	MaxResults   int           `mapstructure:"max_results" yaml:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateInterval time.Duration `mapstructure:"rate_interval" yaml:"rate_interval"`
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("papers_dir", "papers")
	v.SetDefault("ledger_path", filepath.Join(StateDir, LedgerFile))
	v.SetDefault("metrics_file", "")
	v.SetDefault("pause", "1500ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("arxiv.threshold", 0.7)
	v.SetDefault("arxiv.max_results", 50)
	v.SetDefault("arxiv.timeout", "30s")
	v.SetDefault("arxiv.rate_interval", "3s")

	v.SetDefault("dblp.base_url", "https://dblp.org")
	v.SetDefault("dblp.threshold", 0.6)
	v.SetDefault("dblp.max_results", 30)
	v.SetDefault("dblp.timeout", "30s")
	v.SetDefault("dblp.rate_interval", "1s")

	// The API key comes from S2_API_KEY; with one, rate_interval can drop
	// to 100ms.
	v.SetDefault("s2.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("s2.threshold", 0.8)
	v.SetDefault("s2.max_results", 3)
	v.SetDefault("s2.timeout", "30s")
	v.SetDefault("s2.rate_interval", "1s")

	v.SetDefault("venue_aliases", map[string]string{})
}

// NewViper returns a viper instance with defaults, environment overrides and
// the config file applied. An explicit configFile must exist; otherwise
// alps.yml is looked up in the working directory and the user config
// directory, and its absence is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(ExpandPath(configFile))
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := UserConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	cfg.PapersDir = ExpandPath(cfg.PapersDir)
	cfg.LedgerPath = ExpandPath(cfg.LedgerPath)
	cfg.MetricsFile = ExpandPath(cfg.MetricsFile)
	cfg.Log.File = ExpandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is NewViper followed by FromViper, for callers without flags.
func Load(configFile string) (*Config, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PapersDir) == "" {
		return fmt.Errorf("%w: papers_dir is required", ErrInvalidConfig)
	}
	if c.Pause < 0 {
		return fmt.Errorf("%w: pause must not be negative: %s", ErrInvalidConfig, c.Pause)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("%w: invalid log level: %s", ErrInvalidConfig, c.Log.Level)
	}
	if err := c.ArXiv.validate("arxiv"); err != nil {
		return err
	}
	if err := c.DBLP.validate("dblp"); err != nil {
		return err
	}
	return c.S2.validate("s2")
}

func (s SourceConfig) validate(name string) error {
	if s.BaseURL == "" {
		return fmt.Errorf("%w: %s.base_url is required", ErrInvalidConfig, name)
	}
	if s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("%w: %s.threshold must be in [0, 1]: %v", ErrInvalidConfig, name, s.Threshold)
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("%w: %s.max_results must be positive: %d", ErrInvalidConfig, name, s.MaxResults)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%w: %s.timeout must be positive: %s", ErrInvalidConfig, name, s.Timeout)
	}
	if s.RateInterval < 0 {
		return fmt.Errorf("%w: %s.rate_interval must not be negative: %s", ErrInvalidConfig, name, s.RateInterval)
	}
	return nil
}

// UserConfigDir returns the alps directory under XDG_CONFIG_HOME, falling
// back to ~/.config/alps.
func UserConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
