// Package config loads CLI defaults from loomcast.yaml, a .env file and
// LOOMCAST_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/joshharrison/loomcast/internal/logging"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "LOOMCAST"

// Config holds defaults for simulation runs and output.
type Config struct {
	Iterations   int            `mapstructure:"iterations"`
	Workers      int            `mapstructure:"workers"`
	Seed         uint64         `mapstructure:"seed"` // 0 draws a fresh seed per run
	MaxLookahead int            `mapstructure:"max_lookahead"`
	MaxHorizon   int            `mapstructure:"max_horizon"`
	CalendarDir  string         `mapstructure:"calendar_dir"`
	Log          logging.Config `mapstructure:"log"`
	Report       ReportConfig   `mapstructure:"report"`
	Export       ExportConfig   `mapstructure:"export"`
}

// ReportConfig selects how reports are rendered.
type ReportConfig struct {
	Format   string `mapstructure:"format"`   // text, json or yaml
	Template string `mapstructure:"template"` // text/template file overriding the built-in layout
}

// ExportConfig holds gjson paths into JSON issue exports.
type ExportConfig struct {
	Issues   string `mapstructure:"issues"`
	Resolved string `mapstructure:"resolved"`
}

// Options overrides where the loader looks for files.
type Options struct {
	ConfigFile string // explicit config path; empty searches the working directory
	EnvFile    string // explicit .env path; empty tries ./.env
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("iterations", 10000)
	v.SetDefault("workers", 1)
	v.SetDefault("seed", 0)
	v.SetDefault("max_lookahead", 3650)
	v.SetDefault("max_horizon", 3650)
	v.SetDefault("calendar_dir", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.no_color", false)
	v.SetDefault("report.format", "text")
	v.SetDefault("report.template", "")
	v.SetDefault("export.issues", "issues")
	v.SetDefault("export.resolved", "fields.resolutiondate")
}

// Load resolves configuration. A missing config or .env file is not an error
// unless it was named explicitly.
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	// 1. YAML config
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("loomcast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/loomcast")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// 2. Environment, e.g. LOOMCAST_LOG_LEVEL for log.level
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return fmt.Errorf("env file: %w", err)
		}
		return nil
	}
	// godotenv.Load never overrides variables already set in the environment.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks value ranges the engine would otherwise reject later.
func (c *Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive (got: %d)", c.Iterations)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative (got: %d)", c.Workers)
	}
	switch c.Report.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("report.format must be one of [text json yaml] (got: %s)", c.Report.Format)
	}
	return c.Log.Validate()
}
