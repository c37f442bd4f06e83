// Package logging builds the zerolog logger used by the CLI.
package logging

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// Config contains logging configuration.
type Config struct {
	Level   string `yaml:"level" mapstructure:"level"`
	Format  string `yaml:"format" mapstructure:"format"` // console or json
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`
}

var (
	validLevels  = []string{"trace", "debug", "info", "warn", "error", "disabled"}
	validFormats = []string{"console", "json"}
)

// ApplyDefaults fills unset fields. The CLI logs warnings and above unless asked.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "warn"
	}
	if c.Format == "" {
		c.Format = "console"
	}
}

// Validate checks level and format names.
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("log.level must be one of %v (got: %s)", validLevels, c.Level)
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Format)) {
		return fmt.Errorf("log.format must be one of %v (got: %s)", validFormats, c.Format)
	}
	return nil
}

// New returns a logger writing to out. Invalid levels fall back to warn.
func New(cfg Config, out io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.WarnLevel
	}

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == "json" {
		zl = zerolog.New(out)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:         out,
			TimeFormat:  "15:04:05",
			NoColor:     cfg.NoColor,
			FormatLevel: levelTag(cfg.NoColor),
		})
	}
	return zl.Level(level).With().Timestamp().Logger()
}

func levelTag(noColor bool) zerolog.Formatter {
	return func(i any) string {
		lvl := strings.ToUpper(fmt.Sprintf("%s", i))
		tag, color := "["+lvl+"]", ""
		switch lvl {
		case "TRACE":
			tag, color = "[TRC]", "\033[90m"
		case "DEBUG":
			tag, color = "[DBG]", "\033[36m"
		case "INFO":
			tag, color = "[INF]", "\033[32m"
		case "WARN":
			tag, color = "[WRN]", "\033[33m"
		case "ERROR":
			tag, color = "[ERR]", "\033[31m"
		}
		if noColor || color == "" {
			return tag
		}
		return color + tag + "\033[0m"
	}
}
