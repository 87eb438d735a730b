// Package config loads bibcheck.toml and the BIBCHECK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"bibcheck/internal/entry"
	"bibcheck/internal/logging"
)

// FileName is the name of the project configuration file.
const FileName = "bibcheck.toml"

// EnvPrefix prefixes every environment override, e.g. BIBCHECK_CHECK_MODE.
const EnvPrefix = "BIBCHECK"

// Output formats accepted by [run].format.
const (
	FormatPretty = "pretty"
	FormatShort  = "short"
	FormatJSON   = "json"
	FormatSarif  = "sarif"
)

// Config is the merged configuration. Paths are absolute after Load.
type Config struct {
	Check    CheckConfig    `toml:"check" envconfig:"CHECK"`
	Keys     KeysConfig     `toml:"keys" envconfig:"KEYS"`
	Journals JournalsConfig `toml:"journals" envconfig:"JOURNALS"`
	Files    FilesConfig    `toml:"files" envconfig:"FILES"`
	Log      LogConfig      `toml:"log" envconfig:"LOG"`
	Run      RunConfig      `toml:"run" envconfig:"RUN"`

	// Path is the file the config was read from, empty for defaults only.
	Path string `toml:"-" ignored:"true"`
}

// CheckConfig is the [check] section.
type CheckConfig struct {
	// Mode applies to files without a jabref-meta databaseType comment.
	Mode                string   `toml:"mode" envconfig:"MODE"`
	ASCIIOnly           bool     `toml:"ascii_only" envconfig:"ASCII_ONLY"`
	AllowIntegerEdition bool     `toml:"allow_integer_edition" envconfig:"ALLOW_INTEGER_EDITION"`
	VenueFields         []string `toml:"venue_fields" envconfig:"VENUE_FIELDS"`
	MaxDiagnostics      int      `toml:"max_diagnostics" envconfig:"MAX_DIAGNOSTICS"`
}

// KeysConfig is the [keys] section.
type KeysConfig struct {
	Pattern            string `toml:"pattern" envconfig:"PATTERN"`
	EnforceLegal       bool   `toml:"enforce_legal" envconfig:"ENFORCE_LEGAL"`
	UnwantedCharacters string `toml:"unwanted_characters" envconfig:"UNWANTED_CHARACTERS"`
	// CheckGenerated reports keys that differ from the generated key.
	CheckGenerated bool `toml:"check_generated" envconfig:"CHECK_GENERATED"`
}

// JournalsConfig is the [journals] section.
type JournalsConfig struct {
	// Abbreviations are CSV files: name, abbreviation, optional shortest unique form.
	Abbreviations []string `toml:"abbreviations" envconfig:"ABBREVIATIONS"`
	// Predatory are name lists, one venue per line.
	Predatory []string `toml:"predatory" envconfig:"PREDATORY"`
	// Store is a SQLite file filled by "bibcheck journals import".
	Store string `toml:"store" envconfig:"STORE"`
}

// FilesConfig is the [files] section.
type FilesConfig struct {
	Directories []string `toml:"directories" envconfig:"DIRECTORIES"`
	CheckLinks  bool     `toml:"check_links" envconfig:"CHECK_LINKS"`
}

// LogConfig is the [log] section.
type LogConfig struct {
	Level  string `toml:"level" envconfig:"LEVEL"`
	Format string `toml:"format" envconfig:"FORMAT"`
}

// RunConfig is the [run] section.
type RunConfig struct {
	Jobs        int    `toml:"jobs" envconfig:"JOBS"`
	Format      string `toml:"format" envconfig:"FORMAT"`
	PathMode    string `toml:"path_mode" envconfig:"PATH_MODE"`
	Color       string `toml:"color" envconfig:"COLOR"`
	UI          string `toml:"ui" envconfig:"UI"`
	DiskCache   bool   `toml:"disk_cache" envconfig:"DISK_CACHE"`
	Timings     bool   `toml:"timings" envconfig:"TIMINGS"`
	MetricsFile string `toml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		Check: CheckConfig{
			Mode:        "bibtex",
			VenueFields: []string{"journal", "journaltitle", "booktitle", "publisher"},
		},
		Keys: KeysConfig{
			Pattern:        "[auth][year]",
			EnforceLegal:   true,
			CheckGenerated: true,
		},
		Files: FilesConfig{CheckLinks: true},
		Log:   LogConfig{Level: "warn", Format: logging.FormatConsole},
		Run: RunConfig{
			Format:   FormatPretty,
			PathMode: "auto",
			Color:    "auto",
			UI:       "auto",
		},
	}
}

var errInvalid = errors.New("invalid configuration")

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if _, err := entry.ParseMode(c.Check.Mode); err != nil {
		return fmt.Errorf("%w: [check].mode: %w", errInvalid, err)
	}
	if c.Check.MaxDiagnostics < 0 {
		return fmt.Errorf("%w: [check].max_diagnostics must be >= 0", errInvalid)
	}
	for _, name := range c.Check.VenueFields {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: [check].venue_fields contains an empty name", errInvalid)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: [log].level: %w", errInvalid, err)
	}
	if err := oneOf("[log].format", c.Log.Format, logging.FormatConsole, logging.FormatJSON); err != nil {
		return err
	}
	if c.Run.Jobs < 0 {
		return fmt.Errorf("%w: [run].jobs must be >= 0", errInvalid)
	}
	if err := oneOf("[run].format", c.Run.Format, FormatPretty, FormatShort, FormatJSON, FormatSarif); err != nil {
		return err
	}
	if err := oneOf("[run].path_mode", c.Run.PathMode, "auto", "absolute", "relative", "basename"); err != nil {
		return err
	}
	if err := oneOf("[run].color", c.Run.Color, "auto", "on", "off"); err != nil {
		return err
	}
	return oneOf("[run].ui", c.Run.UI, "auto", "on", "off")
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of %s, got %q", errInvalid, name, strings.Join(allowed, "|"), value)
}

// Mode returns the parsed [check].mode. Call after Validate.
func (c *Config) Mode() entry.Mode {
	mode, err := entry.ParseMode(c.Check.Mode)
	if err != nil {
		return entry.ModeBibTeX
	}
	return mode
}
