package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Find walks up from startDir to locate bibcheck.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadFile decodes path over the defaults. Unknown keys are an error, so
// typos do not silently fall back to defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: %w: unknown key %s", path, errInvalid, undecoded[0])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	cfg.Path = abs
	return cfg, nil
}

// LoadOptions select the sources Load merges.
type LoadOptions struct {
	// Path is an explicit config file (--config); Find is used when empty.
	Path string
	// StartDir is where Find starts and where .env is looked up.
	StartDir string
	// SkipEnv ignores .env and BIBCHECK_* variables.
	SkipEnv bool
}

// Load merges defaults < bibcheck.toml < environment. Command-line flags are
// applied by the caller on top of the result.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()
	path := opts.Path
	if path == "" {
		found, ok, err := Find(opts.StartDir)
		if err != nil {
			return Config{}, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if !opts.SkipEnv {
		if err := loadDotEnv(opts.StartDir); err != nil {
			return Config{}, err
		}
		if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read %s_* environment: %w", EnvPrefix, err)
		}
	}

	base := opts.StartDir
	if cfg.Path != "" {
		base = filepath.Dir(cfg.Path)
	}
	if err := cfg.resolvePaths(base); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		if cfg.Path != "" {
			return Config{}, fmt.Errorf("%s: %w", cfg.Path, err)
		}
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv reads .env from dir. Variables already set win over the file.
func loadDotEnv(dir string) error {
	if dir == "" {
		dir = "."
	}
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to read .env: %w", err)
}

// resolvePaths makes configured paths absolute relative to base.
func (c *Config) resolvePaths(base string) error {
	if base == "" {
		base = "."
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", base, err)
	}
	abs := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) || p == ":memory:" {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, p := range c.Journals.Abbreviations {
		c.Journals.Abbreviations[i] = abs(p)
	}
	for i, p := range c.Journals.Predatory {
		c.Journals.Predatory[i] = abs(p)
	}
	c.Journals.Store = abs(c.Journals.Store)
	for i, p := range c.Files.Directories {
		c.Files.Directories[i] = abs(p)
	}
	c.Run.MetricsFile = abs(c.Run.MetricsFile)
	return nil
}
