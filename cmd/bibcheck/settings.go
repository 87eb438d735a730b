package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bibcheck/internal/config"
	"bibcheck/internal/driver"
	"bibcheck/internal/logging"
	"bibcheck/internal/observ"
	"bibcheck/internal/version"
)

// settings is the merged configuration of one invocation: defaults <
// bibcheck.toml < environment < flags.
type settings struct {
	cfg     config.Config
	log     *zap.Logger
	color   bool
	quiet   bool
	metrics *observ.Metrics
	// args are recorded in SARIF invocations.
	args []string
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.LoadOptions{Path: configPath, StartDir: wd})
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	s := &settings{
		cfg:   cfg,
		log:   logger,
		color: cfg.Run.Color == "on" || (cfg.Run.Color == "auto" && isTerminal(os.Stdout)),
		quiet: quiet,
		args:  os.Args[1:],
	}
	if cfg.Run.MetricsFile != "" {
		s.metrics = observ.NewMetrics()
	}
	if cfg.Path != "" {
		logger.Debug("loaded config", zap.String("path", cfg.Path))
	}
	return s, nil
}

// applyFlags copies every flag the user set explicitly over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	strs := map[string]*string{
		"color":        &cfg.Run.Color,
		"log-level":    &cfg.Log.Level,
		"log-format":   &cfg.Log.Format,
		"mode":         &cfg.Check.Mode,
		"ui":           &cfg.Run.UI,
		"metrics-file": &cfg.Run.MetricsFile,
		"format":       &cfg.Run.Format,
		"path-mode":    &cfg.Run.PathMode,
	}
	for name, dst := range strs {
		if !flagChanged(cmd, name) {
			continue
		}
		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = strings.TrimSpace(v)
	}
	ints := map[string]*int{
		"jobs":            &cfg.Run.Jobs,
		"max-diagnostics": &cfg.Check.MaxDiagnostics,
	}
	for name, dst := range ints {
		if !flagChanged(cmd, name) {
			continue
		}
		v, err := cmd.Flags().GetInt(name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	bools := map[string]*bool{
		"timings":    &cfg.Run.Timings,
		"disk-cache": &cfg.Run.DiskCache,
	}
	for name, dst := range bools {
		if !flagChanged(cmd, name) {
			continue
		}
		v, err := cmd.Flags().GetBool(name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	return nil
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// fileOptions builds the driver options. A cache that cannot be opened only
// costs speed, so it is logged and skipped.
func (s *settings) fileOptions(ctx context.Context) (driver.FileOptions, error) {
	suite, err := s.cfg.Suite(ctx)
	if err != nil {
		return driver.FileOptions{}, err
	}
	opts := driver.FileOptions{
		Options: driver.Options{
			Suite:          suite,
			Jobs:           s.cfg.Run.Jobs,
			MaxDiagnostics: s.cfg.Check.MaxDiagnostics,
			Logger:         s.log,
			Metrics:        s.metrics,
		},
		Mode:    s.cfg.Mode(),
		Timings: s.cfg.Run.Timings,
	}
	if s.cfg.Run.DiskCache {
		cache, err := driver.OpenDiskCache("bibcheck")
		if err != nil {
			s.log.Warn("disk cache disabled", zap.Error(err))
		} else {
			opts.Cache = cache
			opts.Fingerprint = version.Get().Version + "\x00" + s.cfg.Fingerprint()
		}
	}
	return opts, nil
}

// writeMetrics writes the metrics file when --metrics-file is set.
func (s *settings) writeMetrics() error {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.WriteTextfile(s.cfg.Run.MetricsFile)
}
