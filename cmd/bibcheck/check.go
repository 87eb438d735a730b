package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bibcheck/internal/driver"
	"bibcheck/internal/source"
)

var checkCmd = &cobra.Command{
	Use:     "check [flags] <file.bib|directory>...",
	Aliases: []string{"diag"},
	Short:   "Run integrity checks on .bib files",
	Long: `Check one or more .bib files, or every *.bib file below a directory, and
print the problems found. Exits with status 1 when any error is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	addCheckFlags(checkCmd)
}

// addCheckFlags registers the output flags of the check command.
func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	cmd.Flags().String("path-mode", "auto", "how paths are shown (auto|absolute|relative|basename)")
	cmd.Flags().Int("context", 0, "source lines of context around each diagnostic")
	cmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	cmd.Flags().Bool("preview", false, "preview fix edits (implies --suggest)")
	cmd.Flags().Bool("no-warnings", false, "hide warnings and infos")
}

// runCheck loads settings, checks the given paths and renders the results in
// the chosen format. It returns errDiagnostics when errors were reported.
func runCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()

	outOpts, err := readOutputFlags(cmd)
	if err != nil {
		return err
	}
	session, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling(s, session)

	fileSet, results, err := checkPaths(cmd.Context(), s, args)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	if outOpts.noWarnings {
		dropNonErrors(results)
	}

	out := cmd.OutOrStdout()
	if err := renderResults(out, s, fileSet, results, outOpts); err != nil {
		return err
	}
	if err := s.writeMetrics(); err != nil {
		s.log.Warn("failed to write metrics", zap.Error(err))
	}
	if anyErrors(results) {
		return errDiagnostics
	}
	return nil
}

// checkPaths expands args into .bib files and checks them, with the progress
// UI when enabled. A single directory argument becomes the base for relative paths.
func checkPaths(ctx context.Context, s *settings, args []string) (*source.FileSet, []driver.FileResult, error) {
	opts, err := s.fileOptions(ctx)
	if err != nil {
		return nil, nil, err
	}
	files, dir, err := expandArgs(args)
	if err != nil {
		return nil, nil, err
	}
	s.log.Debug("checking", zap.Int("files", len(files)), zap.Int("jobs", opts.Jobs))

	run := func(ctx context.Context, opts driver.FileOptions) (*source.FileSet, []driver.FileResult, error) {
		if dir != "" {
			return driver.CheckDir(ctx, dir, opts)
		}
		return driver.CheckFiles(ctx, files, opts)
	}

	mode, err := readUIMode(s.cfg.Run.UI)
	if err != nil {
		return nil, nil, err
	}
	if shouldUseTUI(mode, s.quiet, len(files)) {
		return runChecksWithUI(ctx, "checking", files, opts, run)
	}
	return run(ctx, opts)
}

// expandArgs returns the files to check. dir is set when the only argument
// is a directory.
func expandArgs(args []string) (files []string, dir string, err error) {
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, "", fmt.Errorf("failed to stat path: %w", err)
		}
		if !st.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := driver.ListBibFiles(arg)
		if err != nil {
			return nil, "", err
		}
		files = append(files, found...)
		if len(args) == 1 {
			dir = arg
		}
	}
	return files, dir, nil
}

func anyErrors(results []driver.FileResult) bool {
	for _, r := range results {
		if r.Bag != nil && r.Bag.HasErrors() {
			return true
		}
	}
	return false
}
