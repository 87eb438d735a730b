package main

// todo: интерактивный режим
// флаг --interactive показывает каждую правку и спрашивает подтверждение

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bibcheck/internal/diag"
	"bibcheck/internal/fix"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <file.bib|directory>...",
	Short: "Apply available fixes to .bib files",
	Long: `Run the checks, surface the available fixes and apply them to the files in
place according to the chosen strategy. Fix ids are printed by "bibcheck check --suggest".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFix,
}

func init() {
	addFixFlags(fixCmd)
}

func addFixFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("all", false, "apply every fix up to --threshold")
	cmd.Flags().Bool("once", false, "apply the first available fix (default)")
	cmd.Flags().String("id", "", "apply fix with a specific identifier")
	cmd.Flags().String("threshold", "always-safe", "least safe fixes --all applies (always-safe|safe-with-heuristics|manual-review)")
}

func runFix(cmd *cobra.Command, args []string) error {
	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	applyOnceFlag, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}
	thresholdStr, err := cmd.Flags().GetString("threshold")
	if err != nil {
		return err
	}

	if targetID != "" && (applyAll || applyOnceFlag) {
		return fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnceFlag {
		return fmt.Errorf("--all and --once are mutually exclusive")
	}
	threshold, err := parseApplicability(thresholdStr)
	if err != nil {
		return err
	}

	mode := fix.ApplyModeOnce
	if targetID != "" {
		mode = fix.ApplyModeID
	} else if applyAll {
		mode = fix.ApplyModeAll
	}
	opts := fix.ApplyOptions{
		Mode:      mode,
		TargetID:  targetID,
		Threshold: threshold,
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()
	session, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling(s, session)
	// every fixable message is needed, not only the displayed ones
	s.cfg.Check.MaxDiagnostics = 0
	s.quiet = true

	fileSet, results, err := checkPaths(cmd.Context(), s, args)
	if err != nil {
		return fmt.Errorf("fix: check failed: %w", err)
	}
	var msgs []diag.Message
	for _, r := range results {
		if r.Bag != nil {
			msgs = append(msgs, r.Bag.Items()...)
		}
	}
	builder, err := fixBuilder(s, results)
	if err != nil {
		return err
	}

	res, applyErr := fix.ApplyToFiles(fileSet, msgs, opts, builder)
	return handleApplyResult(cmd.OutOrStdout(), res, applyErr)
}

func parseApplicability(s string) (diag.FixApplicability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always-safe", "safe":
		return diag.FixApplicabilityAlwaysSafe, nil
	case "safe-with-heuristics", "heuristics":
		return diag.FixApplicabilitySafeWithHeuristics, nil
	case "manual-review", "manual":
		return diag.FixApplicabilityManualReview, nil
	default:
		return 0, fmt.Errorf("unknown --threshold %q (expected always-safe|safe-with-heuristics|manual-review)", s)
	}
}

func handleApplyResult(out io.Writer, res *fix.ApplyResult, applyErr error) error {
	if res == nil {
		return applyErr
	}

	if len(res.Applied) > 0 {
		fmt.Fprintf(out, "Applied %d fix(es):\n", len(res.Applied))
		for _, item := range res.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			fmt.Fprintf(out, "  %s [%s] - %s (%d edits, %s)\n",
				item.Title, item.ID, location, item.EditCount, item.Applicability)
		}
	}

	if len(res.FileChanges) > 0 {
		fmt.Fprintln(out, "Updated files:")
		for _, change := range res.FileChanges {
			fmt.Fprintf(out, "  %s (%d edits)\n", change.Path, change.EditCount)
		}
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, "Skipped fixes:")
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				fmt.Fprintf(out, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				fmt.Fprintf(out, "  [%s]: %s\n", id, skip.Reason)
			}
		}
	}

	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			fmt.Fprintln(out, "No applicable fixes found.")
			return nil
		}
		return applyErr
	}

	if len(res.Applied) == 0 {
		fmt.Fprintln(out, "No fixes applied.")
	}
	return nil
}
