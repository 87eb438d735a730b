package main

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"bibcheck/internal/bibtex"
	"bibcheck/internal/diag"
	"bibcheck/internal/source"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen [flags] <file.bib>",
	Short: "Show the citation keys the configured pattern generates",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeygen,
}

func init() {
	keygenCmd.Flags().String("pattern", "", "key pattern (default: [keys].pattern)")
	keygenCmd.Flags().Bool("changed", false, "only list entries whose key would change")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	pattern, err := cmd.Flags().GetString("pattern")
	if err != nil {
		return fmt.Errorf("failed to get pattern flag: %w", err)
	}
	onlyChanged, err := cmd.Flags().GetBool("changed")
	if err != nil {
		return fmt.Errorf("failed to get changed flag: %w", err)
	}
	if pattern != "" {
		s.cfg.Keys.Pattern = pattern
	}
	gen, err := s.cfg.KeyGenerator()
	if err != nil {
		return err
	}

	fileSet := source.NewFileSet()
	syntax := diag.NewBag(0)
	db, _, err := bibtex.ParseFile(fileSet, args[0], bibtex.Options{Mode: s.cfg.Mode()}, diag.BagReporter{Bag: syntax})
	if err != nil {
		return err
	}
	if syntax.HasErrors() && !s.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d syntax errors, affected entries are skipped\n", args[0], syntax.Len())
	}

	type row struct{ current, generated string }
	rows := make([]row, 0, db.Len())
	width := len("current")
	for _, e := range db.Entries() {
		current, _ := e.CitationKey()
		generated := gen.GenerateKey(e)
		if onlyChanged && current == generated {
			continue
		}
		rows = append(rows, row{current, generated})
		width = max(width, runewidth.StringWidth(current))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight("current", width), "generated")
	for _, r := range rows {
		current := r.current
		if current == "" {
			current = "-"
		}
		fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(current, width), r.generated)
	}
	return nil
}
