package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bibcheck/internal/journals"
)

var journalsCmd = &cobra.Command{
	Use:   "journals",
	Short: "Manage the journal abbreviation and predatory venue store",
}

var journalsImportCmd = &cobra.Command{
	Use:   "import [flags] <list>...",
	Short: "Import journal lists into the SQLite store",
	Long: `Import CSV abbreviation lists ("name","abbreviation"[,"shortest unique"]) or,
with --predatory, predatory venue name lists into the store. The store path comes
from --store or [journals].store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runJournalsImport,
}

var journalsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many names the store holds",
	Args:  cobra.NoArgs,
	RunE:  runJournalsStats,
}

func init() {
	journalsCmd.PersistentFlags().String("store", "", "path of the SQLite store (default: [journals].store)")
	journalsImportCmd.Flags().Bool("predatory", false, "the lists are predatory venue names, one per line")
	journalsCmd.AddCommand(journalsImportCmd)
	journalsCmd.AddCommand(journalsStatsCmd)
}

func openJournalStore(cmd *cobra.Command, s *settings) (*journals.Store, error) {
	path, err := cmd.Flags().GetString("store")
	if err != nil {
		return nil, fmt.Errorf("failed to get store flag: %w", err)
	}
	if path == "" {
		path = s.cfg.Journals.Store
	}
	if path == "" {
		return nil, fmt.Errorf("no journal store configured: set --store or [journals].store")
	}
	return journals.OpenStore(cmd.Context(), path)
}

func runJournalsImport(cmd *cobra.Command, args []string) error {
	predatory, err := cmd.Flags().GetBool("predatory")
	if err != nil {
		return fmt.Errorf("failed to get predatory flag: %w", err)
	}
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()
	store, err := openJournalStore(cmd, s)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	for _, path := range args {
		n, err := importList(cmd, store, path, predatory)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %d names from %s\n", n, path)
	}
	return nil
}

func importList(cmd *cobra.Command, store *journals.Store, path string, predatory bool) (int, error) {
	// #nosec G304 -- path comes from the command line
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if predatory {
		names, err := journals.ReadNames(f)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		return store.ImportPredatory(cmd.Context(), names)
	}
	entries, err := journals.ReadCSV(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return store.ImportAbbreviations(cmd.Context(), entries)
}

func runJournalsStats(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	store, err := openJournalStore(cmd, s)
	if err != nil {
		return err
	}
	defer store.Close()

	abbrevs, predatory, err := store.Counts(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "journals:  %d\npredatory: %d\n", abbrevs, predatory)
	return nil
}
