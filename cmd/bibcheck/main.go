package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bibcheck/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "bibcheck",
	Short: "Integrity checks for BibTeX and BibLaTeX databases",
	Long: `bibcheck reads .bib files and reports format, semantic, citation-key and
cross-entry problems. Many of them can be fixed in place with "bibcheck fix".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errDiagnostics is returned when errors were reported; they are already printed.
var errDiagnostics = errors.New("diagnostics reported errors")

func init() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Get().Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(journalsCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(versionCmd)

	addGlobalFlags(rootCmd)
}

// addGlobalFlags registers the persistent flags shared by every command.
func addGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to bibcheck.toml (default: search upward from the working directory)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 0, "maximum number of diagnostics per file (0=unlimited)")
	flags.String("log-level", "warn", "log level (debug|info|warn|error)")
	flags.String("log-format", "console", "log format (console|json)")
	flags.String("mode", "bibtex", "database mode for files without a jabref-meta comment (bibtex|biblatex)")
	flags.Int("jobs", 0, "max parallel workers (0=auto)")
	flags.String("ui", "auto", "progress UI (auto|on|off)")
	flags.Bool("disk-cache", false, "cache check results on disk")
	flags.String("metrics-file", "", "write Prometheus metrics to this file")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a runtime execution trace to this file")
}

// main runs the root command. Any error exits with status 1; diagnostic
// failures do so silently.
func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errDiagnostics) {
			rootCmd.PrintErrln("Error:", err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
