package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultTOML is the file written by "bibcheck init". Every value matches Default().
const DefaultTOML = `# bibcheck configuration. Environment variables BIBCHECK_<SECTION>_<KEY>
# override these values, command-line flags override both.

[check]
# bibtex or biblatex; a "jabref-meta: databaseType:" comment in a file wins.
mode = "bibtex"
ascii_only = false
allow_integer_edition = false
venue_fields = ["journal", "journaltitle", "booktitle", "publisher"]
max_diagnostics = 0

[keys]
pattern = "[auth][year]"
enforce_legal = true
check_generated = true
# unwanted_characters = "-:!;?^$"

[journals]
abbreviations = []
predatory = []
# store = "journals.db"

[files]
directories = []
check_links = true

[log]
level = "warn"
format = "console"

[run]
jobs = 0
format = "pretty"
path_mode = "auto"
color = "auto"
ui = "auto"
disk_cache = false
timings = false
# metrics_file = "bibcheck.prom"
`

// ErrExists is returned by WriteDefault when the file is already there.
var ErrExists = errors.New(FileName + " already exists")

// WriteDefault writes DefaultTOML into dir unless force is false and the
// file exists. It returns the written path.
func WriteDefault(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	// #nosec G304 -- dir comes from the command line
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", path, ErrExists)
		}
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteString(DefaultTOML); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
