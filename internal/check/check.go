// Package check implements the integrity checks run over a bibliography
// database: value checkers bound to fields, entry checkers, and database
// checkers backed by an index built once per pass.
package check

import (
	"os"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
)

// ValueChecker inspects one raw field value. Blank input never yields a code.
type ValueChecker interface {
	CheckValue(value string) (diag.Code, bool)
}

// ValueFunc adapts a function to ValueChecker.
type ValueFunc func(value string) (diag.Code, bool)

func (f ValueFunc) CheckValue(value string) (diag.Code, bool) { return f(value) }

// EntryChecker inspects a whole entry and may read every field of it.
type EntryChecker interface {
	Check(e *entry.Entry) []diag.Message
}

// EntryFunc adapts a function to EntryChecker.
type EntryFunc func(e *entry.Entry) []diag.Message

func (f EntryFunc) Check(e *entry.Entry) []diag.Message { return f(e) }

// DatabaseChecker needs whole-database state. Prepare runs in the indexing
// phase and returns a checker that only reads the index afterwards.
type DatabaseChecker interface {
	Prepare(ix *Index) EntryChecker
}

// KeyGenerator produces the citation key an entry would get from the
// configured pattern. It is only used for comparison.
type KeyGenerator interface {
	GenerateKey(e *entry.Entry) string
}

// NameRepository answers whether a name is on a list (journals, predatory venues).
type NameRepository interface {
	IsKnownName(name string) bool
}

// AbbreviationRepository is a journal list that also knows abbreviated forms.
type AbbreviationRepository interface {
	NameRepository
	IsAbbreviatedName(name string) bool
}

// FileExists reports whether a linked file exists on disk.
type FileExists func(path string) bool

// StatFileExists is the default FileExists.
func StatFileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Deps are the collaborators a Suite consults. Nil members disable the
// checks that need them.
type Deps struct {
	Keys       KeyGenerator
	Journals   AbbreviationRepository
	Predatory  NameRepository
	FileExists FileExists
}

// Preferences tune individual checks.
type Preferences struct {
	// EnforceLegalKey applies the strict legal-key charset.
	EnforceLegalKey bool
	// AllowIntegerEdition accepts "2" as a BibTeX edition.
	AllowIntegerEdition bool
	// ASCIIOnly reports any non-ASCII character.
	ASCIIOnly          bool
	KeyPattern         string
	UnwantedCharacters string
	// VenueFields are looked up in the predatory venue repository.
	VenueFields     []entry.Field
	FileDirectories []string
}

// DefaultPreferences returns the preferences used when nothing is configured.
func DefaultPreferences() Preferences {
	return Preferences{
		EnforceLegalKey: true,
		KeyPattern:      "[auth][year]",
		VenueFields:     []entry.Field{entry.FieldJournal, entry.FieldJournalTitle, entry.FieldBooktitle, entry.FieldPublisher},
	}
}
