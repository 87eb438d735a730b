package entry

import (
	"path/filepath"
	"slices"
)

// Database is an ordered collection of entries in one schema mode.
// The engine only reads it; callers must not mutate it during a check pass.
type Database struct {
	entries  []*Entry
	mode     Mode
	path     string
	macros   map[string]string
	preamble string
	fileDirs []string
}

// NewDatabase creates an empty database in mode m.
func NewDatabase(m Mode) *Database {
	return &Database{mode: m, macros: make(map[string]string)}
}

func (db *Database) Mode() Mode { return db.mode }
func (db *Database) SetMode(m Mode) { db.mode = m }
func (db *Database) Len() int { return len(db.entries) }
func (db *Database) Path() string { return db.path }
func (db *Database) SetPath(p string) { db.path = p }
func (db *Database) Preamble() string { return db.preamble }
func (db *Database) SetPreamble(p string) { db.preamble = p }

// Dir returns the directory of the backing file, or "" for in-memory databases.
func (db *Database) Dir() string {
	if db.path == "" {
		return ""
	}
	return filepath.Dir(db.path)
}

// Insert appends entries in order.
func (db *Database) Insert(entries ...*Entry) {
	db.entries = append(db.entries, entries...)
}

// Entries returns the entries in database order. The slice is a copy; the entries are shared.
func (db *Database) Entries() []*Entry {
	return slices.Clone(db.entries)
}

// At returns the i-th entry.
func (db *Database) At(i int) *Entry {
	return db.entries[i]
}

// IndexOf returns the position of e, or -1.
func (db *Database) IndexOf(e *Entry) int {
	return slices.Index(db.entries, e)
}

// EntriesWithKey returns all entries whose citation key equals key.
func (db *Database) EntriesWithKey(key string) []*Entry {
	var out []*Entry
	for _, e := range db.entries {
		if k, ok := e.CitationKey(); ok && k == key {
			out = append(out, e)
		}
	}
	return out
}

// KeyCount returns how many entries use key.
func (db *Database) KeyCount(key string) int {
	return len(db.EntriesWithKey(key))
}

// HasKey reports whether any entry uses key.
func (db *Database) HasKey(key string) bool {
	for _, e := range db.entries {
		if k, ok := e.CitationKey(); ok && k == key {
			return true
		}
	}
	return false
}

// SetMacro defines an @string macro.
func (db *Database) SetMacro(name, value string) {
	db.macros[name] = value
}

// Macro resolves an @string macro.
func (db *Database) Macro(name string) (string, bool) {
	v, ok := db.macros[name]
	return v, ok
}

// MacroNames returns the macro names in sorted order.
func (db *Database) MacroNames() []string {
	names := make([]string, 0, len(db.macros))
	for k := range db.macros {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// SetFileDirectories configures extra directories searched for linked files.
func (db *Database) SetFileDirectories(dirs ...string) {
	db.fileDirs = slices.Clone(dirs)
}

// AddFileDirectory appends one search directory unless it is already configured.
func (db *Database) AddFileDirectory(dir string) {
	if !slices.Contains(db.fileDirs, dir) {
		db.fileDirs = append(db.fileDirs, dir)
	}
}

// FileDirectories returns the search directories for linked files: configured ones first, then the database directory.
func (db *Database) FileDirectories() []string {
	out := slices.Clone(db.fileDirs)
	if dir := db.Dir(); dir != "" && !slices.Contains(out, dir) {
		out = append(out, dir)
	}
	return out
}
