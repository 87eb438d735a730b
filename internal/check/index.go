package check

import (
	"strings"

	"golang.org/x/text/cases"

	"bibcheck/internal/entry"
)

// Index is the whole-database state of one pass. It is built once in the
// indexing phase and only read afterwards, so it is safe for concurrent use.
type Index struct {
	mode     entry.Mode
	keys     map[string]int
	dois     map[string][]*entry.Entry
	fileDirs []string
}

// NewIndex scans db once.
func NewIndex(db *entry.Database) *Index {
	ix := &Index{
		mode:     db.Mode(),
		keys:     make(map[string]int, db.Len()),
		dois:     make(map[string][]*entry.Entry),
		fileDirs: db.FileDirectories(),
	}
	for _, e := range db.Entries() {
		if key, ok := e.CitationKey(); ok {
			ix.keys[key]++
		}
		if doi, ok := e.Field(entry.FieldDOI); ok {
			if norm := NormalizeDOI(doi); norm != "" {
				ix.dois[norm] = append(ix.dois[norm], e)
			}
		}
	}
	return ix
}

func (ix *Index) Mode() entry.Mode { return ix.mode }

// HasKey reports whether some entry carries key.
func (ix *Index) HasKey(key string) bool { return ix.keys[key] > 0 }

// KeyCount returns how many entries carry key.
func (ix *Index) KeyCount(key string) int { return ix.keys[key] }

// DOIOwners returns the entries whose normalized DOI equals that of doi.
func (ix *Index) DOIOwners(doi string) []*entry.Entry {
	return ix.dois[NormalizeDOI(doi)]
}

// FileDirectories are the directories linked files are resolved against.
func (ix *Index) FileDirectories() []string { return ix.fileDirs }

// NormalizeDOI strips a resolver prefix and case-folds the rest. DOIs are
// case-insensitive.
func NormalizeDOI(doi string) string {
	doi = StripDOIPrefix(doi)
	if doi == "" {
		return ""
	}
	return strings.TrimSpace(cases.Fold().String(doi))
}
