package check

import (
	"path/filepath"
	"strings"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/keygen"
)

// FieldChecker binds a value checker to one field.
type FieldChecker struct {
	Field   entry.Field
	Checker ValueChecker
}

func (fc FieldChecker) Check(e *entry.Entry) []diag.Message {
	v, ok := e.Field(fc.Field)
	if !ok {
		return nil
	}
	if code, bad := fc.Checker.CheckValue(v); bad {
		return []diag.Message{diag.New(code, e, fc.Field)}
	}
	return nil
}

// FieldFilter selects the fields an AllFields scan visits.
type FieldFilter func(f entry.Field) bool

// AnyField accepts every field.
func AnyField(entry.Field) bool { return true }

// TextField rejects verbatim and comment fields.
func TextField(f entry.Field) bool {
	return !f.HasAny(entry.PropVerbatim | entry.PropComment)
}

// NonVerbatim rejects verbatim fields only.
func NonVerbatim(f entry.Field) bool {
	return !f.Has(entry.PropVerbatim)
}

// AllFields runs vc over every field of an entry that passes filter.
func AllFields(vc ValueChecker, filter FieldFilter) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		var out []diag.Message
		for _, f := range e.Fields() {
			if !filter(f) {
				continue
			}
			v, _ := e.Field(f)
			if code, bad := vc.CheckValue(v); bad {
				out = append(out, diag.New(code, e, f))
			}
		}
		return out
	})
}

// KeyPresence reports a missing key, but only for entries with author,
// title and year, which carry enough data to generate one.
var KeyPresence = EntryFunc(func(e *entry.Entry) []diag.Message {
	if _, ok := e.CitationKey(); ok {
		return nil
	}
	_, hasYear := e.FieldOrAlias(entry.FieldYear)
	if e.HasField(entry.FieldAuthor) && e.HasField(entry.FieldTitle) && hasYear {
		return []diag.Message{diag.New(diag.KeyMissing, e, entry.Field{})}
	}
	return nil
})

// KeyLegality applies a key checker to the citation key.
func KeyLegality(vc ValueChecker) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		key, ok := e.CitationKey()
		if !ok {
			return nil
		}
		if code, bad := vc.CheckValue(key); bad {
			return []diag.Message{diag.NewDetailed(code, e, entry.Field{}, key)}
		}
		return nil
	})
}

// KeyDeviation regenerates the key with Gen and reports a stored key that
// differs. The generated key is kept as detail. A key disambiguated with a
// letter suffix is accepted while the generated key and every earlier suffix
// belong to other entries.
type KeyDeviation struct {
	Gen KeyGenerator
}

func (d KeyDeviation) Prepare(ix *Index) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		key, ok := e.CitationKey()
		if !ok {
			return nil
		}
		generated := d.Gen.GenerateKey(e)
		if generated == "" || generated == key || disambiguated(ix, generated, key) {
			return nil
		}
		return []diag.Message{diag.NewDetailed(diag.KeyDeviatesFromGenerated, e, entry.Field{}, generated)}
	})
}

func disambiguated(ix *Index, generated, key string) bool {
	suffix, ok := strings.CutPrefix(key, generated)
	if !ok {
		return false
	}
	n, ok := keygen.SuffixIndex(suffix)
	if !ok || !ix.HasKey(generated) {
		return false
	}
	for i := range n {
		if !ix.HasKey(generated + keygen.LetterSuffix(i)) {
			return false
		}
	}
	return true
}

// ExclusiveType reports an entry type known only to the other mode.
func ExclusiveType(sets entry.ExclusiveSets) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		if sets.HasType(e.Type()) {
			return []diag.Message{diag.NewDetailed(diag.TypeNotInMode, e, entry.Field{}, e.Type().String())}
		}
		return nil
	})
}

// ExclusiveFields reports every field known only to the other mode.
func ExclusiveFields(sets entry.ExclusiveSets) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		var out []diag.Message
		for _, f := range e.Fields() {
			if sets.HasField(f) {
				out = append(out, diag.New(diag.FieldNotInMode, e, f))
			}
		}
		return out
	})
}

// EntryLinks reports every linked key that does not exist in the database.
func EntryLinks(ix *Index) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		var out []diag.Message
		for _, f := range e.Fields() {
			if !f.IsLink() {
				continue
			}
			v, _ := e.Field(f)
			for _, key := range linkedKeys(v, f.Has(entry.PropMultipleEntryLink)) {
				if !ix.HasKey(key) {
					out = append(out, diag.NewDetailed(diag.UnresolvedLink, e, f, key))
				}
			}
		}
		return out
	})
}

func linkedKeys(value string, multiple bool) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if !multiple {
		return []string{value}
	}
	var keys []string
	for _, k := range strings.Split(value, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// TypeHasPages reports proceedings that carry a page range; pages belong to
// the inproceedings entries inside them.
var TypeHasPages = EntryFunc(func(e *entry.Entry) []diag.Message {
	if e.Type() == entry.TypeProceedings && e.HasField(entry.FieldPages) {
		return []diag.Message{diag.New(diag.ProceedingsWithPages, e, entry.FieldPages)}
	}
	return nil
})

// Predatory looks up the configured venue fields in repo.
func Predatory(repo NameRepository, fields []entry.Field) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		var out []diag.Message
		for _, f := range fields {
			v, ok := e.Field(f)
			if !ok || isBlank(v) {
				continue
			}
			if repo.IsKnownName(strings.TrimSpace(v)) {
				out = append(out, diag.NewDetailed(diag.PredatoryVenue, e, f, strings.TrimSpace(v)))
			}
		}
		return out
	})
}

var venueNameFields = []entry.Field{entry.FieldJournal, entry.FieldJournalTitle, entry.FieldBooktitle}

// Abbreviations reports abbreviated journal and book names.
func Abbreviations(repo AbbreviationRepository) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		var out []diag.Message
		for _, f := range venueNameFields {
			v, ok := e.Field(f)
			if !ok || isBlank(v) {
				continue
			}
			if repo.IsAbbreviatedName(strings.TrimSpace(v)) {
				out = append(out, diag.New(diag.JournalAbbreviated, e, f))
			}
		}
		return out
	})
}

// JournalInList reports journal names the repository does not know.
func JournalInList(repo NameRepository) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		var out []diag.Message
		for _, f := range []entry.Field{entry.FieldJournal, entry.FieldJournalTitle} {
			v, ok := e.Field(f)
			if !ok || isBlank(v) {
				continue
			}
			if !repo.IsKnownName(strings.TrimSpace(v)) {
				out = append(out, diag.New(diag.JournalNotInList, e, f))
			}
		}
		return out
	})
}

// FileLinks checks every local path in the file field against exists,
// resolving relative paths against dirs in order.
func FileLinks(dirs []string, exists FileExists) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		v, ok := e.Field(entry.FieldFile)
		if !ok || isBlank(v) {
			return nil
		}
		links, err := ParseFileField(v)
		if err != nil {
			return []diag.Message{diag.NewDetailed(diag.FileFieldMalformed, e, entry.FieldFile, err.Error())}
		}
		var out []diag.Message
		for _, l := range links {
			if l.IsOnline() {
				continue
			}
			if !resolveLink(l.Path, dirs, exists) {
				out = append(out, diag.NewDetailed(diag.LinkedFileMissing, e, entry.FieldFile, l.Path))
			}
		}
		return out
	})
}

func resolveLink(path string, dirs []string, exists FileExists) bool {
	p := filepath.FromSlash(path)
	if filepath.IsAbs(p) {
		return exists(p)
	}
	for _, dir := range dirs {
		if exists(filepath.Join(dir, p)) {
			return true
		}
	}
	return len(dirs) == 0 && exists(p)
}
