package check

import (
	"strings"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
)

type propChecker struct {
	prop    entry.Property
	checker ValueChecker
}

// FieldCheckers maps fields to their value checkers, by name and by field
// property. It is built once per mode and never changes afterwards.
type FieldCheckers struct {
	byName map[string][]ValueChecker
	byProp []propChecker
}

func newFieldCheckers() *FieldCheckers {
	return &FieldCheckers{byName: make(map[string][]ValueChecker)}
}

func (fc *FieldCheckers) add(f entry.Field, vcs ...ValueChecker) {
	fc.byName[f.Name()] = append(fc.byName[f.Name()], vcs...)
}

func (fc *FieldCheckers) addProp(p entry.Property, vc ValueChecker) {
	fc.byProp = append(fc.byProp, propChecker{prop: p, checker: vc})
}

// For returns the checkers bound to f: name-bound first, then property-bound.
func (fc *FieldCheckers) For(f entry.Field) []ValueChecker {
	out := append([]ValueChecker(nil), fc.byName[f.Name()]...)
	for _, pc := range fc.byProp {
		if f.Has(pc.prop) {
			out = append(out, pc.checker)
		}
	}
	return out
}

// Check runs every bound checker over the fields of e in field order.
func (fc *FieldCheckers) Check(e *entry.Entry) []diag.Message {
	var out []diag.Message
	for _, f := range e.Fields() {
		v, _ := e.Field(f)
		if isBlank(v) {
			continue
		}
		for _, vc := range fc.For(f) {
			if code, bad := vc.CheckValue(v); bad {
				out = append(out, diag.New(code, e, f))
			}
		}
	}
	return out
}

// NewFieldCheckers builds the value checker table for mode.
func NewFieldCheckers(mode entry.Mode, prefs Preferences) *FieldCheckers {
	fc := newFieldCheckers()
	fc.add(entry.FieldBooktitle, Booktitle, TitleURL)
	fc.add(entry.FieldTitle, TitleURL)
	fc.add(entry.FieldDOI, DOI)
	fc.add(entry.FieldEdition, Edition(mode, prefs.AllowIntegerEdition))
	fc.add(entry.FieldISBN, ISBN)
	fc.add(entry.FieldISSN, ISSN)
	fc.add(entry.FieldPages, Pages(mode))
	fc.add(entry.FieldURL, URL)
	fc.addProp(entry.PropPersonNames, PersonNames)
	fc.addProp(entry.PropDate, Date)
	fc.addProp(entry.PropYear, Year)
	fc.addProp(entry.PropMonth, Month(mode))
	return fc
}

// Suite holds the checkers for both modes, built once from preferences and
// collaborators.
type Suite struct {
	prefs  Preferences
	deps   Deps
	fields map[entry.Mode]*FieldCheckers
	gated  map[entry.Mode][]EntryChecker
	keys   []EntryChecker
	keyDBs []DatabaseChecker
	dbs    []DatabaseChecker
}

// NewSuite builds the checker tables. A nil deps.FileExists falls back to
// StatFileExists.
func NewSuite(prefs Preferences, deps Deps) *Suite {
	if deps.FileExists == nil {
		deps.FileExists = StatFileExists
	}
	s := &Suite{
		prefs:  prefs,
		deps:   deps,
		fields: make(map[entry.Mode]*FieldCheckers, 2),
		gated:  make(map[entry.Mode][]EntryChecker, 2),
	}
	for _, mode := range []entry.Mode{entry.ModeBibTeX, entry.ModeBibLaTeX} {
		s.fields[mode] = NewFieldCheckers(mode, prefs)
		sets := entry.Exclusive(mode)
		gated := []EntryChecker{ExclusiveType(sets), ExclusiveFields(sets)}
		if mode == entry.ModeBibTeX {
			gated = append(gated,
				FieldChecker{Field: entry.FieldTitle, Checker: TitleCapitalization},
				FieldChecker{Field: entry.FieldNote, Checker: Note},
				FieldChecker{Field: entry.FieldHowPublished, Checker: Note},
			)
		}
		s.gated[mode] = gated
	}

	s.keys = []EntryChecker{KeyLegality(CitationKey(prefs.EnforceLegalKey, prefs.UnwantedCharacters)), KeyPresence}
	if deps.Keys != nil {
		s.keyDBs = append(s.keyDBs, KeyDeviation{Gen: deps.Keys})
	}
	s.keyDBs = append(s.keyDBs, DuplicateKeys{})
	s.dbs = []DatabaseChecker{DuplicateDOIs{}}
	return s
}

// Preferences returns the preferences the suite was built with.
func (s *Suite) Preferences() Preferences { return s.prefs }

// Prepare is the indexing phase: it builds the index of db and binds every
// checker that needs it. The returned plan is read-only.
func (s *Suite) Prepare(db *entry.Database) *Plan {
	ix := NewIndex(db)
	mode := db.Mode()

	common := []EntryChecker{
		AllFields(Brackets, func(f entry.Field) bool { return f.Name() != entry.FieldFile.Name() }),
		AllFields(HTMLEntity, NonVerbatim),
		AllFields(BibString, NonVerbatim),
		AllFields(Latex, TextField),
		AllFields(Ampersand, TextField),
		AllFields(NFC, AnyField),
	}
	if s.prefs.ASCIIOnly {
		common = append(common, AllFields(ASCII, AnyField))
	}
	common = append(common,
		EntryLinks(ix),
		TypeHasPages,
		FileLinks(s.linkDirs(ix.FileDirectories()), s.deps.FileExists),
	)
	if s.deps.Predatory != nil {
		common = append(common, Predatory(s.deps.Predatory, s.prefs.VenueFields))
	}
	if s.deps.Journals != nil {
		common = append(common, Abbreviations(s.deps.Journals), JournalInList(s.deps.Journals))
	}

	keys := append([]EntryChecker(nil), s.keys...)
	for _, dc := range s.keyDBs {
		keys = append(keys, dc.Prepare(ix))
	}
	var dbs []EntryChecker
	for _, dc := range s.dbs {
		dbs = append(dbs, dc.Prepare(ix))
	}

	return &Plan{
		index:  ix,
		stages: [][]EntryChecker{
			{s.fields[mode]},
			s.gated[mode],
			common,
			keys,
			dbs,
		},
	}
}

func (s *Suite) linkDirs(dbDirs []string) []string {
	return append(append([]string(nil), s.prefs.FileDirectories...), dbDirs...)
}

// LinkState is one byte per local linked file of db, in entry order: '1'
// when the file resolves, '0' when it does not. Results that include
// linked-file checks are only reusable while it stays the same.
func (s *Suite) LinkState(db *entry.Database) string {
	dirs := s.linkDirs(db.FileDirectories())
	var b strings.Builder
	for _, e := range db.Entries() {
		v, ok := e.Field(entry.FieldFile)
		if !ok || isBlank(v) {
			continue
		}
		links, err := ParseFileField(v)
		if err != nil {
			continue
		}
		for _, l := range links {
			if l.IsOnline() {
				continue
			}
			if resolveLink(l.Path, dirs, s.deps.FileExists) {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// Plan is a suite bound to one database snapshot. Check is safe for
// concurrent use.
type Plan struct {
	index  *Index
	stages [][]EntryChecker
}

func (p *Plan) Index() *Index { return p.index }

// Check runs all stages over e: field checkers, mode-gated checkers,
// common checkers, key checkers, database checkers.
func (p *Plan) Check(e *entry.Entry) []diag.Message {
	var out []diag.Message
	for _, stage := range p.stages {
		for _, c := range stage {
			out = append(out, c.Check(e)...)
		}
	}
	return out
}

// CheckAll runs Check over every entry of db in order and concatenates the results.
func (p *Plan) CheckAll(db *entry.Database) []diag.Message {
	var out []diag.Message
	for _, e := range db.Entries() {
		out = append(out, p.Check(e)...)
	}
	return out
}
