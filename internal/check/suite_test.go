package check

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/keygen"
)

func newEntry(t entry.Type, key string, fields ...string) *entry.Entry {
	e := entry.New(t)
	if key != "" {
		e.SetCitationKey(key)
	}
	for i := 0; i+1 < len(fields); i += 2 {
		e.SetField(entry.FieldFor(fields[i]), fields[i+1])
	}
	return e
}

func codesOf(msgs []diag.Message) []diag.Code {
	out := make([]diag.Code, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Code())
	}
	return out
}

func countCode(msgs []diag.Message, code diag.Code) int {
	n := 0
	for _, m := range msgs {
		if m.Code() == code {
			n++
		}
	}
	return n
}

func testSuite(t *testing.T, deps Deps) *Suite {
	t.Helper()
	gen, err := keygen.New(keygen.Options{Pattern: "[auth][year]"})
	require.NoError(t, err)
	if deps.Keys == nil {
		deps.Keys = gen
	}
	if deps.FileExists == nil {
		deps.FileExists = func(string) bool { return true }
	}
	return NewSuite(DefaultPreferences(), deps)
}

func TestCleanEntryHasNoDiagnostics(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(newEntry(entry.TypeArticle, "Knuth2014",
		"author", "Donald E. Knuth",
		"title", "An {Essay} on keys",
		"journal", "Journal of Tests",
		"year", "2014",
		"pages", "7--33",
		"month", "#may#",
	))
	plan := testSuite(t, Deps{}).Prepare(db)
	assert.Empty(t, plan.CheckAll(db))
}

func TestIdempotence(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(
		newEntry(entry.TypeArticle, "doe2020", "author", "John Doe", "title", "A Title", "year", "2020", "pages", "1-2"),
		newEntry(entry.TypeArticle, "doe2020", "isbn", "9780306406158", "crossref", "missing"),
		newEntry(entry.TypeProceedings, "", "title", "{a", "pages", "3--4"),
	)
	suite := testSuite(t, Deps{})
	first := suite.Prepare(db).CheckAll(db)
	second := suite.Prepare(db).CheckAll(db)
	require.NotEmpty(t, first)
	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]), "message %d differs: %s vs %s", i, first[i], second[i])
	}
}

func TestKeyDeviation(t *testing.T) {
	mk := func(key string) *entry.Database {
		db := entry.NewDatabase(entry.ModeBibTeX)
		db.Insert(newEntry(entry.TypeArticle, key, "author", "Donald E. Knuth", "year", "2014"))
		return db
	}
	suite := testSuite(t, Deps{})

	db := mk("Knuth2014")
	assert.Zero(t, countCode(suite.Prepare(db).CheckAll(db), diag.KeyDeviatesFromGenerated))

	db = mk("Knuth2015")
	msgs := suite.Prepare(db).CheckAll(db)
	require.Equal(t, 1, countCode(msgs, diag.KeyDeviatesFromGenerated))
	for _, m := range msgs {
		if m.Code() == diag.KeyDeviatesFromGenerated {
			assert.Equal(t, "Knuth2014", m.Detail())
		}
	}

	db = mk("Knuth2014a")
	assert.Equal(t, 1, countCode(suite.Prepare(db).CheckAll(db), diag.KeyDeviatesFromGenerated))
}

func TestKeyDeviationAcceptsLetterSuffix(t *testing.T) {
	knuth := func(key string) *entry.Entry {
		return newEntry(entry.TypeArticle, key, "author", "Donald E. Knuth", "year", "2014")
	}
	suite := testSuite(t, Deps{})

	db := entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(knuth("Knuth2014"), knuth("Knuth2014a"), knuth("Knuth2014b"))
	assert.Zero(t, countCode(suite.Prepare(db).CheckAll(db), diag.KeyDeviatesFromGenerated))

	// "a" is free, so "b" is not a disambiguation
	db = entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(knuth("Knuth2014"), knuth("Knuth2014b"))
	assert.Equal(t, 1, countCode(suite.Prepare(db).CheckAll(db), diag.KeyDeviatesFromGenerated))

	db = entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(knuth("Knuth2014"), knuth("Knuth2014X"))
	assert.Equal(t, 1, countCode(suite.Prepare(db).CheckAll(db), diag.KeyDeviatesFromGenerated))
}

func TestKeyDeviationNeedsGenerator(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(newEntry(entry.TypeArticle, "whatever", "author", "Donald E. Knuth", "year", "2014"))
	suite := NewSuite(DefaultPreferences(), Deps{FileExists: func(string) bool { return true }})
	assert.Zero(t, countCode(suite.Prepare(db).CheckAll(db), diag.KeyDeviatesFromGenerated))
}

func TestKeyPresence(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibTeX)
	full := newEntry(entry.TypeArticle, "", "author", "A. Author", "title", "T", "year", "2020")
	noYear := newEntry(entry.TypeArticle, "", "author", "A. Author", "title", "T")
	db.Insert(full, noYear)
	plan := testSuite(t, Deps{}).Prepare(db)
	assert.Equal(t, 1, countCode(plan.Check(full), diag.KeyMissing))
	assert.Zero(t, countCode(plan.Check(noYear), diag.KeyMissing))
}

func TestDuplicateKeysAreSymmetric(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibTeX)
	a := newEntry(entry.TypeMisc, "doe2020")
	b := newEntry(entry.TypeMisc, "doe2020")
	c := newEntry(entry.TypeMisc, "unique")
	db.Insert(a, b, c)
	plan := NewSuite(DefaultPreferences(), Deps{}).Prepare(db)

	assert.Equal(t, []diag.Code{diag.KeyDuplicate}, codesOf(plan.Check(a)))
	assert.Equal(t, []diag.Code{diag.KeyDuplicate}, codesOf(plan.Check(b)))
	assert.Empty(t, plan.Check(c))
}

func TestDuplicateDOIsAreSymmetricAndCaseFolded(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibTeX)
	a := newEntry(entry.TypeMisc, "a", "doi", "10.1000/ABC")
	b := newEntry(entry.TypeMisc, "b", "doi", "https://doi.org/10.1000/abc")
	c := newEntry(entry.TypeMisc, "c", "doi", "10.1000/other")
	db.Insert(a, b, c)
	plan := NewSuite(DefaultPreferences(), Deps{}).Prepare(db)

	ma := plan.Check(a)
	require.Equal(t, []diag.Code{diag.DOIDuplicate}, codesOf(ma))
	assert.Equal(t, "also in b", ma[0].Detail())
	assert.Equal(t, []diag.Code{diag.DOIDuplicate}, codesOf(plan.Check(b)))
	assert.Empty(t, plan.Check(c))
}

func TestModeGating(t *testing.T) {
	mk := func(mode entry.Mode) (*entry.Database, *entry.Entry) {
		db := entry.NewDatabase(mode)
		e := newEntry(entry.TypeArticle, "k", "subtitle", "More words")
		db.Insert(e)
		return db, e
	}
	suite := NewSuite(DefaultPreferences(), Deps{})

	db, e := mk(entry.ModeBibTeX)
	msgs := suite.Prepare(db).Check(e)
	require.Equal(t, 1, countCode(msgs, diag.FieldNotInMode))
	f, ok := msgs[0].Field()
	require.True(t, ok)
	assert.Equal(t, "subtitle", f.Name())

	db, e = mk(entry.ModeBibLaTeX)
	assert.Zero(t, countCode(suite.Prepare(db).Check(e), diag.FieldNotInMode))
}

func TestExclusiveFieldsReportsOnlyForeignFields(t *testing.T) {
	e := newEntry(entry.TypeArticle, "k",
		"title", "Words",
		"subtitle", "More words",
		"journaltitle", "Journal",
		"year", "2014")
	msgs := ExclusiveFields(entry.Exclusive(entry.ModeBibTeX)).Check(e)
	require.Len(t, msgs, 2)
	var names []string
	for _, m := range msgs {
		f, ok := m.Field()
		require.True(t, ok)
		names = append(names, f.Name())
	}
	assert.ElementsMatch(t, []string{"subtitle", "journaltitle"}, names)

	assert.Empty(t, ExclusiveFields(entry.Exclusive(entry.ModeBibLaTeX)).Check(e))
}

func TestExclusiveType(t *testing.T) {
	suite := NewSuite(DefaultPreferences(), Deps{})
	db := entry.NewDatabase(entry.ModeBibTeX)
	e := newEntry("patent", "p")
	db.Insert(e)
	assert.Equal(t, []diag.Code{diag.TypeNotInMode}, codesOf(suite.Prepare(db).Check(e)))

	db.SetMode(entry.ModeBibLaTeX)
	assert.Empty(t, suite.Prepare(db).Check(e))
}

func TestBibTeXOnlyChecks(t *testing.T) {
	suite := NewSuite(DefaultPreferences(), Deps{})
	e := newEntry(entry.TypeMisc, "k", "title", "This is a Title", "note", "lower case")

	db := entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(e)
	assert.Equal(t,
		[]diag.Code{diag.TitleCapitalsNotMasked, diag.NoteNotCapitalized},
		codesOf(suite.Prepare(db).Check(e)))

	db.SetMode(entry.ModeBibLaTeX)
	assert.Empty(t, suite.Prepare(db).Check(e))
}

func TestEntryLinksReportPerKey(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibLaTeX)
	target := newEntry(entry.TypeBook, "known")
	e := newEntry(entry.TypeInBook, "child", "crossref", "known", "related", "known, ghost1,ghost2")
	db.Insert(target, e)
	msgs := NewSuite(DefaultPreferences(), Deps{}).Prepare(db).Check(e)

	require.Equal(t, 2, countCode(msgs, diag.UnresolvedLink))
	assert.Equal(t, "ghost1", msgs[0].Detail())
	assert.Equal(t, "ghost2", msgs[1].Detail())
}

func TestStageOrder(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibTeX)
	e := newEntry(entry.TypeProceedings, "dup",
		"pages", "1-2",
		"subtitle", "x",
		"doi", "10.1000/1",
	)
	other := newEntry(entry.TypeMisc, "dup", "doi", "10.1000/1")
	db.Insert(e, other)
	msgs := NewSuite(DefaultPreferences(), Deps{}).Prepare(db).Check(e)
	assert.Equal(t, []diag.Code{
		diag.PagesInvalid,         // field checkers
		diag.FieldNotInMode,       // mode-gated
		diag.ProceedingsWithPages, // common
		diag.KeyDuplicate,         // keys
		diag.DOIDuplicate,         // database
	}, codesOf(msgs))
}

func TestCommonScans(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibLaTeX)
	e := newEntry(entry.TypeMisc, "k",
		"title", "Tom &amp; Jerry",
		"url", "https://example.org/?a=1&amp;b=2",
		"abstract", "{unbalanced",
		"comment", "x_1 & y",
	)
	db.Insert(e)
	msgs := NewSuite(DefaultPreferences(), Deps{}).Prepare(db).Check(e)

	byField := map[string][]diag.Code{}
	for _, m := range msgs {
		f, _ := m.Field()
		byField[f.Name()] = append(byField[f.Name()], m.Code())
	}
	assert.Equal(t, []diag.Code{diag.HTMLEntity, diag.UnescapedAmpersand}, byField["title"])
	assert.Empty(t, byField["url"])
	assert.Empty(t, byField["comment"])
	assert.Equal(t, []diag.Code{diag.BracketUnexpectedOpening}, byField["abstract"])
}

func TestASCIIOnlyIsOptIn(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibLaTeX)
	e := newEntry(entry.TypeMisc, "k", "title", "Caf\u00e9")
	db.Insert(e)
	assert.Empty(t, NewSuite(DefaultPreferences(), Deps{}).Prepare(db).Check(e))

	prefs := DefaultPreferences()
	prefs.ASCIIOnly = true
	assert.Equal(t, []diag.Code{diag.NonASCII}, codesOf(NewSuite(prefs, Deps{}).Prepare(db).Check(e)))
}

type fakeJournals struct {
	full  map[string]bool
	abbrv map[string]bool
}

func (j fakeJournals) IsKnownName(name string) bool {
	return j.full[name] || j.abbrv[name]
}

func (j fakeJournals) IsAbbreviatedName(name string) bool { return j.abbrv[name] }

type nameSet map[string]bool

func (s nameSet) IsKnownName(name string) bool { return s[name] }

func TestJournalChecks(t *testing.T) {
	repo := fakeJournals{
		full:  map[string]bool{"Journal of Tests": true},
		abbrv: map[string]bool{"J. Tests": true},
	}
	suite := NewSuite(DefaultPreferences(), Deps{Journals: repo})
	db := entry.NewDatabase(entry.ModeBibTeX)
	ok := newEntry(entry.TypeArticle, "a", "journal", "Journal of Tests")
	abbr := newEntry(entry.TypeArticle, "b", "journal", "J. Tests")
	unknown := newEntry(entry.TypeArticle, "c", "journal", "Nowhere Letters")
	db.Insert(ok, abbr, unknown)
	plan := suite.Prepare(db)

	assert.Empty(t, plan.Check(ok))
	assert.Equal(t, []diag.Code{diag.JournalAbbreviated}, codesOf(plan.Check(abbr)))
	assert.Equal(t, []diag.Code{diag.JournalNotInList}, codesOf(plan.Check(unknown)))
}

func TestPredatoryVenue(t *testing.T) {
	suite := NewSuite(DefaultPreferences(), Deps{Predatory: nameSet{"Predatory Press": true}})
	db := entry.NewDatabase(entry.ModeBibTeX)
	e := newEntry(entry.TypeArticle, "a", "publisher", "Predatory Press")
	db.Insert(e)
	msgs := suite.Prepare(db).Check(e)
	require.Equal(t, []diag.Code{diag.PredatoryVenue}, codesOf(msgs))
	f, _ := msgs[0].Field()
	assert.Equal(t, "publisher", f.Name())
}

func TestFileLinks(t *testing.T) {
	dir := t.TempDir()
	existing := map[string]bool{filepath.Join(dir, "papers", "a.pdf"): true}
	exists := func(p string) bool { return existing[p] }

	db := entry.NewDatabase(entry.ModeBibTeX)
	db.SetPath(filepath.Join(dir, "refs.bib"))
	e := newEntry(entry.TypeMisc, "k", "file",
		":papers/a.pdf:PDF;Missing:papers/b.pdf:PDF;Web:https\\://example.org/c.pdf:PDF")
	db.Insert(e)
	msgs := NewSuite(DefaultPreferences(), Deps{FileExists: exists}).Prepare(db).Check(e)

	require.Equal(t, []diag.Code{diag.LinkedFileMissing}, codesOf(msgs))
	assert.Equal(t, "papers/b.pdf", msgs[0].Detail())
}

func TestParseFileField(t *testing.T) {
	links, err := ParseFileField(`Desc:C\:\\papers\\x.pdf:PDF;plain.pdf`)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Desc", links[0].Description)
	assert.Equal(t, `C:\papers\x.pdf`, links[0].Path)
	assert.Equal(t, "PDF", links[0].FileType)
	assert.Equal(t, "plain.pdf", links[1].Path)

	_, err = ParseFileField("desc::PDF")
	assert.Error(t, err)
}

func TestPlanIsSafeForConcurrentUse(t *testing.T) {
	db := entry.NewDatabase(entry.ModeBibTeX)
	for i := range 50 {
		db.Insert(newEntry(entry.TypeMisc, "k"+strings.Repeat("x", i%3), "title", "A Title"))
	}
	plan := NewSuite(DefaultPreferences(), Deps{}).Prepare(db)
	want := plan.CheckAll(db)

	done := make(chan []diag.Message, 4)
	for range 4 {
		go func() { done <- plan.CheckAll(db) }()
	}
	for range 4 {
		got := <-done
		assert.Len(t, got, len(want))
	}
}

func TestLinkState(t *testing.T) {
	present := map[string]bool{filepath.Join("pdfs", "a.pdf"): true}
	suite := NewSuite(Preferences{FileDirectories: []string{"pdfs"}}, Deps{FileExists: func(p string) bool { return present[p] }})

	db := entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(
		newEntry(entry.TypeMisc, "a", "file", ":a.pdf:PDF;:b.pdf:PDF"),
		newEntry(entry.TypeMisc, "b", "file", "online:https\\://example.org/x.pdf:PDF"),
		newEntry(entry.TypeMisc, "c"),
	)
	assert.Equal(t, "10", suite.LinkState(db))

	present[filepath.Join("pdfs", "b.pdf")] = true
	assert.Equal(t, "11", suite.LinkState(db))
}
