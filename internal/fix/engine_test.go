package fix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibcheck/internal/bibtex"
	"bibcheck/internal/check"
	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/keygen"
	"bibcheck/internal/source"
)

func checkDB(db *entry.Database) []diag.Message {
	suite := check.NewSuite(check.DefaultPreferences(), check.Deps{FileExists: func(string) bool { return true }})
	return suite.Prepare(db).CheckAll(db)
}

func codesOf(msgs []diag.Message) []diag.Code {
	out := make([]diag.Code, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Code())
	}
	return out
}

func TestNormalizeMonth(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"January", "#jan#", true},
		{"jan", "#jan#", true},
		{"Sept.", "#sep#", true},
		{"1", "#jan#", true},
		{"09", "#sep#", true},
		{"{12}", "#dec#", true},
		{"13", "", false},
		{"ma", "", false},
		{"spring", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeMonth(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePages(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1-2", "1--2", true},
		{"1 - 2", "1--2", true},
		{"1\u20142", "1--2", true},
		{"1\u20132", "1--2", true},
		{"7,41-53,73", "7,41--53,73", true},
		{"e1-e5", "e1--e5", true},
		{"43+", "43+", true},
		{"1-2-3", "", false},
		{"i-x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePages(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			code, bad := check.Pages(entry.ModeBibTeX).CheckValue(got)
			assert.False(t, bad, code)
		})
	}
}

func TestTextFixes(t *testing.T) {
	assert.Equal(t, `Tom \& Jerry \& co`, EscapeAmpersands(`Tom & Jerry \& co`))
	assert.Equal(t, `Tom \& Jerry`, UnescapeHTML("Tom &amp; Jerry"))
	assert.Equal(t, "\u00d6konomie", UnescapeHTML("&Ouml;konomie"))

	got, err := FixValue(diag.FixNormalizeNFC, "Mu\u0308ller")
	require.NoError(t, err)
	assert.Equal(t, "M\u00fcller", got)

	got, err = FixValue(diag.FixNormalizeNames, "Donald E. Knuth and Leslie Lamport")
	require.NoError(t, err)
	assert.Equal(t, "Knuth, Donald E. and Lamport, Leslie", got)

	_, err = FixValue(diag.FixNormalizePages, "1--2")
	assert.ErrorIs(t, err, errNoChange)
	_, err = FixValue(diag.FixCleanKey, "x")
	assert.Error(t, err)
}

func TestUniqueKey(t *testing.T) {
	taken := map[string]bool{"Knuth2014": true, "Knuth2014a": true}
	isTaken := func(k string) bool { return taken[k] }
	assert.Equal(t, "Lamport1994", uniqueKey("Lamport1994", "", isTaken))
	assert.Equal(t, "Knuth2014b", uniqueKey("Knuth2014", "", isTaken))
	assert.Equal(t, "Knuth2014a", uniqueKey("Knuth2014", "Knuth2014a", isTaken))
}

func TestBuildSkipsMacroValues(t *testing.T) {
	e := entry.NewWithKey(entry.TypeArticle, "a")
	e.SetField(entry.FieldFor("pages"), "#pp# 1-2")
	_, err := Builder{}.Build(diag.New(diag.PagesInvalid, e, entry.FieldFor("pages")))
	assert.ErrorIs(t, err, errMacroValue)

	_, err = Builder{}.Build(diag.New(diag.KeyDuplicate, e, entry.Field{}))
	assert.Error(t, err)
}

func newDB(entries ...*entry.Entry) *entry.Database {
	db := entry.NewDatabase(entry.ModeBibTeX)
	db.Insert(entries...)
	return db
}

func TestApplyToEntries(t *testing.T) {
	e := entry.NewWithKey(entry.TypeArticle, "Knuth2014")
	e.SetField(entry.FieldFor("title"), "Literate programming")
	e.SetField(entry.FieldFor("pages"), "1-2")
	e.SetField(entry.FieldFor("month"), "January")
	e.SetField(entry.FieldFor("note"), "Tom &amp; Jerry")
	db := newDB(e)

	msgs := checkDB(db)
	require.Contains(t, codesOf(msgs), diag.PagesInvalid)
	require.Contains(t, codesOf(msgs), diag.MonthNotNormalized)

	res, err := ApplyToEntries(msgs, ApplyOptions{Mode: ApplyModeAll}, Builder{})
	require.NoError(t, err)
	assert.Len(t, res.Applied, 2)
	assert.NotEmpty(t, res.Skipped, "heuristic fixes stay out of the default threshold")

	v, _ := e.Field(entry.FieldFor("pages"))
	assert.Equal(t, "1--2", v)
	v, _ = e.Field(entry.FieldFor("month"))
	assert.Equal(t, "#jan#", v)

	after := codesOf(checkDB(db))
	assert.NotContains(t, after, diag.PagesInvalid)
	assert.NotContains(t, after, diag.MonthNotNormalized)

	_, err = ApplyToEntries(checkDB(db), ApplyOptions{Mode: ApplyModeAll, Threshold: diag.FixApplicabilitySafeWithHeuristics}, Builder{})
	require.NoError(t, err)
	v, _ = e.Field(entry.FieldFor("note"))
	assert.Equal(t, `Tom \& Jerry`, v)
}

func TestApplyModes(t *testing.T) {
	mk := func() []diag.Message {
		e := entry.NewWithKey(entry.TypeArticle, "a")
		e.SetField(entry.FieldFor("pages"), "1-2")
		e.SetField(entry.FieldFor("month"), "feb")
		return []diag.Message{
			diag.New(diag.PagesInvalid, e, entry.FieldFor("pages")),
			diag.New(diag.MonthNotNormalized, e, entry.FieldFor("month")),
		}
	}

	res, err := ApplyToEntries(mk(), ApplyOptions{Mode: ApplyModeOnce}, Builder{})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, diag.PagesInvalid, res.Applied[0].Code)

	res, err = ApplyToEntries(mk(), ApplyOptions{Mode: ApplyModeID, TargetID: diag.MonthNotNormalized.ID() + "-1"}, Builder{})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, diag.MonthNotNormalized, res.Applied[0].Code)
	assert.Equal(t, "#feb#", res.Applied[0].NewValue)

	res, err = ApplyToEntries(mk(), ApplyOptions{Mode: ApplyModeID, TargetID: "nope"}, Builder{})
	assert.ErrorIs(t, err, ErrNoFixes)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "fix id not found", res.Skipped[0].Reason)

	_, err = ApplyToEntries(nil, ApplyOptions{}, Builder{})
	assert.ErrorIs(t, err, ErrNoFixes)
}

func TestRegeneratedKeysStayUnique(t *testing.T) {
	gen, err := keygen.New(keygen.Options{Pattern: "[auth][year]"})
	require.NoError(t, err)

	var entries []*entry.Entry
	for range 3 {
		e := entry.New(entry.TypeArticle)
		e.SetField(entry.FieldFor("author"), "Donald Knuth")
		e.SetField(entry.FieldFor("title"), "Literate programming")
		e.SetField(entry.FieldFor("year"), "2014")
		entries = append(entries, e)
	}
	db := newDB(entries...)
	msgs := checkDB(db)
	require.Equal(t, 3, len(filterCode(msgs, diag.KeyMissing)))

	_, err = ApplyToEntries(msgs, ApplyOptions{Mode: ApplyModeAll, Threshold: diag.FixApplicabilitySafeWithHeuristics}, Builder{Keys: gen, Taken: db.HasKey})
	require.NoError(t, err)
	var keys []string
	for _, e := range entries {
		k, _ := e.CitationKey()
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"Knuth2014", "Knuth2014a", "Knuth2014b"}, keys)

	// the suffixed keys are accepted by the deviation check, so fixing converges
	suite := check.NewSuite(check.DefaultPreferences(), check.Deps{Keys: gen, FileExists: func(string) bool { return true }})
	after := suite.Prepare(db).CheckAll(db)
	assert.Empty(t, filterCode(after, diag.KeyDeviatesFromGenerated))
	assert.Empty(t, filterCode(after, diag.KeyDuplicate))
}

func TestRegenerateKeyToCurrentIsNoChange(t *testing.T) {
	e := entry.NewWithKey(entry.TypeArticle, "Knuth2014a")
	msg := diag.NewDetailed(diag.KeyDeviatesFromGenerated, e, entry.Field{}, "Knuth2014")
	taken := func(k string) bool { return k == "Knuth2014" || k == "Knuth2014a" }

	_, err := Builder{Taken: taken}.newKey(diag.FixRegenerateKey, msg)
	assert.ErrorIs(t, err, errNoChange)
}

func filterCode(msgs []diag.Message, code diag.Code) []diag.Message {
	var out []diag.Message
	for _, m := range msgs {
		if m.Code() == code {
			out = append(out, m)
		}
	}
	return out
}

func parseFile(t *testing.T, path string) (*source.FileSet, *entry.Database) {
	t.Helper()
	fs := source.NewFileSetWithBase(filepath.Dir(path))
	db, _, err := bibtex.ParseFile(fs, path, bibtex.Options{}, nil)
	require.NoError(t, err)
	return fs, db
}

func TestApplyToFilesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	src := "\ufeff@article{Knuth2014,\r\n  author = {Donald Knuth},\r\n  title = {Literate programming},\r\n  pages = {1-2},\r\n  month = {January},\r\n  year = {2014}\r\n}\r\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	fs, db := parseFile(t, path)
	res, err := ApplyToFiles(fs, checkDB(db), ApplyOptions{Mode: ApplyModeAll}, Builder{})
	require.NoError(t, err)
	assert.Len(t, res.Applied, 2)
	require.Len(t, res.FileChanges, 1)
	assert.Equal(t, FileChange{Path: "refs.bib", EditCount: 2}, res.FileChanges[0])

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\ufeff@article{Knuth2014,\r\n  author = {Donald Knuth},\r\n  title = {Literate programming},\r\n  pages = {1--2},\r\n  month = jan,\r\n  year = {2014}\r\n}\r\n", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, db = parseFile(t, path)
	assert.Empty(t, checkDB(db))
}

func TestApplyToFilesInsertsMissingKey(t *testing.T) {
	gen, err := keygen.New(keygen.Options{Pattern: "[auth][year]"})
	require.NoError(t, err)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"empty key",
			"@article{,\n  author = {Donald Knuth},\n  title = {T},\n  year = {2014}\n}\n",
			"@article{Knuth2014,\n  author = {Donald Knuth},\n  title = {T},\n  year = {2014}\n}\n",
		},
		{
			"no key at all",
			"@article{author = {Donald Knuth}, title = {T}, year = {2014}}\n",
			"@article{Knuth2014, author = {Donald Knuth}, title = {T}, year = {2014}}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "refs.bib")
			require.NoError(t, os.WriteFile(path, []byte(tt.src), 0o600))
			fs, db := parseFile(t, path)
			msgs := filterCode(checkDB(db), diag.KeyMissing)
			require.Len(t, msgs, 1)

			_, err := ApplyToFiles(fs, msgs, ApplyOptions{Mode: ApplyModeOnce}, Builder{Keys: gen, Taken: db.HasKey})
			require.NoError(t, err)
			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestApplyToFilesSkipsConflictsAndStaleText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	require.NoError(t, os.WriteFile(path, []byte("@misc{a, note = {Tom &amp; Jerry}}\n"), 0o600))
	fs, db := parseFile(t, path)
	e := db.At(0)
	note := entry.FieldFor("note")
	msgs := []diag.Message{
		diag.New(diag.HTMLEntity, e, note),
		diag.New(diag.NotNFC, e, note),
	}
	e.SetField(note, "Tom &amp; Jerry\u0301")

	res, err := ApplyToFiles(fs, msgs, ApplyOptions{Mode: ApplyModeAll, Threshold: diag.FixApplicabilityManualReview}, Builder{})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "conflicts with previously applied edits")

	fs = source.NewFileSet()
	id := fs.AddVirtual("mem.bib", []byte("@misc{a, pages = {1-2}}"))
	db = bibtex.Parse(fs.Get(id), bibtex.Options{}, nil)
	res, err = ApplyToFiles(fs, checkDB(db), ApplyOptions{Mode: ApplyModeAll}, Builder{})
	assert.ErrorIs(t, err, ErrNoFixes)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "target file is virtual", res.Skipped[0].Reason)
}
