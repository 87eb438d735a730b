package bibtex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

// parse reads src as a virtual file and returns the database, the file and the collected diagnostics.
func parse(t *testing.T, src string) (*entry.Database, *source.File, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.bib", []byte(src))
	bag := diag.NewBag(0)
	db := Parse(fs.Get(id), Options{Mode: entry.ModeBibTeX}, diag.BagReporter{Bag: bag})
	return db, fs.Get(id), bag
}

func field(t *testing.T, e *entry.Entry, name string) string {
	t.Helper()
	v, ok := e.Field(entry.FieldFor(name))
	require.True(t, ok, "field %s missing", name)
	return v
}

func TestParseEntry(t *testing.T) {
	db, _, bag := parse(t, "% leading text\n@Article{test,\n  Author = {Ed von Test},\n  year = 2005,\n  month = feb\n}\n")
	require.Equal(t, 0, bag.Len(), bag.Items())
	require.Equal(t, 1, db.Len())

	e := db.At(0)
	assert.Equal(t, entry.TypeArticle, e.Type())
	key, ok := e.CitationKey()
	require.True(t, ok)
	assert.Equal(t, "test", key)
	assert.Equal(t, "Ed von Test", field(t, e, "author"))
	assert.Equal(t, "2005", field(t, e, "year"))
	assert.Equal(t, "#feb#", field(t, e, "month"))
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		want  string
	}{
		{"quoted", `@article{test,author="Ed von Test"}`, "author", "Ed von Test"},
		{"braces inside quotes", `@article{test,author="Test {Ed {von} Test}"}`, "author", "Test {Ed {von} Test}"},
		{"quote inside braces", `@article{test,author="Test {" Test}"}`, "author", `Test {" Test}`},
		{"escaped bracket", `@article{test,review={escaped \{ bracket}}`, "review", `escaped \{ bracket`},
		{"at sign", `@article{test,author={Ed von T@st}}`, "author", "Ed von T@st"},
		{"concatenation", `@article{test,date = {1-4~} # nov}`, "date", "1-4~#nov#"},
		{"trailing comma", `@article{test,author={Ed von Test},}`, "author", "Ed von Test"},
		{"month with comma", `@article{test,author={Ed von Test},month={8,}},`, "month", "8,"},
		{"parentheses", `@article(test, title = {Parens})`, "title", "Parens"},
		{"big number", `@article{test,pages=1234567890123}`, "pages", "1234567890123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, _ := parse(t, tt.src)
			require.Equal(t, 1, db.Len())
			assert.Equal(t, tt.want, field(t, db.At(0), tt.field))
		})
	}
}

func TestParseKeys(t *testing.T) {
	db, _, bag := parse(t, "@article{te_st:with-special(characters),author={Ed von Test}}@inProceedings{foo}")
	assert.Equal(t, 0, bag.Len())
	require.Equal(t, 2, db.Len())
	key, _ := db.At(0).CitationKey()
	assert.Equal(t, "te_st:with-special(characters)", key)
	key, _ = db.At(1).CitationKey()
	assert.Equal(t, "foo", key)
	assert.Equal(t, entry.TypeInProceedings, db.At(1).Type())

	db, _, bag = parse(t, "@article{,author={Ed von Test}}")
	require.Equal(t, 1, db.Len())
	_, ok := db.At(0).CitationKey()
	assert.False(t, ok)
	assert.Equal(t, 0, bag.Len())

	db, _, bag = parse(t, "@article{author = {Ed von Test}}")
	require.Equal(t, 1, db.Len())
	assert.Equal(t, "Ed von Test", field(t, db.At(0), "author"))
	assert.Equal(t, []diag.Code{diag.SynMissingKey}, bag.Codes())
}

func TestDuplicateFields(t *testing.T) {
	db, _, bag := parse(t, "@article{test,author={Ed von Test},author={Second Author},Keywords={Test},keywords={Second Keyword},title={A},title={B}}")
	require.Equal(t, 1, db.Len())
	e := db.At(0)
	assert.Equal(t, "Ed von Test and Second Author", field(t, e, "author"))
	assert.Equal(t, "Test, Second Keyword", field(t, e, "keywords"))
	assert.Equal(t, "A", field(t, e, "title"))
	require.Equal(t, []diag.Code{diag.SynDuplicateField}, bag.Codes())
	assert.Equal(t, "title", bag.Items()[0].Detail())
}

func TestBrokenEntries(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		entries int
		code    diag.Code
	}{
		{"unmatched bracket", "@article{test,author={author missing bracket}", 0, diag.SynUnterminatedEntry},
		{"unmatched bracket in quotes", `@article{test,author="author {missing bracket"}`, 0, diag.SynUnterminatedValue},
		{"missing comma between fields", "@article{test,author={Ed von Test} year=2005}", 0, diag.SynUnexpectedChar},
		{"content after value", "@article{test,author={author bracket }, too much}", 0, diag.SynExpectedEquals},
		{"corrupted then good", "@article{test,author={author missing bracket}@article{test,author={Ed von Test}}", 1, diag.SynUnexpectedChar},
		{"no delimiter", "@article test", 0, diag.SynUnexpectedChar},
		{"missing equals", "@article{test, author {x}}", 0, diag.SynExpectedEquals},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, bag := parse(t, tt.src)
			assert.Equal(t, tt.entries, db.Len())
			assert.Contains(t, bag.Codes(), tt.code)
		})
	}
}

func TestRecoveryResumesAtNextLine(t *testing.T) {
	src := "@article{broken,\n  title = {never {closed,\n}\n@book{good, title = {Fine}}\n"
	db, _, bag := parse(t, src)
	assert.True(t, bag.HasErrors())
	require.Equal(t, 1, db.Len())
	key, _ := db.At(0).CitationKey()
	assert.Equal(t, "good", key)
}

func TestStringsAndPreamble(t *testing.T) {
	src := `@string{bourdieu = {Bourdieu, Pierre}}
@STRING(pub = "Minuit")
@string{bourdieu = {Other}}
@preamble{"some text" # "and \latex"}
@book{b, author = bourdieu, publisher = pub # { Paris}, note = undefinedmacro}
`
	db, _, bag := parse(t, src)
	require.Equal(t, 1, db.Len())
	e := db.At(0)
	assert.Equal(t, "#bourdieu#", field(t, e, "author"))
	assert.Equal(t, "#pub# Paris", field(t, e, "publisher"))

	v, ok := db.Macro("bourdieu")
	require.True(t, ok)
	assert.Equal(t, "Bourdieu, Pierre", v)
	assert.Equal(t, []string{"bourdieu", "pub"}, db.MacroNames())
	assert.Equal(t, `"some text" # "and \latex"`, db.Preamble())
	assert.Equal(t, []diag.Code{diag.SynDuplicateField, diag.SynUndefinedMacro}, bag.Codes())
}

func TestComments(t *testing.T) {
	src := "@Comment{@article{myarticle,}\n@inproceedings{blabla, title={the proceedings of bl@bl@}; }\n}\n" +
		"@comment some text\n" +
		"@article{test,author={Ed von T@st}}"
	db, _, bag := parse(t, src)
	assert.Equal(t, 0, bag.Len())
	require.Equal(t, 1, db.Len())
	key, _ := db.At(0).CitationKey()
	assert.Equal(t, "test", key)
}

func TestMetaComments(t *testing.T) {
	db, _, _ := parse(t, "@comment{jabref-meta: databaseType:biblatex;}")
	assert.Equal(t, entry.ModeBibLaTeX, db.Mode())

	db, _, _ = parse(t, `@comment{jabref-meta: fileDirectory:\\Literature\\;}`)
	assert.Equal(t, []string{`\Literature\`}, db.FileDirectories())

	db, _, _ = parse(t, `@comment{jabref-meta: fileDirectory:C:\temp\test}`)
	assert.Equal(t, []string{`C:\temp\test`}, db.FileDirectories())
}

func TestSpans(t *testing.T) {
	src := "@article{knuth,\n  title = {Hello},\n  year = 2014 # {a}\n}\n"
	db, file, _ := parse(t, src)
	require.Equal(t, 1, db.Len())
	e := db.At(0)
	require.True(t, e.HasSpans())

	assert.Equal(t, strings.TrimSuffix(src, "\n"), string(file.Slice(e.Span())))
	assert.Equal(t, "knuth", string(file.Slice(e.KeySpan())))

	sp, ok := e.FieldSpan(entry.FieldTitle)
	require.True(t, ok)
	assert.Equal(t, "{Hello}", string(file.Slice(sp)))

	sp, ok = e.FieldSpan(entry.FieldYear)
	require.True(t, ok)
	assert.Equal(t, "2014 # {a}", string(file.Slice(sp)))
}

func TestSyntaxDiagnosticsCarrySpans(t *testing.T) {
	_, file, bag := parse(t, "@article{test,\n  author {x}\n}")
	require.Equal(t, 1, bag.Len())
	sp, ok := bag.Items()[0].Span()
	require.True(t, ok)
	assert.Equal(t, "author", string(file.Slice(sp)))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refs.bib")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff@book{b,\r\n  title = {T}\r\n}\r\n@comment{jabref-meta: fileDirectory:pdfs;}\r\n"), 0o600))

	fs := source.NewFileSet()
	db, id, err := ParseFile(fs, path, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, db.Len())
	assert.NotZero(t, fs.Get(id).Flags&source.FileHadBOM)
	assert.Equal(t, dir, db.Dir())
	assert.Equal(t, []string{filepath.Join(dir, "pdfs"), dir}, db.FileDirectories())

	_, _, err = ParseFile(fs, filepath.Join(dir, "missing.bib"), Options{}, nil)
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello", "{Hello}"},
		{"", "{}"},
		{"#bourdieu#", "bourdieu"},
		{"1-4~#nov#", "{1-4~} # nov"},
		{"#pub# Paris", "pub # { Paris}"},
		{`50\# off`, `{50\# off}`},
		{"C# and F#", "{C# and F#}"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	src := `@string{pub = {Minuit}}
@article{knuth2014,
  author = {Donald Knuth},
  month = nov,
  publisher = pub # { Paris}
}
`
	db, _, bag := parse(t, src)
	require.Equal(t, 0, bag.Len())

	var sb strings.Builder
	require.NoError(t, WriteDatabase(&sb, db))
	assert.Equal(t, `@string{pub = {Minuit}}

@article{knuth2014,
  author = {Donald Knuth},
  month = nov,
  publisher = pub # { Paris}
}
`, sb.String())

	again, _, bag := parse(t, sb.String())
	require.Equal(t, 0, bag.Len())
	require.Equal(t, 1, again.Len())
	assert.True(t, db.At(0).Equal(again.At(0)))
}
