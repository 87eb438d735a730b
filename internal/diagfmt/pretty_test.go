package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"bibcheck/internal/bibtex"
	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

const sampleBib = "@article{doe,\n  pages = {1-2},\n  title = {x}\n}\n"

// sample возвращает FileSet с одним файлом и bag с сообщением о pages
func sample(t *testing.T, path string) (*source.FileSet, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual(path, []byte(sampleBib))
	db := bibtex.Parse(fs.Get(id), bibtex.Options{}, nil)
	if db.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", db.Len())
	}
	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.PagesInvalid, db.At(0), entry.FieldFor("pages")))
	return fs, bag
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("/home/user/project/refs/main.bib", []byte("@article{x, title = {a}}}\n"))
	fs.SetBaseDir("/home/user/project")

	bag := diag.NewBag(10)
	bag.Add(diag.NewAt(diag.SynUnexpectedChar, source.Span{File: fileID, Start: 24, End: 25}, "stray brace"))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/refs/main.bib:1:25"},
		{"Relative path", PathModeRelative, "refs/main.bib:1:25"},
		{"Basename only", PathModeBasename, "main.bib:1:25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: tt.mode})
			output := buf.String()

			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR") {
				t.Error("Expected ERROR in output")
			}
			if !strings.Contains(output, diag.SynUnexpectedChar.ID()) {
				t.Errorf("Expected %s code in output", diag.SynUnexpectedChar.ID())
			}
			if !strings.Contains(output, "unexpected character: stray brace") {
				t.Error("Expected message text in output")
			}
		})
	}
}

func TestParsePathMode(t *testing.T) {
	for in, want := range map[string]PathMode{"": PathModeAuto, "relative": PathModeRelative, "basename": PathModeBasename} {
		got, ok := ParsePathMode(in)
		if !ok || got != want {
			t.Errorf("ParsePathMode(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParsePathMode("nope"); ok {
		t.Error("expected unknown mode to be rejected")
	}
}

func TestPrettyExcerpt(t *testing.T) {
	fs, bag := sample(t, "refs.bib")

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename})
	output := buf.String()

	for _, want := range []string{
		"refs.bib:2:11: WARNING " + diag.PagesInvalid.ID() + ": should contain a valid page number range",
		"--> doe.pages",
		" 1 | @article{doe,",
		" 2 |   pages = {1-2},",
		" 3 |   title = {x}",
		"   |           ^~~~~\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Error("expected no escape sequences without color")
	}

	buf.Reset()
	Pretty(&buf, bag, fs, PrettyOpts{Color: true, PathMode: PathModeBasename})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("expected escape sequences with color")
	}
}

func TestPrettyWithoutLocation(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.NewGlobal(diag.IOLoadFileError, "x.bib: no such file"))

	var buf bytes.Buffer
	Pretty(&buf, bag, nil, PrettyOpts{})
	want := "ERROR " + diag.IOLoadFileError.ID() + ": I/O load file error: x.bib: no such file\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestPrettyFixPreview(t *testing.T) {
	fs, bag := sample(t, "refs.bib")

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowFixes: true, ShowPreview: true})
	output := buf.String()

	if !strings.Contains(output, "fix #1: use -- in page ranges (always-safe) id="+diag.PagesInvalid.ID()+"-0-24") {
		t.Fatalf("expected fix entry, got:\n%s", output)
	}
	if !strings.Contains(output, `apply="{1--2}"`) {
		t.Fatalf("expected fix edit apply preview, got:\n%s", output)
	}
	if !strings.Contains(output, "preview:") {
		t.Fatalf("expected preview header in output, got:\n%s", output)
	}
	if !strings.Contains(output, "-   pages = {1-2},") {
		t.Fatalf("expected before line in preview, got:\n%s", output)
	}
	if !strings.Contains(output, "+   pages = {1--2},") {
		t.Fatalf("expected after line in preview, got:\n%s", output)
	}
}

func TestCountsAndSummary(t *testing.T) {
	bag := diag.NewBag(0)
	bag.Add(diag.NewGlobal(diag.IOLoadFileError, ""))
	bag.Add(diag.NewGlobal(diag.ObsTimings, ""))
	other := diag.NewBag(0)
	other.Add(diag.NewGlobal(diag.ObsTimings, ""))

	c := Count(bag, nil, other)
	if c != (Counts{Errors: 1, Infos: 2}) {
		t.Fatalf("unexpected counts %+v", c)
	}

	var buf bytes.Buffer
	Summary(&buf, 2, c, false)
	if got := buf.String(); got != "checked: 1 error, 0 warnings, 2 info in 2 files\n" {
		t.Fatalf("unexpected summary %q", got)
	}
}
