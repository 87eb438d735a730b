package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibcheck/internal/check"
	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

func newEntry(t entry.Type, key string, fields map[string]string) *entry.Entry {
	e := entry.New(t)
	if key != "" {
		e.SetCitationKey(key)
	}
	for name, v := range fields {
		e.SetField(entry.FieldFor(name), v)
	}
	return e
}

func testOptions() Options {
	deps := check.Deps{FileExists: func(string) bool { return true }}
	return Options{Suite: check.NewSuite(check.DefaultPreferences(), deps)}
}

func messageStrings(msgs []diag.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.String()
	}
	return out
}

func sampleDatabase(n int) *entry.Database {
	db := entry.NewDatabase(entry.ModeBibTeX)
	for i := range n {
		fields := map[string]string{"title": "A {Title}", "pages": "1-2"}
		if i%3 == 0 {
			fields["isbn"] = "0-306-40615-3"
		}
		key := fmt.Sprintf("key%d", i%7)
		db.Insert(newEntry(entry.TypeArticle, key, fields))
	}
	return db
}

func TestPassPhases(t *testing.T) {
	db := sampleDatabase(3)
	p := NewPass(db, testOptions())
	assert.Equal(t, PhaseIdle, p.Phase())
	assert.Equal(t, "idle", p.Phase().String())

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, p.Phase())
	assert.Equal(t, p.ID(), res.PassID)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, ErrPassStarted)
}

func TestParallelKeepsEntryOrder(t *testing.T) {
	db := sampleDatabase(60)
	opts := testOptions()
	want := opts.Suite.Prepare(db).CheckAll(db)
	require.NotEmpty(t, want)

	for _, jobs := range []int{1, 4, 16} {
		t.Run(fmt.Sprint(jobs), func(t *testing.T) {
			o := opts
			o.Jobs = jobs
			res, err := CheckDatabase(context.Background(), db, o)
			require.NoError(t, err)
			require.Len(t, res.PerEntry, db.Len())
			assert.Equal(t, messageStrings(want), messageStrings(res.Messages()))
			assert.Equal(t, messageStrings(want), messageStrings(res.Bag.Items()))
			for i, msgs := range res.PerEntry {
				for _, m := range msgs {
					assert.Same(t, db.At(i), m.Entry())
				}
			}
		})
	}
}

func TestCancelledPassDiscardsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPass(sampleDatabase(10), testOptions())
	res, err := p.Run(ctx)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, PhaseDone, p.Phase())
}

func TestMaxDiagnostics(t *testing.T) {
	opts := testOptions()
	opts.MaxDiagnostics = 2
	res, err := CheckDatabase(context.Background(), sampleDatabase(20), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Bag.Len())
	assert.Greater(t, len(res.Messages()), 2)
}

func TestCheckEntry(t *testing.T) {
	a := newEntry(entry.TypeArticle, "dup", map[string]string{"crossref": "missing"})
	b := newEntry(entry.TypeArticle, "dup", nil)
	db := entry.NewDatabase(entry.ModeBibLaTeX)
	db.Insert(a, b)

	msgs, err := CheckEntry(context.Background(), db, a, testOptions())
	require.NoError(t, err)
	var codes []diag.Code
	for _, m := range msgs {
		codes = append(codes, m.Code())
	}
	assert.Contains(t, codes, diag.KeyDuplicate)
	assert.Contains(t, codes, diag.UnresolvedLink)
}

func TestEmptyDatabase(t *testing.T) {
	res, err := CheckDatabase(context.Background(), entry.NewDatabase(entry.ModeBibTeX), Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Messages())
	assert.Equal(t, 0, res.Bag.Len())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

const goodBib = "@article{Knuth2014,\n  author = {Donald Knuth},\n  title = {Literate {Programming}},\n  year = {2014}\n}\n"
const badBib = "@article{doe,\n  pages = {1-2},\n  title = {x}\n}\n@article{doe, title = {y}\n"

func TestCheckDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.bib"), badBib)
	writeFile(t, filepath.Join(dir, "a.bib"), goodBib)
	writeFile(t, filepath.Join(dir, "sub", "c.BIB"), goodBib)
	writeFile(t, filepath.Join(dir, "notes.txt"), "@article{x}")

	var (
		mu     sync.Mutex
		events []Event
	)
	opts := FileOptions{Options: testOptions(), Progress: SinkFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})}
	fs, results, err := CheckDir(context.Background(), dir, opts)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, filepath.Join(dir, "a.bib"), results[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.bib"), results[1].Path)
	assert.Equal(t, filepath.Join(dir, "sub", "c.BIB"), results[2].Path)
	assert.Equal(t, 3, fs.Len())

	assert.Equal(t, 0, results[0].Bag.Len(), messageStrings(results[0].Bag.Items()))

	bad := results[1]
	require.NotNil(t, bad.DB)
	assert.Equal(t, 1, bad.DB.Len())
	codes := bad.Bag.Codes()
	require.NotEmpty(t, codes)
	assert.Equal(t, diag.SynUnterminatedEntry, codes[0], "syntax messages come first")
	assert.Contains(t, codes, diag.PagesInvalid)

	done := 0
	for _, e := range events {
		if e.Stage == StageCheck && e.Status == StatusDone {
			done++
		}
	}
	assert.Equal(t, 3, done)
}

func TestCheckFilesLoadError(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.bib")
	writeFile(t, good, goodBib)

	_, results, err := CheckFiles(context.Background(), []string{filepath.Join(dir, "missing.bib"), good}, FileOptions{Options: testOptions()})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Nil(t, results[0].DB)
	assert.Equal(t, []diag.Code{diag.IOLoadFileError}, results[0].Bag.Codes())
	assert.NotNil(t, results[1].DB)
}

func TestCheckFileTimings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bib")
	writeFile(t, path, goodBib)

	res, err := CheckFile(context.Background(), source.NewFileSet(), path, FileOptions{Options: testOptions(), Timings: true})
	require.NoError(t, err)
	require.NotNil(t, res.Timing)
	names := make([]string, 0, len(res.Timing.Phases))
	for _, p := range res.Timing.Phases {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"parse", "index", "check"}, names)
	assert.Equal(t, []diag.Code{diag.ObsTimings}, res.Bag.Codes())
}

func TestDiskCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.bib")
	writeFile(t, path, badBib)
	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	opts := FileOptions{Options: testOptions(), Cache: cache, Fingerprint: "v1"}
	first, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, messageStrings(first.Bag.Items()), messageStrings(second.Bag.Items()))
	for _, m := range second.Bag.Items() {
		if m.Entry() != nil {
			assert.GreaterOrEqual(t, second.DB.IndexOf(m.Entry()), 0)
		}
	}

	opts.Fingerprint = "v2"
	third, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.False(t, third.Cached, "a new fingerprint misses")

	require.NoError(t, cache.DropAll())
	fourth, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.False(t, fourth.Cached)
}

func TestDiskCacheMissesWhenLinkedFileChanges(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "paper.pdf")
	path := filepath.Join(dir, "refs.bib")
	writeFile(t, pdf, "%PDF-1.4")
	writeFile(t, path, "@misc{doe,\n  file = {:paper.pdf:PDF}\n}\n")
	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	opts := FileOptions{
		Options:     Options{Suite: check.NewSuite(check.DefaultPreferences(), check.Deps{})},
		Cache:       cache,
		Fingerprint: "v1",
	}
	missing := func(res *FileResult) int {
		n := 0
		for _, m := range res.Bag.Items() {
			if m.Code() == diag.LinkedFileMissing {
				n++
			}
		}
		return n
	}

	first, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.Zero(t, missing(first))

	second, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)

	require.NoError(t, os.Remove(pdf))
	third, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 1, missing(third))

	writeFile(t, pdf, "%PDF-1.4")
	fourth, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.True(t, fourth.Cached, "the first result is reused once the file is back")
	assert.Zero(t, missing(fourth))
}

func TestCacheKeyDependsOnInputs(t *testing.T) {
	var a, b [32]byte
	b[0] = 1
	assert.NotEqual(t, CacheKey(a, "x"), CacheKey(b, "x"))
	assert.NotEqual(t, CacheKey(a, "x"), CacheKey(a, "y"))
	assert.Equal(t, CacheKey(a, "x"), CacheKey(a, "x"))
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{File: "a.bib", Status: StatusDone})
	assert.Equal(t, "a.bib", (<-ch).File)
	ChannelSink{}.OnEvent(Event{})
}
