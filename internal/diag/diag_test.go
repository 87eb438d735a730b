package diag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

func TestEveryCodeHasTitleAndPrefix(t *testing.T) {
	for _, c := range AllCodes() {
		assert.NotEmpty(t, c.Title(), "code %d", c)
		assert.NotEqual(t, "E0000", c.ID(), "code %d", c)
		parsed, ok := ParseID(c.ID())
		require.True(t, ok)
		assert.Equal(t, c, parsed)
	}
}

func TestCodeIDRanges(t *testing.T) {
	assert.Equal(t, "FMT1006", PagesInvalid.ID())
	assert.Equal(t, "SEM2001", ISBNChecksum.ID())
	assert.Equal(t, "KEY3004", KeyDuplicate.ID())
	assert.Equal(t, "XRF4002", DOIDuplicate.ID())
	assert.Equal(t, "E0000", Code(9999).ID())
	assert.Equal(t, "Unknown error", Code(9999).Title())
	assert.True(t, KeyMissing.IsKeyIssue())
	assert.False(t, UnresolvedLink.IsKeyIssue())
}

func TestFixTags(t *testing.T) {
	kind, ok := PagesInvalid.Fix()
	require.True(t, ok)
	assert.Equal(t, FixNormalizePages, kind)
	assert.Equal(t, "normalize-pages", kind.String())
	assert.Equal(t, FixApplicabilityAlwaysSafe, kind.Applicability())

	_, ok = KeyDuplicate.Fix()
	assert.False(t, ok)
}

func TestMessageAccessors(t *testing.T) {
	e := entry.NewWithKey(entry.TypeArticle, "doe2020")
	m := NewDetailed(UnresolvedLink, e, entry.FieldCrossref, "smith99")

	assert.Equal(t, UnresolvedLink, m.Code())
	assert.Same(t, e, m.Entry())
	f, ok := m.Field()
	require.True(t, ok)
	assert.Equal(t, "crossref", f.Name())
	assert.Equal(t, "referenced citation key does not exist: smith99", m.Text())
	assert.Equal(t, "XRF4001 article{doe2020}.crossref: referenced citation key does not exist: smith99", m.String())

	whole := New(KeyMissing, e, entry.Field{})
	_, ok = whole.Field()
	assert.False(t, ok)
	_, ok = whole.Span()
	assert.False(t, ok)
}

func TestMessageSpanFallbacks(t *testing.T) {
	e := entry.NewWithKey(entry.TypeArticle, "k")
	e.SetSpans(source.Span{Start: 0, End: 40}, source.Span{Start: 9, End: 10})
	e.SetField(entry.FieldTitle, "x")
	e.SetFieldSpan(entry.FieldTitle, source.Span{Start: 20, End: 23})

	sp, ok := New(TitleCapitalsNotMasked, e, entry.FieldTitle).Span()
	require.True(t, ok)
	assert.Equal(t, uint32(20), sp.Start)

	sp, _ = New(KeyDuplicate, e, entry.Field{}).Span()
	assert.Equal(t, uint32(9), sp.Start)

	sp, _ = New(TypeNotInMode, e, entry.Field{}).Span()
	assert.Equal(t, uint32(0), sp.Start)
}

func TestBagLimitAndMerge(t *testing.T) {
	e := entry.New(entry.TypeMisc)
	b := NewBag(2)
	assert.True(t, b.Add(New(NotNFC, e, entry.FieldTitle)))
	assert.True(t, b.Add(New(KeyDuplicate, e, entry.Field{})))
	assert.False(t, b.Add(New(NonASCII, e, entry.FieldTitle)))
	assert.True(t, b.HasErrors())

	other := NewBag(0)
	other.Add(New(NonASCII, e, entry.FieldNote))
	b.Merge(other)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []Code{NotNFC, KeyDuplicate, NonASCII}, b.Codes())

	b.Filter(func(m Message) bool { return m.Severity() >= SevWarning })
	assert.Equal(t, 2, b.Len())
}

func TestBagDedupAndReporter(t *testing.T) {
	e := entry.New(entry.TypeMisc)
	b := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: b})
	r.Report(New(HTMLEntity, e, entry.FieldTitle))
	r.Report(New(HTMLEntity, e, entry.FieldTitle))
	r.Report(New(HTMLEntity, e, entry.FieldNote))
	assert.Equal(t, 2, b.Len())

	b.Add(New(HTMLEntity, e, entry.FieldTitle))
	b.Dedup()
	assert.Equal(t, 2, b.Len())
}

func TestFormatShortMessages(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("refs.bib", []byte("@article{doe2020,\n  pages = {7-33}\n}\n"))

	e := entry.NewWithKey(entry.TypeArticle, "doe2020")
	e.SetSpans(source.Span{File: id, Start: 0, End: 36}, source.Span{File: id, Start: 9, End: 16})
	e.SetField(entry.FieldPages, "7-33")
	e.SetFieldSpan(entry.FieldPages, source.Span{File: id, Start: 28, End: 34})

	out := FormatShortMessages([]Message{
		New(PagesInvalid, e, entry.FieldPages),
		NewAt(SynUnexpectedChar, source.Span{File: id, Start: 0, End: 1}, "'@'"),
	}, fs)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "warning FMT1006 refs.bib:2:11 doe2020.pages: should contain a valid page number range", lines[0])
	assert.Equal(t, "error SYN5001 refs.bib:1:1: unexpected character: '@'", lines[1])
}
