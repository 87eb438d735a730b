package journals

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `# full name, abbreviation, shortest unique
"Journal of Tests","J. Tests","J Test"
"Annals of Examples","Ann. Ex."
Physical Review Letters,Phys. Rev. Lett.
`

func TestReadCSV(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Abbreviation{Name: "Journal of Tests", Abbreviation: "J. Tests", ShortestUnique: "J Test"}, entries[0])
	assert.Equal(t, "Phys. Rev. Lett.", entries[2].Abbreviation)

	_, err = ReadCSV(strings.NewReader("only a name\n"))
	assert.ErrorIs(t, err, ErrBadRecord)
}

func TestListLookups(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	l := NewList()
	l.Add(entries...)

	tests := []struct {
		name        string
		known       bool
		abbreviated bool
	}{
		{"Journal of Tests", true, false},
		{"  journal   of TESTS ", true, false},
		{"J. Tests", true, true},
		{"J Tests", true, true},
		{"J Test", true, true},
		{"Ann. Ex.", true, true},
		{"Unknown Journal", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.known, l.IsKnownName(tt.name))
			assert.Equal(t, tt.abbreviated, l.IsAbbreviatedName(tt.name))
		})
	}

	a, ok := l.Lookup("Phys. Rev. Lett.")
	require.True(t, ok)
	assert.Equal(t, "Physical Review Letters", a.Name)
}

func TestAmpersandEscapes(t *testing.T) {
	l := NewList()
	l.Add(Abbreviation{Name: "Science & Society", Abbreviation: "Sci. Soc."})
	assert.True(t, l.IsKnownName(`Science \& Society`))
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journals.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	l, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())

	_, err = LoadCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestPredatoryList(t *testing.T) {
	names, err := ReadNames(strings.NewReader("# list\nPredatory Press\n\n\"Fake Journal, Inc\",https://x\nOther Venue,https://y\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Predatory Press", "Fake Journal, Inc", "Other Venue"}, names)

	p := NewPredatoryList()
	p.Add(names...)
	assert.True(t, p.IsKnownName("predatory press"))
	assert.True(t, p.IsKnownName("Fake Journal, Inc"))
	assert.False(t, p.IsKnownName("Honest Journal"))
	assert.Equal(t, 3, p.Len())
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, filepath.Join(t.TempDir(), "journals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	entries, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	n, err := st.ImportAbbreviations(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// re-import updates in place
	n, err = st.ImportAbbreviations(ctx, []Abbreviation{{Name: "Journal of Tests", Abbreviation: "J. Test."}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.ImportPredatory(ctx, []string{"Predatory Press", "predatory press", ""})
	require.NoError(t, err)

	abbrevs, predatory, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, abbrevs)
	assert.Equal(t, 1, predatory)

	l, err := st.Abbreviations(ctx)
	require.NoError(t, err)
	assert.True(t, l.IsAbbreviatedName("J. Test."))
	assert.False(t, l.IsKnownName("J. Tests"))

	p, err := st.Predatory(ctx)
	require.NoError(t, err)
	assert.True(t, p.IsKnownName("Predatory Press"))
}
