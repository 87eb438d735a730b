package author

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Author
	}{
		{"first_last", "Donald E. Knuth", Author{First: "Donald E.", Last: "Knuth"}},
		{"last_first", "Knuth, Donald E.", Author{First: "Donald E.", Last: "Knuth"}},
		{"von_first_last", "Ludwig van Beethoven", Author{First: "Ludwig", Von: "van", Last: "Beethoven"}},
		{"von_last_first", "van Beethoven, Ludwig", Author{First: "Ludwig", Von: "van", Last: "Beethoven"}},
		{"jr", "King, Jr, Martin Luther", Author{First: "Martin Luther", Last: "King", Jr: "Jr"}},
		{"single", "Knuth", Author{Last: "Knuth"}},
		{"braced", "{Barnes and Noble}", Author{Last: "{Barnes and Noble}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Parse(tt.input)
			require.Equal(t, 1, l.Len())
			assert.Equal(t, tt.want, l.Authors[0])
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		input     string
		lastFirst string
		firstLast string
	}{
		{
			"Donald E. Knuth and Kurt Cobain and A. Einstein",
			"Knuth, Donald E. and Cobain, Kurt and Einstein, A.",
			"Donald E. Knuth and Kurt Cobain and A. Einstein",
		},
		{
			"Knuth, Donald E. and Kurt Cobain",
			"Knuth, Donald E. and Cobain, Kurt",
			"Donald E. Knuth and Kurt Cobain",
		},
		{
			"Doe, John and others",
			"Doe, John and others",
			"John Doe and others",
		},
	}
	for _, tt := range tests {
		l := Parse(tt.input)
		assert.Equal(t, tt.lastFirst, l.AsLastFirst())
		assert.Equal(t, tt.firstLast, l.AsFirstLast())
	}
}

func TestSplitAndRespectsBraces(t *testing.T) {
	l := Parse("{Simon and Schuster} and Jane Roe")
	require.Equal(t, 2, l.Len())
	assert.Equal(t, "{Simon and Schuster}", l.Authors[0].Last)
	assert.Equal(t, "Roe", l.Authors[1].Last)
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "DE", Author{First: "Donald E."}.Initials())
	assert.Equal(t, "JP", Author{First: "Jean-Paul"}.Initials())
	assert.Equal(t, "", Author{}.Initials())
}
