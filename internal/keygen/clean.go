package keygen

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bibcheck/internal/latex"
)

// DefaultUnwantedCharacters are removed from generated keys unless configured otherwise.
const DefaultUnwantedCharacters = "-`ʹ:!;?^$"

// disallowed characters never survive key cleaning.
const disallowed = "{}(),\\\"#~'=%"

// transliterations expand letters whose plain base letter would lose information.
var transliterations = strings.NewReplacer(
	"Ä", "Ae", "ä", "ae",
	"Ö", "Oe", "ö", "oe",
	"Ü", "Ue", "ü", "ue",
	"ß", "ss",
	"Å", "Aa", "å", "aa",
	"Æ", "Ae", "æ", "ae",
	"Ø", "Oe", "ø", "oe",
	"Œ", "Oe", "œ", "oe",
	"Ł", "L", "ł", "l",
	"ı", "i",
)

// stripMarks decomposes and drops combining marks: "é" -> "e".
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ToASCII resolves LaTeX accents and transliterates the result to ASCII letters
// where a mapping exists. Characters without one are kept.
func ToASCII(s string) string {
	s = latex.ToUnicode(s)
	s = norm.NFC.String(s)
	s = transliterations.Replace(s)
	return stripMarks(s)
}

// CleanKey removes whitespace, disallowed characters and unwanted characters
// from key and transliterates non-ASCII letters.
func CleanKey(key, unwanted string) string {
	key = ToASCII(key)
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case strings.ContainsRune(disallowed, r):
			return -1
		case strings.ContainsRune(unwanted, r):
			return -1
		}
		return r
	}, key)
}
