// Package latex converts the LaTeX markup commonly found in bibliography
// values into plain Unicode text.
package latex

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// accents maps single-character accent commands to combining marks.
var accents = map[byte]rune{
	'"':  '\u0308', // diaeresis
	'\'': '\u0301', // acute
	'`':  '\u0300', // grave
	'^':  '\u0302', // circumflex
	'~':  '\u0303', // tilde
	'=':  '\u0304', // macron
	'.':  '\u0307', // dot above
	'c':  '\u0327', // cedilla
	'v':  '\u030C', // caron
	'u':  '\u0306', // breve
	'H':  '\u030B', // double acute
	'k':  '\u0328', // ogonek
	'r':  '\u030A', // ring above
	'd':  '\u0323', // dot below
	'b':  '\u0331', // macron below
}

// symbols maps letter-like commands to their Unicode form.
var symbols = map[string]string{
	"ss": "ß",
	"o":  "ø",
	"O":  "Ø",
	"ae": "æ",
	"AE": "Æ",
	"oe": "œ",
	"OE": "Œ",
	"aa": "å",
	"AA": "Å",
	"l":  "ł",
	"L":  "Ł",
	"i":  "ı",
	"j":  "ȷ",
	"&":  "&",
	"%":  "%",
	"$":  "$",
	"#":  "#",
	"_":  "_",
	"{":  "{",
	"}":  "}",
}

// ToUnicode resolves accent and symbol commands, drops grouping braces and
// other unknown commands, and returns the NFC-composed result.
//
//	K{\"o}ning  -> König
//	{\c{c}}a    -> ça
func ToUnicode(s string) string {
	if !strings.ContainsAny(s, `\{}~`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '{', '}':
			i++
		case '~':
			b.WriteByte(' ')
			i++
		case '\\':
			i = writeCommand(&b, s, i+1)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return norm.NFC.String(b.String())
}

// writeCommand handles the command starting after a backslash at s[i] and
// returns the position after it.
func writeCommand(b *strings.Builder, s string, i int) int {
	if i >= len(s) {
		return i
	}
	c := s[i]
	if mark, ok := accents[c]; ok && (!isLetter(c) || !isLetter(peek(s, i+1))) {
		arg, next := accentArgument(s, i+1)
		if arg != "" {
			b.WriteString(arg[:1])
			b.WriteRune(mark)
			b.WriteString(arg[1:])
		}
		return next
	}
	if !isLetter(c) {
		if sym, ok := symbols[string(c)]; ok {
			b.WriteString(sym)
		} else if c == '\\' || c == ' ' {
			b.WriteByte(' ')
		}
		return i + 1
	}
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	name := s[i:j]
	if sym, ok := symbols[name]; ok {
		b.WriteString(sym)
	}
	for j < len(s) && s[j] == ' ' {
		j++
	}
	return j
}

// accentArgument reads "{x}", "x" or "\i"-style arguments of an accent.
func accentArgument(s string, i int) (string, int) {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	if i >= len(s) {
		return "", i
	}
	switch s[i] {
	case '{':
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			return ToUnicode(s[i+1:]), len(s)
		}
		inner := s[i+1 : i+end]
		if inner == `\i` {
			inner = "i"
		} else if inner == `\j` {
			inner = "j"
		}
		return ToUnicode(inner), i + end + 1
	case '\\':
		if strings.HasPrefix(s[i:], `\i`) {
			return "i", i + 2
		}
		if strings.HasPrefix(s[i:], `\j`) {
			return "j", i + 2
		}
		return "", i
	}
	r := []rune(s[i:])[0]
	n := len(string(r))
	return s[i : i+n], i + n
}

func peek(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func isLetter(c byte) bool {
	return c < 0x80 && unicode.IsLetter(rune(c))
}
