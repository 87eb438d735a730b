// Package author parses and serializes BibTeX person-name lists
// ("Last, First and First von Last and ...").
package author

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Author is one parsed person name.
type Author struct {
	First string
	Von   string
	Last  string
	Jr    string
}

// LastFirst renders "von Last, Jr, First".
func (a Author) LastFirst() string {
	var b strings.Builder
	b.WriteString(a.LastWithVon())
	if a.Jr != "" {
		b.WriteString(", " + a.Jr)
	}
	if a.First != "" {
		b.WriteString(", " + a.First)
	}
	return b.String()
}

// FirstLast renders "First von Last, Jr".
func (a Author) FirstLast() string {
	parts := make([]string, 0, 3)
	if a.First != "" {
		parts = append(parts, a.First)
	}
	if a.Von != "" {
		parts = append(parts, a.Von)
	}
	if a.Last != "" {
		parts = append(parts, a.Last)
	}
	s := strings.Join(parts, " ")
	if a.Jr != "" {
		s += ", " + a.Jr
	}
	return s
}

// LastWithVon renders "von Last".
func (a Author) LastWithVon() string {
	if a.Von == "" {
		return a.Last
	}
	return a.Von + " " + a.Last
}

// Initials returns the first letter of every first-name token, e.g. "DE" for "Donald E.".
func (a Author) Initials() string {
	var b strings.Builder
	for _, tok := range strings.FieldsFunc(a.First, func(r rune) bool { return r == ' ' || r == '-' || r == '~' }) {
		if r, ok := firstLetter(tok); ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// List is an ordered name list. Others marks a trailing "and others".
type List struct {
	Authors []Author
	Others  bool
}

func (l List) Len() int { return len(l.Authors) }

// AsLastFirst joins every name in "Last, First" form with " and ".
func (l List) AsLastFirst() string {
	return l.join(Author.LastFirst)
}

// AsFirstLast joins every name in "First Last" form with " and ".
func (l List) AsFirstLast() string {
	return l.join(Author.FirstLast)
}

func (l List) join(render func(Author) string) string {
	parts := make([]string, 0, len(l.Authors)+1)
	for _, a := range l.Authors {
		parts = append(parts, render(a))
	}
	if l.Others {
		parts = append(parts, "others")
	}
	return strings.Join(parts, " and ")
}

// Parse splits value on top-level " and " and parses every name.
func Parse(value string) List {
	var l List
	for _, raw := range splitAnd(value) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.EqualFold(raw, "others") {
			l.Others = true
			continue
		}
		l.Authors = append(l.Authors, parseName(raw))
	}
	return l
}

// splitAnd splits on the word "and" surrounded by whitespace at brace depth 0.
func splitAnd(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ' ', '\t', '\n':
			if depth != 0 || i+4 >= len(s) {
				continue
			}
			if strings.EqualFold(s[i+1:i+4], "and") && isSpace(s[i+4]) {
				out = append(out, s[start:i])
				start = i + 5
				i += 4
			}
		}
	}
	return append(out, s[start:])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}

// parseName handles "First von Last", "von Last, First" and "von Last, Jr, First".
func parseName(s string) Author {
	parts := splitTopLevel(s, ',')
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 1:
		return parseFirstVonLast(tokens(parts[0]))
	case 2:
		von, last := splitVonLast(tokens(parts[0]))
		return Author{First: strings.Join(tokens(parts[1]), " "), Von: von, Last: last}
	default:
		von, last := splitVonLast(tokens(parts[0]))
		return Author{
			First: strings.Join(tokens(strings.Join(parts[2:], ", ")), " "),
			Von:   von,
			Last:  last,
			Jr:    strings.Join(tokens(parts[1]), " "),
		}
	}
}

func parseFirstVonLast(toks []string) Author {
	if len(toks) == 0 {
		return Author{}
	}
	if len(toks) == 1 {
		return Author{Last: toks[0]}
	}
	// von starts at the first lower-case token that is not the last one
	vonStart, vonEnd := -1, -1
	for i := 0; i < len(toks)-1; i++ {
		if isLowerToken(toks[i]) {
			if vonStart < 0 {
				vonStart = i
			}
			vonEnd = i
		}
	}
	if vonStart < 0 {
		return Author{
			First: strings.Join(toks[:len(toks)-1], " "),
			Last:  toks[len(toks)-1],
		}
	}
	return Author{
		First: strings.Join(toks[:vonStart], " "),
		Von:   strings.Join(toks[vonStart:vonEnd+1], " "),
		Last:  strings.Join(toks[vonEnd+1:], " "),
	}
}

// splitVonLast splits "von Last" where von is the leading run of lower-case tokens.
func splitVonLast(toks []string) (von, last string) {
	i := 0
	for i < len(toks)-1 && isLowerToken(toks[i]) {
		i++
	}
	return strings.Join(toks[:i], " "), strings.Join(toks[i:], " ")
}

// tokens splits on whitespace at brace depth 0.
func tokens(s string) []string {
	var (
		out   []string
		depth int
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '{':
			depth++
			cur.WriteRune(r)
		case r == '}':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case depth == 0 && (unicode.IsSpace(r) || r == '~'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func splitTopLevel(s string, sep byte) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// isLowerToken reports whether the first letter at brace depth 0 is lower case.
// Tokens opening with a brace group count as upper case.
func isLowerToken(tok string) bool {
	if strings.HasPrefix(tok, "{") {
		return false
	}
	for _, r := range tok {
		if unicode.IsLetter(r) {
			return unicode.IsLower(r)
		}
		if r == '{' {
			return false
		}
	}
	return false
}

func firstLetter(tok string) (rune, bool) {
	for len(tok) > 0 {
		r, size := utf8.DecodeRuneInString(tok)
		if unicode.IsLetter(r) {
			return r, true
		}
		tok = tok[size:]
	}
	return 0, false
}
