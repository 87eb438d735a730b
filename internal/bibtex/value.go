package bibtex

import (
	"path/filepath"
	"strings"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

// readValue reads a '#'-concatenation of braced, quoted, numeric and macro
// pieces. Macro references are kept in the value as "#name#".
func (r *Reader) readValue() (string, source.Span, bool) {
	start := r.cur.Off
	end := start
	var b strings.Builder
	for {
		pieceStart := r.cur.Off
		switch c := r.cur.Peek(); {
		case c == '{' || c == '"':
			text, ok := r.readDelimited(c)
			if !ok {
				r.report(diag.SynUnterminatedValue, source.Span{File: r.file.ID, Start: pieceStart, End: pieceStart + 1}, "")
				r.recover(pieceStart)
				return "", source.Span{}, false
			}
			b.WriteString(text)
		case isDigit(c):
			for !r.cur.EOF() && isDigit(r.cur.Peek()) {
				r.cur.Bump()
			}
			b.WriteString(r.cur.Text(pieceStart))
		case isNameByte(c):
			name := r.scanName()
			if !months[strings.ToLower(name)] && !r.macros[strings.ToLower(name)] {
				r.report(diag.SynUndefinedMacro, r.cur.SpanFrom(pieceStart), name)
			}
			b.WriteString("#" + name + "#")
		default:
			if r.cur.EOF() {
				r.report(diag.SynUnterminatedValue, r.cur.SpanFrom(start), "")
				return "", source.Span{}, false
			}
			r.report(diag.SynUnexpectedChar, source.Span{File: r.file.ID, Start: pieceStart, End: pieceStart + 1}, "expected a value")
			r.recover(pieceStart)
			return "", source.Span{}, false
		}
		end = r.cur.Off

		r.cur.SkipSpace()
		if !r.cur.Eat('#') {
			break
		}
		r.cur.SkipSpace()
	}
	return b.String(), source.Span{File: r.file.ID, Start: start, End: end}, true
}

// readDelimited reads "{...}" or "\"...\"" and returns the inner text.
// Inside quotes, a '"' only terminates at brace depth zero.
func (r *Reader) readDelimited(open byte) (string, bool) {
	r.cur.Bump()
	from := r.cur.Off
	depth := 0
	for !r.cur.EOF() {
		b := r.cur.Bump()
		switch {
		case b == '\\':
			r.cur.Bump()
		case b == '{':
			depth++
		case b == '}':
			if depth == 0 {
				if open == '{' {
					return string(r.file.Content[from : r.cur.Off-1]), true
				}
				// unbalanced closing brace inside quotes
				return "", false
			}
			depth--
		case b == '"' && open == '"' && depth == 0:
			return string(r.file.Content[from : r.cur.Off-1]), true
		}
	}
	return "", false
}

const metaPrefix = "jabref-meta:"

// applyMeta reads a "jabref-meta: key:value;" comment.
func (r *Reader) applyMeta(text string) {
	rest, ok := strings.CutPrefix(text, metaPrefix)
	if !ok {
		return
	}
	key, value, ok := strings.Cut(strings.TrimSpace(rest), ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(value, ";")
	value = strings.ReplaceAll(value, `\\`, `\`)

	switch key {
	case "databaseType":
		if m, err := entry.ParseMode(value); err == nil {
			r.db.SetMode(m)
		}
	case "fileDirectory":
		if value == "" {
			return
		}
		dir := value
		if !filepath.IsAbs(dir) && r.db.Dir() != "" {
			dir = filepath.Join(r.db.Dir(), dir)
		}
		r.db.AddFileDirectory(dir)
	}
}

// FormatValue renders a stored field value as BibTeX source: literal text
// in braces, "#name#" macro references bare, joined with " # ".
func FormatValue(value string) string {
	parts := SplitMacros(value)
	if len(parts) == 0 {
		return "{}"
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Macro {
			out = append(out, p.Text)
		} else {
			out = append(out, "{"+p.Text+"}")
		}
	}
	return strings.Join(out, " # ")
}

// Piece is a literal run or a macro reference of a stored value.
type Piece struct {
	Text  string
	Macro bool
}

// SplitMacros splits value at "#name#" references. Escaped "\#" and a '#'
// without a closing partner stay literal.
func SplitMacros(value string) []Piece {
	var out []Piece
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, Piece{Text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\\' && i+1 < len(value) {
			lit.WriteByte(c)
			lit.WriteByte(value[i+1])
			i++
			continue
		}
		if c != '#' {
			lit.WriteByte(c)
			continue
		}
		end := strings.IndexByte(value[i+1:], '#')
		if end <= 0 || !isMacroName(value[i+1:i+1+end]) {
			lit.WriteByte(c)
			continue
		}
		flush()
		out = append(out, Piece{Text: value[i+1 : i+1+end], Macro: true})
		i += end + 1
	}
	flush()
	return out
}

func isMacroName(s string) bool {
	if s == "" || isDigit(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}
