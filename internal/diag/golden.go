package diag

import (
	"fmt"
	"path/filepath"
	"strings"

	"bibcheck/internal/source"
)

// FormatShortMessages renders one stable line per message, in the given order:
//
//	warning FMT1006 refs.bib:3:12 doe2020.pages: should contain a valid page number range
//
// Location is omitted when a message has no span or fs is nil.
func FormatShortMessages(msgs []Message, fs *source.FileSet) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s", severityLabel(m.Severity()), m.code.ID())
		if fs != nil {
			if sp, ok := m.Span(); ok {
				if loc, ok := resolveSpan(fs, sp); ok {
					fmt.Fprintf(&b, " %s:%d:%d", loc.Path, loc.Line, loc.Column)
				}
			}
		}
		if subject := subjectOf(m); subject != "" {
			b.WriteString(" " + subject)
		}
		b.WriteString(": " + sanitizeMessage(m.Text()))
	}
	return b.String()
}

// subjectOf returns "key.field", "key" or "field" for a message.
func subjectOf(m Message) string {
	var parts []string
	if m.entry != nil {
		key, ok := m.entry.CitationKey()
		if !ok {
			key = "<" + string(m.entry.Type()) + ">"
		}
		parts = append(parts, key)
	}
	if !m.field.IsZero() {
		parts = append(parts, m.field.Name())
	}
	return strings.Join(parts, ".")
}

type resolvedSpan struct {
	Path   string
	Line   uint32
	Column uint32
}

func resolveSpan(fs *source.FileSet, span source.Span) (loc resolvedSpan, ok bool) {
	if int(span.File) >= fs.Len() {
		return resolvedSpan{}, false
	}
	file := fs.Get(span.File)
	start, _ := fs.Resolve(span)
	return resolvedSpan{
		Path:   normalizePath(file.FormatPath("relative", fs.BaseDir())),
		Line:   start.Line,
		Column: start.Col,
	}, true
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
