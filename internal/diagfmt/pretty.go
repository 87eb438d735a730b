package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"bibcheck/internal/diag"
	"bibcheck/internal/fix"
	"bibcheck/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info *color.Color
	code, gutter    *color.Color
	caret, fix      *color.Color
	added, removed  *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:     mk(color.FgRed, color.Bold),
		warn:    mk(color.FgYellow, color.Bold),
		info:    mk(color.FgCyan, color.Bold),
		code:    mk(color.Bold),
		gutter:  mk(color.FgBlue),
		caret:   mk(color.FgMagenta, color.Bold),
		fix:     mk(color.FgGreen),
		added:   mk(color.FgGreen),
		removed: mk(color.FgRed),
	}
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() в текущем порядке. Для каждого сообщения печатает
//
//	<path>:<line>:<col>: <SEV> <CODE>: <text>
//
// затем запись и поле, контекст строки с подчёркиванием ^~~~ по Span и,
// по опции, исправление с превью.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, m := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		span, hasSpan := m.Span()
		if hasSpan && fs != nil && int(span.File) < fs.Len() {
			pos, _ := fs.Resolve(span)
			fmt.Fprintf(w, "%s:%d:%d: ", opts.PathMode.format(fs.Get(span.File), fs), pos.Line, pos.Col)
		} else {
			hasSpan = false
		}
		fmt.Fprintf(w, "%s %s: %s\n",
			p.severity(m.Severity()).Sprint(m.Severity().String()),
			p.code.Sprint(m.Code().ID()),
			m.Text())
		if subject := subjectOf(m); subject != "" {
			fmt.Fprintf(w, "  %s %s\n", p.gutter.Sprint("-->"), subject)
		}
		if hasSpan {
			writeExcerpt(w, fs, span, opts, p)
		}
		if opts.ShowFixes {
			writeFix(w, fs, m, i, opts, p)
		}
	}
}

// subjectOf returns "key.field", "key" or "field"; entries without a key show their type.
func subjectOf(m diag.Message) string {
	var parts []string
	if e := m.Entry(); e != nil {
		key, ok := e.CitationKey()
		if !ok {
			key = "<" + string(e.Type()) + ">"
		}
		parts = append(parts, key)
	}
	if f, ok := m.Field(); ok {
		parts = append(parts, f.Name())
	}
	return strings.Join(parts, ".")
}

func writeExcerpt(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts, p palette) {
	file := fs.Get(span.File)
	start, end := fs.Resolve(span)
	ctx := uint32(max(opts.Context, 0))
	first := start.Line - min(ctx, start.Line-1)
	last := start.Line + ctx
	lineCount := uint32(len(file.LineIdx)) + 1 // #nosec G115 -- bounded by Add
	last = min(last, lineCount)

	gutterWidth := len(strconv.FormatUint(uint64(last), 10))
	pad := strings.Repeat(" ", gutterWidth)
	fmt.Fprintf(w, " %s %s\n", pad, p.gutter.Sprint("|"))
	for ln := first; ln <= last; ln++ {
		text := expandTabs(file.GetLine(ln))
		if opts.Width > 0 {
			text = runewidth.Truncate(text, int(opts.Width), "…")
		}
		fmt.Fprintf(w, " %*d %s %s\n", gutterWidth, ln, p.gutter.Sprint("|"), text)
		if ln != start.Line {
			continue
		}
		raw := file.GetLine(ln)
		col := min(int(start.Col)-1, len(raw))
		endCol := len(raw)
		if end.Line == start.Line {
			endCol = min(int(end.Col)-1, len(raw))
		}
		offset := runewidth.StringWidth(expandTabs(raw[:col]))
		width := max(runewidth.StringWidth(expandTabs(raw[col:max(endCol, col)])), 1)
		underline := "^" + strings.Repeat("~", width-1)
		fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), strings.Repeat(" ", offset), p.caret.Sprint(underline))
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func writeFix(w io.Writer, fs *source.FileSet, m diag.Message, index int, opts PrettyOpts, p palette) {
	kind, ok := m.Code().Fix()
	if !ok {
		return
	}
	f, err := fix.Suggest(fs, m, index, opts.Fixes)
	if err != nil {
		fmt.Fprintf(w, "  %s %s: %v\n", p.fix.Sprint("fix:"), kind, err)
		return
	}
	fmt.Fprintf(w, "  %s %s (%s) id=%s", p.fix.Sprint("fix #1:"), f.Title, f.Applicability, f.ID)
	for _, edit := range f.Edits {
		fmt.Fprintf(w, " apply=%q", edit.NewText)
	}
	if len(f.Edits) == 0 {
		fmt.Fprintf(w, " value=%q", f.NewValue)
	}
	fmt.Fprintln(w)

	if !opts.ShowPreview {
		return
	}
	for _, edit := range f.Edits {
		preview, err := buildFixEditPreview(fs, edit)
		if err != nil {
			continue
		}
		fmt.Fprintln(w, "    preview:")
		for _, line := range preview.before {
			fmt.Fprintf(w, "      %s\n", p.removed.Sprint("- "+line))
		}
		for _, line := range preview.after {
			fmt.Fprintf(w, "      %s\n", p.added.Sprint("+ "+line))
		}
	}
}

// Counts tallies messages by severity.
type Counts struct {
	Errors, Warnings, Infos int
}

// Count adds up the messages of every bag.
func Count(bags ...*diag.Bag) Counts {
	var c Counts
	for _, bag := range bags {
		if bag == nil {
			continue
		}
		for _, m := range bag.Items() {
			switch m.Severity() {
			case diag.SevError:
				c.Errors++
			case diag.SevWarning:
				c.Warnings++
			default:
				c.Infos++
			}
		}
	}
	return c
}

func (c Counts) String() string {
	return fmt.Sprintf("%s, %s, %s",
		plural(c.Errors, "error"), plural(c.Warnings, "warning"), plural(c.Infos, "info"))
}

func plural(n int, word string) string {
	if n == 1 || word == "info" {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// Summary prints the totals line shown after pretty output.
func Summary(w io.Writer, files int, c Counts, colored bool) {
	p := newPalette(colored)
	label := p.info
	switch {
	case c.Errors > 0:
		label = p.err
	case c.Warnings > 0:
		label = p.warn
	}
	fmt.Fprintf(w, "%s %s in %s\n", label.Sprint("checked:"), c, plural(files, "file"))
}
