// Package bibtex reads .bib files into an entry.Database, recording byte
// spans for every entry, key and field value so that diagnostics can point
// into the source and fixes can be written back as edits.
package bibtex

import (
	"fmt"
	"strings"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

// Options control how a file is read.
type Options struct {
	// Mode is used unless the file declares its own with a jabref-meta comment.
	Mode entry.Mode
}

// months are predefined by every BibTeX style.
var months = map[string]bool{
	"jan": true, "feb": true, "mar": true, "apr": true, "may": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "oct": true, "nov": true, "dec": true,
}

// Reader parses one file. Use Parse unless you need access to the reader state.
type Reader struct {
	file   *source.File
	cur    Cursor
	opts   Options
	rep    diag.Reporter
	db     *entry.Database
	macros map[string]bool // lower-cased names
}

// Parse reads every entry in file. Syntax problems are reported as SYN
// diagnostics; a broken entry is dropped and reading resumes at the next '@'.
func Parse(file *source.File, opts Options, rep diag.Reporter) *entry.Database {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	r := &Reader{
		file:   file,
		cur:    NewCursor(file),
		opts:   opts,
		rep:    rep,
		db:     entry.NewDatabase(opts.Mode),
		macros: make(map[string]bool),
	}
	if file.Flags&source.FileVirtual == 0 {
		r.db.SetPath(file.Path)
	}
	r.run()
	return r.db
}

// ParseFile loads path into fs and parses it.
func ParseFile(fs *source.FileSet, path string, opts Options, rep diag.Reporter) (*entry.Database, source.FileID, error) {
	id, err := fs.Load(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return Parse(fs.Get(id), opts, rep), id, nil
}

func (r *Reader) report(code diag.Code, span source.Span, detail string) {
	r.rep.Report(diag.NewAt(code, span, detail))
}

func (r *Reader) run() {
	for r.skipToAt() {
		start := r.cur.Off
		r.cur.Bump()
		r.cur.SkipSpace()
		kind := r.scanName()
		if kind == "" {
			r.report(diag.SynUnexpectedChar, r.cur.SpanFrom(start), "'@' is not followed by an entry type")
			continue
		}
		switch strings.ToLower(kind) {
		case "comment":
			r.readComment()
		case "string":
			r.readString(start)
		case "preamble":
			r.readPreamble(start)
		default:
			r.readEntry(start, kind)
		}
	}
}

// skipToAt moves to the next '@'. Text between entries is ignored.
func (r *Reader) skipToAt() bool {
	for !r.cur.EOF() {
		if r.cur.Peek() == '@' {
			return true
		}
		r.cur.Bump()
	}
	return false
}

// recover skips the rest of a broken entry: it stops at from when that is
// an '@', else at the next '@' that starts a line, or at EOF.
func (r *Reader) recover(from uint32) {
	r.cur.Off = from
	lineStart := r.cur.Peek() == '@'
	for !r.cur.EOF() {
		b := r.cur.Peek()
		switch {
		case b == '\n':
			lineStart = true
		case b == '@' && lineStart:
			return
		case !isSpace(b):
			lineStart = false
		}
		r.cur.Bump()
	}
}

func (r *Reader) scanName() string {
	start := r.cur.Off
	for !r.cur.EOF() && isNameByte(r.cur.Peek()) {
		r.cur.Bump()
	}
	return r.cur.Text(start)
}

// openDelimiter consumes '{' or '(' and returns the matching closer.
func (r *Reader) openDelimiter(start uint32) (byte, bool) {
	r.cur.SkipSpace()
	switch r.cur.Peek() {
	case '{':
		r.cur.Bump()
		return '}', true
	case '(':
		r.cur.Bump()
		return ')', true
	}
	r.report(diag.SynUnexpectedChar, r.cur.SpanFrom(start), "expected '{' or '('")
	r.recover(r.cur.Off)
	return 0, false
}

func (r *Reader) readEntry(start uint32, kind string) {
	closer, ok := r.openDelimiter(start)
	if !ok {
		return
	}
	e := entry.New(entry.NewType(kind))

	r.cur.SkipSpace()
	keyStart := r.cur.Off
	for !r.cur.EOF() && isKeyByte(r.cur.Peek(), closer) {
		r.cur.Bump()
	}
	key := r.cur.Text(keyStart)
	keySpan := r.cur.SpanFrom(keyStart)
	r.cur.SkipSpace()
	switch r.cur.Peek() {
	case ',':
		r.cur.Bump()
	case closer:
	case '=':
		// "@article{author = ...}": no key at all
		r.cur.Off = keyStart
		key = ""
		keySpan = source.Span{File: r.file.ID, Start: keyStart, End: keyStart}
		r.report(diag.SynMissingKey, keySpan, "")
	default:
		if r.cur.EOF() {
			r.report(diag.SynUnterminatedEntry, r.cur.SpanFrom(start), "")
			return
		}
		r.report(diag.SynUnexpectedChar, source.Span{File: r.file.ID, Start: r.cur.Off, End: r.cur.Off + 1}, "expected ',' after the citation key")
		r.recover(r.cur.Off)
		return
	}
	if key != "" {
		e.SetCitationKey(key)
	}

	seen := make(map[string]bool)
	for {
		r.cur.SkipSpace()
		if r.cur.EOF() {
			r.report(diag.SynUnterminatedEntry, r.cur.SpanFrom(start), "")
			return
		}
		if r.cur.Eat(closer) {
			break
		}
		if !r.readField(e, closer, seen) {
			return
		}
	}

	e.SetSpans(r.cur.SpanFrom(start), keySpan)
	r.db.Insert(e)
}

// readField reads "name = value" and the separator after it.
func (r *Reader) readField(e *entry.Entry, closer byte, seen map[string]bool) bool {
	nameStart := r.cur.Off
	name := r.scanName()
	if name == "" {
		r.report(diag.SynExpectedFieldName, source.Span{File: r.file.ID, Start: nameStart, End: nameStart + 1}, "")
		r.recover(nameStart)
		return false
	}
	nameSpan := r.cur.SpanFrom(nameStart)
	r.cur.SkipSpace()
	if !r.cur.Eat('=') {
		r.report(diag.SynExpectedEquals, nameSpan, name)
		r.recover(r.cur.Off)
		return false
	}
	r.cur.SkipSpace()
	value, valueSpan, ok := r.readValue()
	if !ok {
		return false
	}

	r.cur.SkipSpace()
	switch {
	case r.cur.Eat(','):
	case r.cur.Peek() == closer:
	case r.cur.EOF():
		r.report(diag.SynUnterminatedEntry, nameSpan, "")
		return false
	default:
		r.report(diag.SynUnexpectedChar, source.Span{File: r.file.ID, Start: r.cur.Off, End: r.cur.Off + 1}, "expected ',' or the end of the entry")
		r.recover(r.cur.Off)
		return false
	}

	f := entry.FieldFor(name)
	if !seen[f.Name()] {
		seen[f.Name()] = true
		e.SetField(f, value)
		e.SetFieldSpan(f, valueSpan)
		return true
	}
	prev, _ := e.Field(f)
	switch {
	case f.Has(entry.PropPersonNames):
		e.SetField(f, prev+" and "+value)
	case f == entry.FieldKeywords:
		e.SetField(f, prev+", "+value)
	default:
		r.report(diag.SynDuplicateField, nameSpan, f.Name())
	}
	return true
}

// readString reads "@string{name = value}" and records the macro.
func (r *Reader) readString(start uint32) {
	closer, ok := r.openDelimiter(start)
	if !ok {
		return
	}
	r.cur.SkipSpace()
	nameStart := r.cur.Off
	name := r.scanName()
	if name == "" {
		r.report(diag.SynExpectedFieldName, r.cur.SpanFrom(start), "@string needs a name")
		r.recover(r.cur.Off)
		return
	}
	nameSpan := r.cur.SpanFrom(nameStart)
	r.cur.SkipSpace()
	if !r.cur.Eat('=') {
		r.report(diag.SynExpectedEquals, nameSpan, name)
		r.recover(r.cur.Off)
		return
	}
	r.cur.SkipSpace()
	value, _, ok := r.readValue()
	if !ok {
		return
	}
	r.cur.SkipSpace()
	if !r.cur.Eat(closer) {
		r.report(diag.SynUnterminatedEntry, r.cur.SpanFrom(start), "@string")
		r.recover(r.cur.Off)
		return
	}

	lower := strings.ToLower(name)
	if r.macros[lower] {
		r.report(diag.SynDuplicateField, nameSpan, "@string "+name)
		return
	}
	r.macros[lower] = true
	r.db.SetMacro(name, value)
}

// readPreamble keeps the raw preamble text; several preambles are joined.
func (r *Reader) readPreamble(start uint32) {
	closer, ok := r.openDelimiter(start)
	if !ok {
		return
	}
	text, ok := r.readBalanced(start, closer)
	if !ok {
		return
	}
	text = strings.TrimSpace(text)
	if prev := r.db.Preamble(); prev != "" {
		text = prev + "\n" + text
	}
	r.db.SetPreamble(text)
}

// readComment skips "@comment{...}" or a bare "@comment" line and
// applies jabref-meta settings found inside.
func (r *Reader) readComment() {
	start := r.cur.Off
	r.cur.SkipSpace()
	var closer byte
	switch r.cur.Peek() {
	case '{':
		closer = '}'
	case '(':
		closer = ')'
	default:
		r.cur.Off = start
		for !r.cur.EOF() && r.cur.Peek() != '\n' {
			r.cur.Bump()
		}
		return
	}
	r.cur.Bump()
	text, ok := r.readBalanced(start, closer)
	if !ok {
		return
	}
	r.applyMeta(strings.TrimSpace(text))
}

// readBalanced returns the text up to the closer at nesting level zero and consumes the closer.
func (r *Reader) readBalanced(start uint32, closer byte) (string, bool) {
	opener := byte('{')
	if closer == ')' {
		opener = '('
	}
	from := r.cur.Off
	depth := 0
	for !r.cur.EOF() {
		b := r.cur.Bump()
		switch b {
		case '\\':
			r.cur.Bump()
		case opener:
			depth++
		case closer:
			if depth == 0 {
				return string(r.file.Content[from : r.cur.Off-1]), true
			}
			depth--
		}
	}
	r.report(diag.SynUnterminatedEntry, source.Span{File: r.file.ID, Start: start, End: from}, "")
	return "", false
}
