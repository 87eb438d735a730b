package diag

import (
	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

// Message is one immutable finding: an issue code, the owning entry and
// the offending field. Field is absent for whole-entry issues; entry is
// absent for reader-level issues that carry an explicit span instead.
type Message struct {
	code    Code
	entry   *entry.Entry
	field   entry.Field
	detail  string
	span    source.Span
	hasSpan bool
}

// New creates a message for field f of e. Pass a zero Field for entry scope.
func New(code Code, e *entry.Entry, f entry.Field) Message {
	return Message{code: code, entry: e, field: f}
}

// NewDetailed is New with an extra detail, such as the unresolved key of a link.
func NewDetailed(code Code, e *entry.Entry, f entry.Field, detail string) Message {
	return Message{code: code, entry: e, field: f, detail: detail}
}

// NewAt creates a message anchored at span without an entry.
func NewAt(code Code, span source.Span, detail string) Message {
	return Message{code: code, span: span, hasSpan: true, detail: detail}
}

// NewGlobal creates a message tied to neither an entry nor a location, such as a load error.
func NewGlobal(code Code, detail string) Message {
	return Message{code: code, detail: detail}
}

func (m Message) Code() Code { return m.code }
func (m Message) Entry() *entry.Entry { return m.entry }
func (m Message) Detail() string { return m.detail }
func (m Message) Severity() Severity { return m.code.Severity() }

// Field returns the offending field, if the issue is field-scoped.
func (m Message) Field() (entry.Field, bool) {
	return m.field, !m.field.IsZero()
}

// Text returns the canonical issue text, followed by the detail when present.
func (m Message) Text() string {
	if m.detail == "" {
		return m.code.Title()
	}
	return m.code.Title() + ": " + m.detail
}

// Span locates the message in source: explicit span, then field value, then key, then the entry itself.
func (m Message) Span() (source.Span, bool) {
	if m.hasSpan {
		return m.span, true
	}
	if m.entry == nil || !m.entry.HasSpans() {
		return source.Span{}, false
	}
	if !m.field.IsZero() {
		if sp, ok := m.entry.FieldSpan(m.field); ok {
			return sp, true
		}
	}
	if m.code.IsKeyIssue() && !m.entry.KeySpan().Empty() {
		return m.entry.KeySpan(), true
	}
	return m.entry.Span(), true
}

// Equal compares code, entry identity, field and detail.
func (m Message) Equal(other Message) bool {
	return m.code == other.code &&
		m.entry == other.entry &&
		m.field.Name() == other.field.Name() &&
		m.detail == other.detail &&
		m.hasSpan == other.hasSpan &&
		m.span == other.span
}

func (m Message) String() string {
	prefix := m.code.ID()
	if m.entry != nil {
		prefix += " " + m.entry.String()
	}
	if !m.field.IsZero() {
		prefix += "." + m.field.Name()
	}
	return prefix + ": " + m.Text()
}
