package entry

import (
	"slices"
	"strings"

	"bibcheck/internal/source"
)

// Entry is one bibliographic record: a type, an optional citation key and
// an insertion-ordered field map. Spans are optional and only set by readers.
type Entry struct {
	typ    Type
	key    string
	hasKey bool

	order  []Field
	values map[string]string

	span       source.Span
	keySpan    source.Span
	fieldSpans map[string]source.Span
	hasSpans   bool
}

// New creates an empty entry of type t.
func New(t Type) *Entry {
	return &Entry{
		typ:    t,
		values: make(map[string]string),
	}
}

// NewWithKey creates an empty entry of type t with citation key key.
func NewWithKey(t Type, key string) *Entry {
	e := New(t)
	e.SetCitationKey(key)
	return e
}

func (e *Entry) Type() Type { return e.typ }
func (e *Entry) SetType(t Type) { e.typ = t }
func (e *Entry) Len() int { return len(e.order) }
func (e *Entry) HasSpans() bool { return e.hasSpans }
func (e *Entry) Span() source.Span { return e.span }
func (e *Entry) KeySpan() source.Span { return e.keySpan }

// CitationKey returns the key and whether one is set. An empty key counts as absent.
func (e *Entry) CitationKey() (string, bool) {
	if !e.hasKey || e.key == "" {
		return "", false
	}
	return e.key, true
}

func (e *Entry) SetCitationKey(key string) {
	e.key = key
	e.hasKey = true
}

func (e *Entry) ClearCitationKey() {
	e.key = ""
	e.hasKey = false
}

// Field returns the value stored for f.
func (e *Entry) Field(f Field) (string, bool) {
	v, ok := e.values[f.name]
	return v, ok
}

// FieldByName is Field for a raw field name.
func (e *Entry) FieldByName(name string) (string, bool) {
	return e.Field(FieldFor(name))
}

// HasField reports whether f holds a non-blank value.
func (e *Entry) HasField(f Field) bool {
	v, ok := e.values[f.name]
	return ok && strings.TrimSpace(v) != ""
}

// SetField stores value under f. Re-setting an existing field keeps its position.
func (e *Entry) SetField(f Field, value string) {
	if f.IsZero() {
		return
	}
	if _, exists := e.values[f.name]; !exists {
		e.order = append(e.order, f)
	}
	e.values[f.name] = value
}

// ClearField removes f and its span.
func (e *Entry) ClearField(f Field) {
	if _, exists := e.values[f.name]; !exists {
		return
	}
	delete(e.values, f.name)
	delete(e.fieldSpans, f.name)
	e.order = slices.DeleteFunc(e.order, func(x Field) bool { return x.name == f.name })
}

// Fields returns the fields in insertion order.
func (e *Entry) Fields() []Field {
	return slices.Clone(e.order)
}

// FieldOrAlias resolves f through its schema alias and, for year and month, through date.
func (e *Entry) FieldOrAlias(f Field) (string, bool) {
	if v, ok := e.Field(f); ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	if alias, ok := Alias(f); ok {
		if v, ok := e.Field(alias); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	switch f.name {
	case FieldYear.name:
		if d, ok := e.Field(FieldDate); ok && len(d) >= 4 {
			return d[:4], true
		}
	case FieldMonth.name:
		if d, ok := e.Field(FieldDate); ok && len(d) >= 7 && d[4] == '-' {
			return d[5:7], true
		}
	}
	return "", false
}

// SetSpans records provenance of the entry and its key inside a source file.
func (e *Entry) SetSpans(entrySpan, keySpan source.Span) {
	e.span = entrySpan
	e.keySpan = keySpan
	e.hasSpans = true
}

// SetFieldSpan records the span of the raw value of f.
func (e *Entry) SetFieldSpan(f Field, span source.Span) {
	if e.fieldSpans == nil {
		e.fieldSpans = make(map[string]source.Span)
	}
	e.fieldSpans[f.name] = span
}

// FieldSpan returns the span of the raw value of f, if known.
func (e *Entry) FieldSpan(f Field) (source.Span, bool) {
	sp, ok := e.fieldSpans[f.name]
	return sp, ok
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	c := *e
	c.order = slices.Clone(e.order)
	c.values = make(map[string]string, len(e.values))
	for k, v := range e.values {
		c.values[k] = v
	}
	if e.fieldSpans != nil {
		c.fieldSpans = make(map[string]source.Span, len(e.fieldSpans))
		for k, v := range e.fieldSpans {
			c.fieldSpans[k] = v
		}
	}
	return &c
}

// Equal compares type, key and field values. Field order and spans are ignored.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	k1, ok1 := e.CitationKey()
	k2, ok2 := other.CitationKey()
	if e.typ != other.typ || k1 != k2 || ok1 != ok2 || len(e.values) != len(other.values) {
		return false
	}
	for k, v := range e.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String returns "type{key}" for logs.
func (e *Entry) String() string {
	key, _ := e.CitationKey()
	return string(e.typ) + "{" + key + "}"
}
