package diag

import "bibcheck/internal/source"

type dedupKey struct {
	code   Code
	file   source.FileID
	start  uint32
	end    uint32
	field  string
	detail string
}

// DedupReporter suppresses messages with the same code, location, field and detail.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

// NewDedupReporter wraps next.
func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{
		next: next,
		seen: make(map[dedupKey]struct{}),
	}
}

func (r *DedupReporter) Report(m Message) {
	if r == nil {
		return
	}
	sp, _ := m.Span()
	key := dedupKey{
		code:   m.code,
		file:   sp.File,
		start:  sp.Start,
		end:    sp.End,
		field:  m.field.Name(),
		detail: m.detail,
	}
	if m.entry != nil && !m.entry.HasSpans() {
		// without spans only identical entries collapse
		key.detail += "\x00" + m.entry.String()
	}
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(m)
	}
}
