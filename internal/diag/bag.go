package diag

import (
	"slices"
	"sort"
)

// Bag collects messages up to a limit. A limit of 0 means unlimited.
type Bag struct {
	items []Message
	max   int
}

func NewBag(max int) *Bag {
	if max < 0 {
		max = 0
	}
	return &Bag{
		items: make([]Message, 0, min(max, 64)),
		max:   max,
	}
}

// Add appends a message, honouring the limit.
// Returns false when the message was dropped.
func (b *Bag) Add(m Message) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, m)
	return true
}

// AddAll appends messages until the limit is reached and returns how many were kept.
func (b *Bag) AddAll(ms []Message) int {
	n := 0
	for _, m := range ms {
		if !b.Add(m) {
			break
		}
		n++
	}
	return n
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any message has Severity >= Error.
func (b *Bag) HasErrors() bool {
	return b.hasAtLeast(SevError)
}

// HasWarnings reports whether any message has Severity >= Warning.
func (b *Bag) HasWarnings() bool {
	return b.hasAtLeast(SevWarning)
}

func (b *Bag) hasAtLeast(sev Severity) bool {
	for i := range b.items {
		if b.items[i].Severity() >= sev {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the internal slice. Do not modify it.
func (b *Bag) Items() []Message {
	return b.items
}

// Codes returns the code of every message in order.
func (b *Bag) Codes() []Code {
	out := make([]Code, len(b.items))
	for i := range b.items {
		out[i] = b.items[i].code
	}
	return out
}

// Merge appends the messages of other, growing the limit to fit.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if b.max > 0 && len(b.items)+len(other.items) > b.max {
		b.max = len(b.items) + len(other.items)
	}
	b.items = append(b.items, other.items...)
}

// Filter keeps only messages for which keep returns true.
func (b *Bag) Filter(keep func(Message) bool) {
	b.items = slices.DeleteFunc(b.items, func(m Message) bool { return !keep(m) })
}

// Sort orders spanned messages by file, start and end; unspanned ones keep their relative order at the end.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		si, okI := b.items[i].Span()
		sj, okJ := b.items[j].Span()
		if okI != okJ {
			return okI
		}
		if !okI {
			return false
		}
		if si.File != sj.File {
			return si.File < sj.File
		}
		if si.Start != sj.Start {
			return si.Start < sj.Start
		}
		if si.End != sj.End {
			return si.End < sj.End
		}
		return b.items[i].Severity() > b.items[j].Severity()
	})
}

// Dedup drops repeated messages, keeping the first occurrence.
func (b *Bag) Dedup() {
	out := make([]Message, 0, len(b.items))
	for _, m := range b.items {
		if slices.ContainsFunc(out, m.Equal) {
			continue
		}
		out = append(out, m)
	}
	b.items = out
}

func sortCodes(codes []Code) {
	slices.Sort(codes)
}
