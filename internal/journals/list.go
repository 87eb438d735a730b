// Package journals holds the name repositories consulted by the journal
// and venue checks: journal abbreviation lists and predatory venue lists.
package journals

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Abbreviation pairs a full journal name with its abbreviated form.
type Abbreviation struct {
	Name         string
	Abbreviation string
	// ShortestUnique is the optional third column of the list format.
	ShortestUnique string
}

// DotlessAbbreviation returns the abbreviation without periods, "J Tests".
func (a Abbreviation) DotlessAbbreviation() string {
	return strings.ReplaceAll(a.Abbreviation, ".", "")
}

// List is an in-memory abbreviation list. Lookups ignore case and
// surrounding whitespace and treat "\&" as "&".
type List struct {
	mu      sync.RWMutex
	entries []Abbreviation
	full    map[string]int
	abbrv   map[string]int
}

// NewList returns an empty list.
func NewList() *List {
	return &List{
		full:  make(map[string]int),
		abbrv: make(map[string]int),
	}
}

var folder = cases.Fold()

func normalizeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\&`, "&"))
	return folder.String(strings.Join(strings.Fields(name), " "))
}

// Add inserts entries. Later entries win on conflicting names.
func (l *List) Add(entries ...Abbreviation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range entries {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		idx := len(l.entries)
		l.entries = append(l.entries, a)
		l.full[normalizeName(a.Name)] = idx
		if a.Abbreviation != "" && normalizeName(a.Abbreviation) != normalizeName(a.Name) {
			l.abbrv[normalizeName(a.Abbreviation)] = idx
			l.abbrv[normalizeName(a.DotlessAbbreviation())] = idx
		}
		if a.ShortestUnique != "" && normalizeName(a.ShortestUnique) != normalizeName(a.Name) {
			l.abbrv[normalizeName(a.ShortestUnique)] = idx
		}
	}
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the list in insertion order.
func (l *List) Entries() []Abbreviation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Abbreviation(nil), l.entries...)
}

// IsKnownName reports whether name is a full or abbreviated journal name.
func (l *List) IsKnownName(name string) bool {
	key := normalizeName(name)
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, full := l.full[key]
	_, abbrv := l.abbrv[key]
	return full || abbrv
}

// IsAbbreviatedName reports whether name is an abbreviation and not also a full name.
func (l *List) IsAbbreviatedName(name string) bool {
	key := normalizeName(name)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, full := l.full[key]; full {
		return false
	}
	_, abbrv := l.abbrv[key]
	return abbrv
}

// Lookup finds the entry for a full or abbreviated name.
func (l *List) Lookup(name string) (Abbreviation, bool) {
	key := normalizeName(name)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx, ok := l.full[key]; ok {
		return l.entries[idx], true
	}
	if idx, ok := l.abbrv[key]; ok {
		return l.entries[idx], true
	}
	return Abbreviation{}, false
}

// ErrBadRecord is returned for CSV records without a name and abbreviation.
var ErrBadRecord = errors.New("journal list record needs name and abbreviation")

// ReadCSV parses the abbreviation list format: one journal per line,
// "Full Name","Abbreviation"[,"Shortest unique"]. Lines starting with '#'
// are comments.
func ReadCSV(r io.Reader) ([]Abbreviation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var out []Abbreviation
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read journal list: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, ErrBadRecord)
		}
		a := Abbreviation{Name: strings.TrimSpace(rec[0]), Abbreviation: strings.TrimSpace(rec[1])}
		if len(rec) > 2 {
			a.ShortestUnique = strings.TrimSpace(rec[2])
		}
		out = append(out, a)
	}
}

// LoadCSV reads the CSV lists at paths into a new List.
func LoadCSV(paths ...string) (*List, error) {
	l := NewList()
	for _, p := range paths {
		// #nosec G304 -- path is provided by the user config
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load journal list %s: %w", p, err)
		}
		entries, err := ReadCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		l.Add(entries...)
	}
	return l, nil
}
