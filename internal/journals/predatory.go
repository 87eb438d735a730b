package journals

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// PredatoryList is a set of venue names known to be predatory.
type PredatoryList struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewPredatoryList() *PredatoryList {
	return &PredatoryList{names: make(map[string]string)}
}

// Add inserts names; blank names are ignored.
func (p *PredatoryList) Add(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range names {
		if key := normalizeName(n); key != "" {
			p.names[key] = strings.TrimSpace(n)
		}
	}
}

func (p *PredatoryList) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.names)
}

// Names returns the stored names sorted.
func (p *PredatoryList) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.names))
	for _, n := range p.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IsKnownName reports whether name is on the list.
func (p *PredatoryList) IsKnownName(name string) bool {
	key := normalizeName(name)
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.names[key]
	return ok
}

// ReadNames reads one name per line. Blank lines and '#' comments are skipped.
// A CSV-style line keeps only its first column.
func ReadNames(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, `"`) {
			if end := strings.Index(line[1:], `"`); end >= 0 {
				line = line[1 : end+1]
			}
		} else if i := strings.IndexByte(line, ','); i >= 0 {
			line = line[:i]
		}
		out = append(out, strings.TrimSpace(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read venue list: %w", err)
	}
	return out, nil
}

// LoadPredatory reads the name files at paths into a new list.
func LoadPredatory(paths ...string) (*PredatoryList, error) {
	p := NewPredatoryList()
	for _, path := range paths {
		// #nosec G304 -- path is provided by the user config
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load venue list %s: %w", path, err)
		}
		names, err := ReadNames(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		p.Add(names...)
	}
	return p, nil
}
