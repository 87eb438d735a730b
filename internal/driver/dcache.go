package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// Digest keys cached results.
type Digest [32]byte

// CacheKey combines the file content hash with a fingerprint of everything
// else that influences the result (preferences, name lists, tool version).
func CacheKey(fileHash [32]byte, fingerprint string) Digest {
	h := blake3.New()
	fmt.Fprintf(h, "bibcheck-cache/%d\x00", diskCacheSchemaVersion)
	_, _ = h.Write(fileHash[:])
	_, _ = h.Write([]byte(fingerprint))
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// DiskCache stores check results of unchanged files between runs.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedMessage is a diag.Message with the entry replaced by its index in
// the database, so it can be rebound after the file is parsed again.
type CachedMessage struct {
	Code    uint16
	Entry   int // -1 for messages without entry
	Field   string
	Detail  string
	HasSpan bool
	Start   uint32
	End     uint32
}

// DiskPayload is one cached file result.
type DiskPayload struct {
	Schema   uint16
	Path     string
	Entries  int
	Messages []CachedMessage
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt uses dir as the cache root.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "results", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload. A payload from another schema is a miss.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// toPayload records msgs of db; entries are stored by index.
func toPayload(path string, db *entry.Database, msgs []diag.Message) *DiskPayload {
	payload := &DiskPayload{
		Schema:   diskCacheSchemaVersion,
		Path:     path,
		Entries:  db.Len(),
		Messages: make([]CachedMessage, 0, len(msgs)),
	}
	index := make(map[*entry.Entry]int, db.Len())
	for i, e := range db.Entries() {
		index[e] = i
	}
	for _, m := range msgs {
		cm := CachedMessage{Code: uint16(m.Code()), Entry: -1, Detail: m.Detail()}
		if e := m.Entry(); e != nil {
			if i, ok := index[e]; ok {
				cm.Entry = i
			}
		} else if sp, ok := m.Span(); ok {
			cm.HasSpan, cm.Start, cm.End = true, sp.Start, sp.End
		}
		if f, ok := m.Field(); ok {
			cm.Field = f.Name()
		}
		payload.Messages = append(payload.Messages, cm)
	}
	return payload
}

// fromPayload rebinds cached messages to the entries of a freshly parsed db.
// It reports false when the payload does not fit db.
func fromPayload(payload *DiskPayload, file source.FileID, db *entry.Database) ([]diag.Message, bool) {
	if payload.Entries != db.Len() {
		return nil, false
	}
	out := make([]diag.Message, 0, len(payload.Messages))
	for _, cm := range payload.Messages {
		code := diag.Code(cm.Code)
		var f entry.Field
		if cm.Field != "" {
			f = entry.FieldFor(cm.Field)
		}
		switch {
		case cm.Entry >= 0 && cm.Entry < db.Len():
			out = append(out, diag.NewDetailed(code, db.At(cm.Entry), f, cm.Detail))
		case cm.HasSpan:
			out = append(out, diag.NewAt(code, source.Span{File: file, Start: cm.Start, End: cm.End}, cm.Detail))
		case cm.Entry < 0:
			out = append(out, diag.NewGlobal(code, cm.Detail))
		default:
			return nil, false
		}
	}
	return out, true
}
