package bibtex

import (
	"fmt"

	"fortio.org/safecast"

	"bibcheck/internal/source"
)

// Cursor is a byte position inside one loaded file.
type Cursor struct {
	File  *source.File
	Off   uint32
	Limit uint32 // exclusive
}

func NewCursor(f *source.File) Cursor {
	limit, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return Cursor{File: f, Limit: limit}
}

func (c *Cursor) EOF() bool {
	return c.Off >= c.Limit
}

// Peek returns the current byte or 0 at EOF.
func (c *Cursor) Peek() byte {
	if c.EOF() {
		return 0
	}
	return c.File.Content[c.Off]
}

// Bump advances one byte and returns it.
func (c *Cursor) Bump() byte {
	if c.EOF() {
		return 0
	}
	b := c.File.Content[c.Off]
	c.Off++
	return b
}

// Eat consumes b if it is the current byte.
func (c *Cursor) Eat(b byte) bool {
	if c.Peek() == b && !c.EOF() {
		c.Off++
		return true
	}
	return false
}

func (c *Cursor) SkipSpace() {
	for !c.EOF() && isSpace(c.File.Content[c.Off]) {
		c.Off++
	}
}

// Text returns the bytes between from and the current offset.
func (c *Cursor) Text(from uint32) string {
	return string(c.File.Content[from:c.Off])
}

// SpanFrom returns the span between from and the current offset.
func (c *Cursor) SpanFrom(from uint32) source.Span {
	return source.Span{File: c.File.ID, Start: from, End: c.Off}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// isNameByte reports bytes allowed in entry types, field names and macro names.
func isNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', isDigit(b):
		return true
	case b == '_' || b == '-' || b == ':' || b == '.' || b == '+' || b == '/' || b == '\'':
		return true
	case b >= 0x80:
		return true
	}
	return false
}

// isKeyByte reports bytes allowed in a citation key of an entry closed by closer.
// Parentheses are fine inside a brace-delimited entry.
func isKeyByte(b, closer byte) bool {
	switch b {
	case ',', '=', '{', '}', '"', '#', closer:
		return false
	}
	return !isSpace(b)
}
