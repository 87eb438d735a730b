package check

import (
	"errors"
	"fmt"
	"strings"
)

// LinkedFile is one element of a file field: "description:path:type".
type LinkedFile struct {
	Description string
	Path        string
	FileType    string
}

// IsOnline reports links that point at the web rather than the disk.
func (l LinkedFile) IsOnline() bool {
	p := strings.ToLower(l.Path)
	for _, prefix := range []string{"http://", "https://", "ftp://", "www."} {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

var errEmptyPath = errors.New("empty path")

// ParseFileField splits a file field on unescaped ';' into links and every
// link on unescaped ':'. A single part is a bare path.
func ParseFileField(value string) ([]LinkedFile, error) {
	var links []LinkedFile
	for i, raw := range splitEscaped(value, ';') {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		parts := splitEscaped(raw, ':')
		var l LinkedFile
		switch len(parts) {
		case 1:
			l.Path = parts[0]
		case 2:
			l.Description, l.Path = parts[0], parts[1]
		case 3:
			l.Description, l.Path, l.FileType = parts[0], parts[1], parts[2]
		default:
			// "desc:https://host/x.pdf:PDF" splits the scheme off the path
			l.Description = parts[0]
			l.Path = strings.Join(parts[1:len(parts)-1], ":")
			l.FileType = parts[len(parts)-1]
		}
		l.Path = strings.TrimSpace(l.Path)
		if l.Path == "" {
			return nil, fmt.Errorf("link %d: %w", i+1, errEmptyPath)
		}
		links = append(links, l)
	}
	return links, nil
}

// splitEscaped splits on sep, honoring backslash escapes and removing them.
func splitEscaped(s string, sep byte) []string {
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && (s[i+1] == ';' || s[i+1] == ':' || s[i+1] == '\\'):
			if sep == ';' {
				// keep escapes for the inner ':' split
				cur.WriteByte(c)
			}
			i++
			cur.WriteByte(s[i])
		case c == sep:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(out, cur.String())
}
