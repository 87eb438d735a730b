package fix

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"bibcheck/internal/author"
	"bibcheck/internal/bibtex"
	"bibcheck/internal/check"
	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/keygen"
	"bibcheck/internal/source"
)

var (
	errNoChange   = errors.New("value is already normalized")
	errUnfixable  = errors.New("value cannot be normalized automatically")
	errNoKeyGen   = errors.New("no key generator configured")
	errEmptyKey   = errors.New("generated key is empty")
	errMacroValue = errors.New("value references a string macro")
)

// TextEdit replaces Span with NewText. OldText guards against stale spans.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// Fix is one concrete correction derived from a message.
type Fix struct {
	ID            string
	Title         string
	Kind          diag.FixKind
	Applicability diag.FixApplicability
	// Entry and Field locate the change; a zero Field means the citation key.
	Entry    *entry.Entry
	Field    entry.Field
	NewValue string
	Edits    []TextEdit
}

// IsKeyFix reports whether the fix rewrites the citation key.
func (f Fix) IsKeyFix() bool { return f.Field.IsZero() }

// Builder turns messages into fixes.
type Builder struct {
	// Keys regenerates citation keys; without it regenerate-key fixes are skipped.
	Keys check.KeyGenerator
	// Unwanted characters are removed by clean-key.
	Unwanted string
	// Taken reports keys already in use. Regenerated keys get a letter suffix
	// until they are free.
	Taken func(key string) bool
}

// Build returns the fix for m. Messages without a fix kind or without an
// entry yield an error.
func (b Builder) Build(m diag.Message) (Fix, error) {
	kind, ok := m.Code().Fix()
	if !ok {
		return Fix{}, fmt.Errorf("%s has no automated fix", m.Code().ID())
	}
	e := m.Entry()
	if e == nil {
		return Fix{}, fmt.Errorf("%s is not attached to an entry", m.Code().ID())
	}
	fix := Fix{
		Title:         kindTitle(kind),
		Kind:          kind,
		Applicability: kind.Applicability(),
		Entry:         e,
	}

	switch kind {
	case diag.FixRegenerateKey, diag.FixCleanKey:
		key, err := b.newKey(kind, m)
		if err != nil {
			return Fix{}, err
		}
		fix.NewValue = key
		return fix, nil
	}

	f, ok := m.Field()
	if !ok {
		return Fix{}, fmt.Errorf("%s has no field", m.Code().ID())
	}
	value, ok := e.Field(f)
	if !ok {
		return Fix{}, fmt.Errorf("field %s is gone", f.Name())
	}
	if kind != diag.FixNormalizeMonth && hasMacro(value) {
		return Fix{}, errMacroValue
	}
	fixed, err := FixValue(kind, value)
	if err != nil {
		return Fix{}, err
	}
	fix.Field = f
	fix.NewValue = fixed
	return fix, nil
}

func (b Builder) newKey(kind diag.FixKind, m diag.Message) (string, error) {
	e := m.Entry()
	current, _ := e.CitationKey()
	var key string
	switch kind {
	case diag.FixCleanKey:
		key = keygen.CleanKey(current, b.Unwanted)
	default:
		// the deviation message already carries the generated key
		key = m.Detail()
		if key == "" || m.Code() != diag.KeyDeviatesFromGenerated {
			if b.Keys == nil {
				return "", errNoKeyGen
			}
			key = b.Keys.GenerateKey(e)
		}
	}
	if key == "" {
		return "", errEmptyKey
	}
	if key == current {
		return "", errNoChange
	}
	if key = uniqueKey(key, current, b.Taken); key == current {
		return "", errNoChange
	}
	return key, nil
}

// uniqueKey appends a, b, ..., z, aa, ab, ... to base until taken reports it free.
func uniqueKey(base, current string, taken func(string) bool) string {
	if taken == nil || !taken(base) {
		return base
	}
	for n := 0; ; n++ {
		candidate := base + keygen.LetterSuffix(n)
		if candidate == current || !taken(candidate) {
			return candidate
		}
	}
}

func hasMacro(value string) bool {
	for _, p := range bibtex.SplitMacros(value) {
		if p.Macro {
			return true
		}
	}
	return false
}

func kindTitle(kind diag.FixKind) string {
	switch kind {
	case diag.FixRegenerateKey:
		return "regenerate citation key"
	case diag.FixCleanKey:
		return "remove illegal characters from citation key"
	case diag.FixNormalizeMonth:
		return "normalize month"
	case diag.FixNormalizePages:
		return "use -- in page ranges"
	case diag.FixUnescapeHTML:
		return "replace HTML entities"
	case diag.FixNormalizeNFC:
		return "normalize to NFC"
	case diag.FixNormalizeNames:
		return "rewrite names as Last, First"
	case diag.FixEscapeAmpersand:
		return "escape ampersand"
	default:
		return kind.String()
	}
}

// FixValue applies the value-level correction of kind. Key kinds are not
// value-level and return an error.
func FixValue(kind diag.FixKind, value string) (string, error) {
	var (
		out string
		err error
	)
	switch kind {
	case diag.FixNormalizeMonth:
		out, err = NormalizeMonth(value)
	case diag.FixNormalizePages:
		out, err = NormalizePages(value)
	case diag.FixUnescapeHTML:
		out = UnescapeHTML(value)
	case diag.FixNormalizeNFC:
		out = norm.NFC.String(value)
	case diag.FixNormalizeNames:
		out = author.Parse(value).AsLastFirst()
	case diag.FixEscapeAmpersand:
		out = EscapeAmpersands(value)
	default:
		return "", fmt.Errorf("%s is not a value fix", kind)
	}
	if err != nil {
		return "", err
	}
	if out == value {
		return "", errNoChange
	}
	return out, nil
}

var monthNames = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// NormalizeMonth turns "January", "jan", "#jan#", "1" or "01" into "#jan#".
func NormalizeMonth(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSuffix(strings.TrimPrefix(v, "#"), "#")
	v = strings.Trim(v, "{}. ")
	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 || n > 12 {
			return "", errUnfixable
		}
		return "#" + monthNames[n-1] + "#", nil
	}
	if len(v) >= 3 {
		for _, m := range monthNames {
			if strings.HasPrefix(v, m) {
				return "#" + m + "#", nil
			}
		}
	}
	return "", errUnfixable
}

var (
	rePageSingle = regexp.MustCompile(`^[A-Za-z]?\d+\+?$`)
	rePageRange  = regexp.MustCompile(`^([A-Za-z]?\d+)\s*(?:-+|\x{2013}|\x{2014}|\x{2012})\s*([A-Za-z]?\d+)$`)
)

// NormalizePages rewrites every range of a comma separated page list with "--".
func NormalizePages(value string) (string, error) {
	parts := strings.Split(value, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case rePageSingle.MatchString(p):
			parts[i] = p
		case rePageRange.MatchString(p):
			parts[i] = rePageRange.ReplaceAllString(p, "$1--$2")
		default:
			return "", errUnfixable
		}
	}
	return strings.Join(parts, ","), nil
}

// UnescapeHTML decodes character references and escapes the ampersands that result.
func UnescapeHTML(value string) string {
	return EscapeAmpersands(html.UnescapeString(value))
}

// EscapeAmpersands puts a backslash before every unescaped "&".
func EscapeAmpersands(value string) string {
	var b strings.Builder
	for {
		i := check.UnescapedAmpersand(value)
		if i < 0 {
			b.WriteString(value)
			return b.String()
		}
		b.WriteString(value[:i])
		b.WriteString(`\&`)
		value = value[i+1:]
	}
}
