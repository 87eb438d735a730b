package keygen

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// DefaultPattern is used when no pattern is configured.
const DefaultPattern = "[auth][year]"

// patternLexer switches into the Marker state on '[' so that literal text
// between markers may contain ':' and other punctuation.
var patternLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Open", Pattern: `\[`, Action: lexer.Push("Marker")},
		{Name: "Literal", Pattern: `[^\[]+`},
	},
	"Marker": {
		{Name: "Close", Pattern: `\]`, Action: lexer.Pop()},
		{Name: "Colon", Pattern: `:`},
		{Name: "Word", Pattern: `[^\]:]+`},
	},
})

// Pattern is a parsed key pattern such as "[auth][year]" or "[authors2:lower]-[shortyear]".
type Pattern struct {
	Parts []*Part `parser:"@@*"`
}

// Part is either literal text or a bracketed marker.
type Part struct {
	Literal *string `parser:"  @Literal"`
	Marker  *Marker `parser:"| Open @@ Close"`
}

// Marker names a key component and an optional chain of modifiers.
type Marker struct {
	Name      string   `parser:"@Word"`
	Modifiers []string `parser:"( Colon @Word )*"`
}

var patternParser = participle.MustBuild[Pattern](
	participle.Lexer(patternLexer),
)

// ParsePattern parses a key pattern.
func ParsePattern(input string) (*Pattern, error) {
	p, err := patternParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key pattern %q: %w", input, err)
	}
	for _, part := range p.Parts {
		if part.Marker == nil {
			continue
		}
		part.Marker.Name = strings.TrimSpace(part.Marker.Name)
		for i, mod := range part.Marker.Modifiers {
			part.Marker.Modifiers[i] = strings.TrimSpace(mod)
		}
	}
	return p, nil
}

// MustParsePattern is ParsePattern for patterns known at compile time.
func MustParsePattern(input string) *Pattern {
	p, err := ParsePattern(input)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) String() string {
	var b strings.Builder
	for _, part := range p.Parts {
		switch {
		case part.Literal != nil:
			b.WriteString(*part.Literal)
		case part.Marker != nil:
			b.WriteByte('[')
			b.WriteString(part.Marker.Name)
			for _, mod := range part.Marker.Modifiers {
				b.WriteByte(':')
				b.WriteString(mod)
			}
			b.WriteByte(']')
		}
	}
	return b.String()
}
