package check

import (
	"strings"

	"bibcheck/internal/diag"
)

type mathMode uint8

const (
	mathNone mathMode = iota
	mathDollar
	mathDisplayDollar
	mathParen
	mathBracket
)

var mathEnvironments = map[string]bool{
	"math": true, "displaymath": true, "equation": true, "equation*": true,
	"align": true, "align*": true, "gather": true, "gather*": true,
	"multline": true, "multline*": true, "eqnarray": true, "eqnarray*": true,
	"flalign": true, "flalign*": true,
}

// Latex runs a structural scan of LaTeX markup: math delimiters, environment
// nesting, sub/superscripts outside math, \verb delimiters and a dangling
// backslash. It does not know individual commands. An unescaped % starts a
// comment up to the end of the line, as it does once BibTeX hands the value
// to LaTeX; a literal percent sign has to be written \%.
var Latex = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	var sc latexScanner
	return sc.scan(value)
})

type latexScanner struct {
	math     mathMode
	envs     []string
	mathEnvs int
}

func (sc *latexScanner) inMath() bool {
	return sc.math != mathNone || sc.mathEnvs > 0
}

func (sc *latexScanner) scan(s string) (diag.Code, bool) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 >= len(s) {
				return diag.LatexTrailingBackslash, true
			}
			next, code, bad := sc.command(s, i+1)
			if bad {
				return code, true
			}
			i = next - 1
		case '%':
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				i = len(s)
			} else {
				i += nl
			}
		case '$':
			if i+1 < len(s) && s[i+1] == '$' && (sc.math == mathNone || sc.math == mathDisplayDollar) && sc.mathEnvs == 0 {
				if sc.math == mathDisplayDollar {
					sc.math = mathNone
				} else {
					sc.math = mathDisplayDollar
				}
				i++
				continue
			}
			switch {
			case sc.math == mathDollar:
				sc.math = mathNone
			case sc.inMath():
				return diag.LatexNestedMath, true
			default:
				sc.math = mathDollar
			}
		case '_', '^':
			if !sc.inMath() {
				return diag.LatexScriptOutsideMath, true
			}
		}
	}
	if sc.math != mathNone {
		return diag.LatexUnbalancedMath, true
	}
	if len(sc.envs) > 0 {
		return diag.LatexEnvironment, true
	}
	return 0, false
}

// command handles the text after a backslash at s[i] and returns the index
// after the command.
func (sc *latexScanner) command(s string, i int) (int, diag.Code, bool) {
	c := s[i]
	if !isASCIILetter(c) {
		switch c {
		case '(', '[':
			if sc.inMath() {
				return 0, diag.LatexNestedMath, true
			}
			sc.math = mathParen
			if c == '[' {
				sc.math = mathBracket
			}
		case ')':
			if sc.math != mathParen {
				return 0, diag.LatexUnbalancedMath, true
			}
			sc.math = mathNone
		case ']':
			if sc.math != mathBracket {
				return 0, diag.LatexUnbalancedMath, true
			}
			sc.math = mathNone
		}
		return i + 1, 0, false
	}
	j := i
	for j < len(s) && isASCIILetter(s[j]) {
		j++
	}
	switch s[i:j] {
	case "begin", "end":
		name, next, ok := environmentName(s, j)
		if !ok {
			return 0, diag.LatexEnvironment, true
		}
		if s[i:j] == "begin" {
			if mathEnvironments[name] {
				if sc.inMath() {
					return 0, diag.LatexNestedMath, true
				}
				sc.mathEnvs++
			}
			sc.envs = append(sc.envs, name)
			return next, 0, false
		}
		if len(sc.envs) == 0 || sc.envs[len(sc.envs)-1] != name {
			return 0, diag.LatexEnvironment, true
		}
		sc.envs = sc.envs[:len(sc.envs)-1]
		if mathEnvironments[name] {
			sc.mathEnvs--
		}
		return next, 0, false
	case "verb":
		if j < len(s) && s[j] == '*' {
			j++
		}
		if j >= len(s) || s[j] == ' ' || isASCIILetter(s[j]) {
			return 0, diag.LatexVerbDelimiter, true
		}
		end := strings.IndexByte(s[j+1:], s[j])
		if end < 0 {
			return 0, diag.LatexVerbDelimiter, true
		}
		return j + 1 + end + 1, 0, false
	}
	return j, 0, false
}

// environmentName reads "{name}" right after \begin or \end.
func environmentName(s string, i int) (string, int, bool) {
	if i >= len(s) || s[i] != '{' {
		return "", 0, false
	}
	end := strings.IndexByte(s[i:], '}')
	if end < 0 {
		return "", 0, false
	}
	name := s[i+1 : i+end]
	if name == "" {
		return "", 0, false
	}
	for k := 0; k < len(name); k++ {
		if !isASCIILetter(name[k]) && name[k] != '*' {
			return "", 0, false
		}
	}
	return name, i + end + 1, true
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
