package keygen

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"bibcheck/internal/latex"
)

// smallWords are skipped by [shorttitle] and [veryshorttitle] and stay lower
// case in [title].
var smallWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "but": true, "or": true,
	"nor": true, "for": true, "so": true, "yet": true, "as": true, "at": true,
	"by": true, "in": true, "of": true, "on": true, "to": true, "up": true,
	"via": true, "from": true, "into": true, "with": true, "over": true,
	"per": true, "than": true, "onto": true, "upon": true,
}

// titleTokens resolves LaTeX and splits on whitespace and hyphens.
func titleTokens(title string) []string {
	return strings.FieldsFunc(latex.ToUnicode(title), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
}

func titleWords(n int, title string) string {
	words := titleTokens(title)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func removeSmallWords(title string) string {
	var kept []string
	for _, w := range titleTokens(title) {
		if !smallWords[strings.ToLower(w)] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func camelize(title string) string {
	words := titleTokens(title)
	for i, w := range words {
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

// camelizeSignificant capitalizes the first word and every word not in smallWords.
func camelizeSignificant(title string) string {
	words := titleTokens(title)
	for i, w := range words {
		if i == 0 || !smallWords[strings.ToLower(w)] {
			words[i] = upperFirst(w)
		} else {
			words[i] = lowerFirst(w)
		}
	}
	return strings.Join(words, " ")
}

func upperFirst(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}

func lowerFirst(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToLower(r)) + w[size:]
}

func lettersAndDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// abbreviate keeps the first character of every word.
func abbreviate(s string) string {
	s = strings.NewReplacer("{", "", "}", "", "'", "").Replace(s)
	var b strings.Builder
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '(' || r == ')' || r == '"' || unicode.IsSpace(r)
	}) {
		b.WriteString(firstRune(w))
	}
	return b.String()
}

// applyModifiers runs the modifier chain of a marker over its label.
// A "(text)" modifier supplies a fallback when the label is empty.
func applyModifiers(label string, mods []string) string {
	original := label
	for _, mod := range mods {
		switch mod {
		case "lower":
			label = strings.ToLower(label)
		case "upper":
			label = strings.ToUpper(label)
		case "capitalize":
			label = camelize(strings.ToLower(label))
		case "titlecase":
			label = camelizeSignificant(strings.ToLower(label))
		case "abbr":
			label = abbreviate(label)
		default:
			if len(mod) > 2 && strings.HasPrefix(mod, "(") && strings.HasSuffix(mod, ")") && original == "" {
				label = mod[1 : len(mod)-1]
			}
		}
	}
	return label
}
