package keygen

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"bibcheck/internal/author"
	"bibcheck/internal/entry"
	"bibcheck/internal/latex"
)

// Generator expands a key pattern against an entry.
type Generator struct {
	pattern  *Pattern
	unwanted string
}

// Options configures a Generator.
type Options struct {
	Pattern            string
	UnwantedCharacters string
}

// New parses opts.Pattern (DefaultPattern when empty) and returns a Generator.
func New(opts Options) (*Generator, error) {
	src := opts.Pattern
	if strings.TrimSpace(src) == "" {
		src = DefaultPattern
	}
	p, err := ParsePattern(src)
	if err != nil {
		return nil, err
	}
	unwanted := opts.UnwantedCharacters
	if unwanted == "" {
		unwanted = DefaultUnwantedCharacters
	}
	return &Generator{pattern: p, unwanted: unwanted}, nil
}

// Pattern returns the parsed pattern.
func (g *Generator) Pattern() *Pattern { return g.pattern }

// GenerateKey returns the cleaned key for e. An empty result means the pattern
// expanded to nothing for this entry.
func (g *Generator) GenerateKey(e *entry.Entry) string {
	var b strings.Builder
	for _, part := range g.pattern.Parts {
		switch {
		case part.Literal != nil:
			b.WriteString(*part.Literal)
		case part.Marker != nil:
			label := expandMarker(e, part.Marker.Name)
			b.WriteString(applyModifiers(label, part.Marker.Modifiers))
		}
	}
	return CleanKey(b.String(), g.unwanted)
}

var (
	reAuthIni    = regexp.MustCompile(`^authIni(\d+)$`)
	reAuthNofM   = regexp.MustCompile(`^auth(\d+)_(\d+)$`)
	reAuthN      = regexp.MustCompile(`^auth(\d+)$`)
	reAuthorsN   = regexp.MustCompile(`^authors(\d+)$`)
	reEdtrN      = regexp.MustCompile(`^edtr(\d+)$`)
	reKeywordN   = regexp.MustCompile(`^keyword(\d+)$`)
	reKeywordsN  = regexp.MustCompile(`^keywords(\d*)$`)
	reNotDecimal = regexp.MustCompile(`\D+`)
)

func expandMarker(e *entry.Entry, name string) string {
	switch {
	case strings.HasPrefix(name, "pureauth"):
		return expandAuthor(e, name[len("pure"):], names(e, entry.FieldAuthor))
	case strings.HasPrefix(name, "auth"):
		list := names(e, entry.FieldAuthor)
		if len(list.Authors) == 0 {
			list = names(e, entry.FieldEditor)
		}
		return expandAuthor(e, name, list)
	case strings.HasPrefix(name, "ed"):
		return expandEditor(e, name, names(e, entry.FieldEditor))
	}

	switch name {
	case "firstpage":
		return FirstPage(value(e, entry.FieldPages))
	case "pageprefix":
		return PagePrefix(value(e, entry.FieldPages))
	case "lastpage":
		return LastPage(value(e, entry.FieldPages))
	case "title":
		return camelizeSignificant(value(e, entry.FieldTitle))
	case "fulltitle":
		return value(e, entry.FieldTitle)
	case "shorttitle":
		return titleWords(3, removeSmallWords(value(e, entry.FieldTitle)))
	case "veryshorttitle":
		return titleWords(1, removeSmallWords(value(e, entry.FieldTitle)))
	case "shorttitleINI":
		return lettersAndDigits(abbreviate(titleWords(3, value(e, entry.FieldTitle))))
	case "camel":
		return lettersAndDigits(camelize(value(e, entry.FieldTitle)))
	case "shortyear":
		return shortYear(value(e, entry.FieldYear))
	case "entrytype":
		return e.Type().String()
	}

	if m := reKeywordN.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		kws := keywords(e)
		if n < 1 || n > len(kws) {
			return ""
		}
		return kws[n-1]
	}
	if m := reKeywordsN.FindStringSubmatch(name); m != nil {
		n := -1
		if m[1] != "" {
			n, _ = strconv.Atoi(m[1])
		}
		var b strings.Builder
		for i, kw := range keywords(e) {
			if n >= 0 && i >= n {
				break
			}
			b.WriteString(strings.Join(strings.Fields(kw), ""))
		}
		return b.String()
	}
	return value(e, entry.FieldFor(name))
}

func expandAuthor(e *entry.Entry, name string, list author.List) string {
	switch name {
	case "auth":
		return firstLast(list)
	case "authForeIni":
		return firstInitial(list, 0)
	case "authFirstFull":
		if len(list.Authors) == 0 {
			return ""
		}
		return strings.ReplaceAll(list.Authors[0].LastWithVon(), " ", "")
	case "authors":
		return joinLast(list, len(list.Authors), "", "")
	case "authorsAlpha":
		return authorsAlpha(list)
	case "authorLast":
		if len(list.Authors) == 0 {
			return ""
		}
		return list.Authors[len(list.Authors)-1].Last
	case "authorLastForeIni":
		return firstInitial(list, len(list.Authors)-1)
	case "authorIni":
		return oneAuthorPlusInitials(list)
	case "auth.auth.ea":
		return joinLast(list, 2, ".", ".ea")
	case "auth.etal":
		return authEtal(list, ".", ".etal")
	case "authEtAl":
		return authEtal(list, "", "EtAl")
	case "authshort":
		return authShort(list)
	}
	if m := reAuthIni.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return authIniN(list, n)
	}
	if m := reAuthNofM.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		k, _ := strconv.Atoi(m[2])
		return authNofM(list, n, k)
	}
	if m := reAuthN.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return authNofM(list, n, 1)
	}
	if m := reAuthorsN.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return joinLast(list, n, "", "EtAl")
	}
	return value(e, entry.FieldFor(name))
}

func expandEditor(e *entry.Entry, name string, list author.List) string {
	switch name {
	case "edtr":
		return firstLast(list)
	case "edtrForeIni":
		return firstInitial(list, 0)
	case "editors":
		return joinLast(list, len(list.Authors), "", "")
	case "editorLast":
		if len(list.Authors) == 0 {
			return ""
		}
		return list.Authors[len(list.Authors)-1].Last
	case "editorIni":
		return oneAuthorPlusInitials(list)
	case "edtr.edtr.ea":
		return joinLast(list, 2, ".", ".ea")
	case "edtrshort":
		return authShort(list)
	}
	if m := reEdtrN.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return authNofM(list, n, 1)
	}
	return value(e, entry.FieldFor(name))
}

func value(e *entry.Entry, f entry.Field) string {
	v, _ := e.FieldOrAlias(f)
	return v
}

// names parses a person field and resolves LaTeX in every name part.
// Institutions ("{Massachusetts Institute of Technology}") collapse to a short key.
func names(e *entry.Entry, f entry.Field) author.List {
	list := author.Parse(value(e, f))
	for i, a := range list.Authors {
		if isInstitution(a) {
			a.Last = institutionKey(latex.ToUnicode(a.Last))
		} else {
			a.Last = latex.ToUnicode(a.Last)
		}
		a.First = latex.ToUnicode(a.First)
		a.Von = latex.ToUnicode(a.Von)
		a.Jr = latex.ToUnicode(a.Jr)
		list.Authors[i] = a
	}
	return list
}

func isInstitution(a author.Author) bool {
	return a.First == "" && a.Von == "" && a.Jr == "" &&
		strings.HasPrefix(a.Last, "{") && strings.ContainsAny(a.Last, " \t")
}

// institutionKey keeps the capitals of significant words, or the first word of
// a university name followed by those capitals.
func institutionKey(name string) string {
	var b strings.Builder
	for _, w := range strings.Fields(name) {
		lw := strings.ToLower(w)
		if smallWords[lw] {
			continue
		}
		switch {
		case strings.HasPrefix(lw, "univ"):
			b.WriteString("Uni")
		case isAllUpper(w):
			b.WriteString(w)
		default:
			for _, r := range w {
				if unicode.IsUpper(r) {
					b.WriteRune(r)
					break
				}
			}
		}
	}
	return b.String()
}

func isAllUpper(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func firstLast(list author.List) string {
	if len(list.Authors) == 0 {
		return ""
	}
	return list.Authors[0].Last
}

func firstInitial(list author.List, i int) string {
	if i < 0 || i >= len(list.Authors) {
		return ""
	}
	ini := list.Authors[i].Initials()
	if ini == "" {
		return ""
	}
	r := []rune(ini)
	return string(r[0])
}

// joinLast joins at most limit last names with sep and appends suffix when
// names were dropped.
func joinLast(list author.List, limit int, sep, suffix string) string {
	if len(list.Authors) <= limit {
		suffix = ""
	}
	parts := make([]string, 0, min(limit, len(list.Authors)))
	for i, a := range list.Authors {
		if i >= limit {
			break
		}
		parts = append(parts, a.Last)
	}
	return strings.Join(parts, sep) + suffix
}

func authEtal(list author.List, sep, suffix string) string {
	if len(list.Authors) <= 2 {
		return joinLast(list, 2, sep, "")
	}
	return list.Authors[0].Last + suffix
}

// authNofM returns the first n characters of the m-th (1-based) last name.
func authNofM(list author.List, n, m int) string {
	if m < 1 || m > len(list.Authors) || n < 0 {
		return ""
	}
	last := []rune(CleanKey(list.Authors[m-1].Last, DefaultUnwantedCharacters))
	if len(last) > n {
		last = last[:n]
	}
	return string(last)
}

func authShort(list author.List) string {
	switch n := len(list.Authors); {
	case n == 0:
		return ""
	case n == 1:
		return list.Authors[0].Last
	default:
		var b strings.Builder
		for i := 0; i < n && i < 3; i++ {
			b.WriteString(authNofM(list, 1, i+1))
		}
		if n > 3 {
			b.WriteByte('+')
		}
		return b.String()
	}
}

// authIniN spreads n characters evenly over the last names.
func authIniN(list author.List, n int) string {
	count := len(list.Authors)
	if n <= 0 || count == 0 {
		return ""
	}
	var b strings.Builder
	each := n / count
	for i := range count {
		if i < n%count {
			b.WriteString(authNofM(list, each+1, i+1))
		} else {
			b.WriteString(authNofM(list, each, i+1))
		}
	}
	r := []rune(b.String())
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

const charsOfFirst = 5

func oneAuthorPlusInitials(list author.List) string {
	if len(list.Authors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(authNofM(list, charsOfFirst, 1))
	for i := 2; i <= len(list.Authors); i++ {
		b.WriteString(authNofM(list, 1, i))
	}
	return b.String()
}

const maxAlphaAuthors = 4

// authorsAlpha renders the label used by the alpha bibliography style.
func authorsAlpha(list author.List) string {
	var b strings.Builder
	switch n := len(list.Authors); {
	case n == 0:
		return ""
	case n == 1:
		parts := strings.Fields(list.Authors[0].LastWithVon())
		if len(parts) == 0 {
			return ""
		}
		for _, p := range parts[:len(parts)-1] {
			b.WriteString(firstRune(p))
		}
		last := []rune(parts[len(parts)-1])
		b.WriteString(string(last[:min(3, len(last))]))
	default:
		limit := n
		if n > maxAlphaAuthors {
			limit = maxAlphaAuthors - 1
		}
		for _, a := range list.Authors[:limit] {
			for _, p := range strings.Fields(a.LastWithVon()) {
				b.WriteString(firstRune(p))
			}
		}
		if n > maxAlphaAuthors {
			b.WriteByte('+')
		}
	}
	return b.String()
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// FirstPage returns the lowest page number in pages, e.g. "7" for "7,41,73--97".
func FirstPage(pages string) string {
	return pageBound(pages, -1)
}

// LastPage returns the highest page number in pages.
func LastPage(pages string) string {
	return pageBound(pages, 1)
}

func pageBound(pages string, want int) string {
	var best *big.Int
	for _, s := range reNotDecimal.Split(pages, -1) {
		if s == "" {
			continue
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			continue
		}
		if best == nil || n.Cmp(best) == want {
			best = n
		}
	}
	if best == nil {
		return ""
	}
	return best.String()
}

// PagePrefix returns the non-digit prefix of pages, e.g. "L" for "L7--9".
func PagePrefix(pages string) string {
	i := strings.IndexFunc(pages, unicode.IsDigit)
	if i <= 0 {
		return ""
	}
	return pages[:i]
}

func shortYear(year string) string {
	switch {
	case year == "":
		return ""
	case strings.HasPrefix(year, "in") || strings.HasPrefix(year, "sub"):
		return "IP"
	case len(year) > 2:
		return year[len(year)-2:]
	default:
		return year
	}
}

func keywords(e *entry.Entry) []string {
	raw := value(e, entry.FieldKeywords)
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
