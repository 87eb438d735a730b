package check

import (
	"regexp"
	"strings"
	"time"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
)

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

// Brackets reports the first unexpected closing brace, or an unclosed
// opening brace at the end. Escaped braces do not count.
var Brackets = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	depth := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return diag.BracketUnexpectedClosing, true
			}
		}
	}
	if depth > 0 {
		return diag.BracketUnexpectedOpening, true
	}
	return 0, false
})

var (
	reISBN = regexp.MustCompile(`^(\d{9}[\dxX]|\d{13})$`)
	reISSN = regexp.MustCompile(`^\d{4}-\d{3}[\dxX]$`)
)

// ISBN checks the ISBN-10/13 format and then its check digit.
var ISBN = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	digits := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(value))
	if !reISBN.MatchString(digits) {
		return diag.ISBNFormat, true
	}
	if !isbnChecksumOK(digits) {
		return diag.ISBNChecksum, true
	}
	return 0, false
})

func isbnChecksumOK(digits string) bool {
	if len(digits) == 10 {
		sum := 0
		for i := range 10 {
			sum += digitValue(digits[i]) * (10 - i)
		}
		return sum%11 == 0
	}
	sum := 0
	for i := range 13 {
		w := 1
		if i%2 == 1 {
			w = 3
		}
		sum += digitValue(digits[i]) * w
	}
	return sum%10 == 0
}

func digitValue(c byte) int {
	if c == 'x' || c == 'X' {
		return 10
	}
	return int(c - '0')
}

// ISSN checks the NNNN-NNNC format and the mod 11 check character.
var ISSN = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	v := strings.TrimSpace(value)
	if !reISSN.MatchString(v) {
		return diag.ISSNFormat, true
	}
	digits := v[:4] + v[5:]
	sum := 0
	for i := range 7 {
		sum += int(digits[i]-'0') * (8 - i)
	}
	control := (11 - sum%11) % 11
	want := byte('0' + control)
	if control == 10 {
		want = 'X'
	}
	got := digits[7]
	if got == 'x' {
		got = 'X'
	}
	if got != want {
		return diag.ISSNChecksum, true
	}
	return 0, false
})

var reDOI = regexp.MustCompile(`^(?i:(?:https?://)?(?:dx\.)?(?:doi\.org/)?(?:doi:)?)10\.\d{4,}(?:\.\d+)*/[^\s"&']+$`)

// DOI accepts a bare DOI or one behind a resolver or "doi:" prefix.
var DOI = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	if !reDOI.MatchString(strings.TrimSpace(value)) {
		return diag.DOIInvalid, true
	}
	return 0, false
})

var doiPrefix = regexp.MustCompile(`^(?i:(?:https?://)?(?:dx\.)?(?:doi\.org/)?(?:doi:)?)`)

// StripDOIPrefix removes a resolver URL or "doi:" prefix.
func StripDOIPrefix(doi string) string {
	return doiPrefix.ReplaceAllString(strings.TrimSpace(doi), "")
}

const (
	pageNumber = `[A-Za-z]?\d+`
	// bibtex ranges need "--"; biblatex also accepts "-" and an en dash
	bibtexPageRange   = `(\+|--` + pageNumber + `)?`
	biblatexPageRange = `(\+|(-{1,2}|\x{2013})` + pageNumber + `)?`
)

var (
	reBibTeXPages   = regexp.MustCompile(`\A` + pageNumber + bibtexPageRange + `(,` + pageNumber + bibtexPageRange + `)*\z`)
	reBibLaTeXPages = regexp.MustCompile(`\A` + pageNumber + biblatexPageRange + `(,` + pageNumber + biblatexPageRange + `)*\z`)
)

// Pages returns the page-range checker for mode.
func Pages(mode entry.Mode) ValueChecker {
	re := reBibTeXPages
	if mode == entry.ModeBibLaTeX {
		re = reBibLaTeXPages
	}
	return ValueFunc(func(value string) (diag.Code, bool) {
		if isBlank(value) {
			return 0, false
		}
		if !re.MatchString(strings.TrimSpace(value)) {
			return diag.PagesInvalid, true
		}
		return 0, false
	})
}

var (
	reMonthMacro  = regexp.MustCompile(`^#(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)#$`)
	reMonthNumber = regexp.MustCompile(`^([1-9]|10|11|12)$`)
)

// Month returns the month checker for mode. BibTeX wants a month macro;
// BibLaTeX also takes 1..12.
func Month(mode entry.Mode) ValueChecker {
	return ValueFunc(func(value string) (diag.Code, bool) {
		if isBlank(value) {
			return 0, false
		}
		v := strings.TrimSpace(value)
		if reMonthMacro.MatchString(v) {
			return 0, false
		}
		if mode == entry.ModeBibLaTeX {
			if reMonthNumber.MatchString(v) {
				return 0, false
			}
			return diag.MonthInvalid, true
		}
		return diag.MonthNotNormalized, true
	})
}

var dateLayouts = []string{
	"2006",
	"2006-01",
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Date accepts ISO 8601 dates and date ranges "from/to", where either end
// may be open ("" or "..").
var Date = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	v := strings.TrimSpace(value)
	from, to, isRange := strings.Cut(v, "/")
	if !isRange {
		if !parsesAsDate(from) {
			return diag.DateInvalid, true
		}
		return 0, false
	}
	openFrom := from == "" || from == ".."
	openTo := to == "" || to == ".."
	if openFrom && openTo {
		return diag.DateInvalid, true
	}
	if (!openFrom && !parsesAsDate(from)) || (!openTo && !parsesAsDate(to)) {
		return diag.DateInvalid, true
	}
	return 0, false
})

func parsesAsDate(s string) bool {
	// approximate dates ("2004?", "2004~") are fine
	s = strings.TrimRight(s, "?~%")
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

var (
	reFourDigits    = regexp.MustCompile(`([^0-9]|^)[0-9]{4}([^0-9]|$)`)
	reEndsWithYear  = regexp.MustCompile(`[0-9]{4}$`)
	yearPunctuation = regexp.MustCompile(`[(){},.;!?<>%&$]`)
)

// Year wants a four-digit number and wants it at the end of the value.
var Year = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	if !reFourDigits.MatchString(value) {
		return diag.YearNoFourDigits, true
	}
	stripped := strings.TrimSpace(yearPunctuation.ReplaceAllString(value, ""))
	if !reEndsWithYear.MatchString(stripped) {
		return diag.YearNotLast, true
	}
	return 0, false
})

var (
	reNumeralsOrLiterals = regexp.MustCompile(`^([0-9]+|[^0-9].+)$`)
	reOnlyNumerals       = regexp.MustCompile(`^[0-9]+$`)
	reFirstCapital       = regexp.MustCompile(`^[A-Z]`)
)

// Edition returns the edition checker for mode. allowInteger accepts plain
// numbers in BibTeX mode.
func Edition(mode entry.Mode, allowInteger bool) ValueChecker {
	return ValueFunc(func(value string) (diag.Code, bool) {
		if isBlank(value) {
			return 0, false
		}
		v := strings.TrimSpace(value)
		if v == "1" {
			return diag.EditionJustOne, true
		}
		if mode == entry.ModeBibLaTeX {
			if !reNumeralsOrLiterals.MatchString(v) {
				return diag.EditionNotLiteral, true
			}
			if !isDigit(v[0]) && !reFirstCapital.MatchString(v) {
				return diag.EditionNotCapitalized, true
			}
			return 0, false
		}
		if reOnlyNumerals.MatchString(v) {
			if allowInteger {
				return 0, false
			}
			return diag.EditionInteger, true
		}
		// digit-led literals such as "2nd" are biblatex only
		if !reFirstCapital.MatchString(v) {
			return diag.EditionNotCapitalized, true
		}
		return 0, false
	})
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// URL wants an explicit scheme.
var URL = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	if !strings.Contains(value, "://") {
		return diag.URLNoProtocol, true
	}
	return 0, false
})

// Note reports a lower-case first character. BibTeX styles do not
// capitalize note and howpublished.
var Note = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	c := strings.TrimSpace(value)[0]
	if c >= 'a' && c <= 'z' {
		return diag.NoteNotCapitalized, true
	}
	return 0, false
})
