package check

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"bibcheck/internal/author"
	"bibcheck/internal/diag"
	"bibcheck/internal/keygen"
)

var reHTMLEntity = regexp.MustCompile(`&[#\p{L}\p{N}]+;`)

// HTMLEntity reports HTML character references such as "&amp;" or "&#38;".
var HTMLEntity = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	if reHTMLEntity.MatchString(value) {
		return diag.HTMLEntity, true
	}
	return 0, false
})

// Ampersand reports an "&" preceded by an even number of backslashes.
var Ampersand = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	if UnescapedAmpersand(value) >= 0 {
		return diag.UnescapedAmpersand, true
	}
	return 0, false
})

// UnescapedAmpersand returns the byte offset of the first unescaped "&", or -1.
func UnescapedAmpersand(value string) int {
	for i := 0; i < len(value); i++ {
		if value[i] != '&' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && value[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i
		}
	}
	return -1
}

// BibString reports an odd number of unescaped "#". Macro references are
// stored as "#name#", so a lone "#" means a broken concatenation.
var BibString = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	count := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\\':
			i++
		case '#':
			count++
		}
	}
	if count%2 == 1 {
		return diag.UnbalancedHash, true
	}
	return 0, false
})

// NFC reports values that are not in Unicode normalization form C.
var NFC = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	if !norm.NFC.IsNormalString(value) {
		return diag.NotNFC, true
	}
	return 0, false
})

// ASCII reports any non-ASCII character.
var ASCII = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] >= utf8.RuneSelf {
			return diag.NonASCII, true
		}
	}
	return 0, false
})

var (
	reInsideBraces  = regexp.MustCompile(`\{[^{}]*\}`)
	reSentenceDelim = regexp.MustCompile(`[.!?;:\[]`)
	reCapital       = regexp.MustCompile(`[\p{Lu}\p{Lt}]`)
	reURL           = regexp.MustCompile(`(?i)\b(?:https?|ftp)://[^\s{}]+`)
)

// TitleCapitalization reports capitals that BibTeX styles may lower-case
// because they are not protected by braces. The first letter of every
// sentence is exempt.
var TitleCapitalization = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	v := reURL.ReplaceAllString(value, "")
	for {
		stripped := reInsideBraces.ReplaceAllString(v, "")
		if stripped == v {
			break
		}
		v = stripped
	}
	for _, fragment := range reSentenceDelim.Split(v, -1) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		_, size := utf8.DecodeRuneInString(fragment)
		if reCapital.MatchString(fragment[size:]) {
			return diag.TitleCapitalsNotMasked, true
		}
	}
	return 0, false
})

// TitleURL reports a full URL inside a title.
var TitleURL = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	if reURL.MatchString(value) {
		return diag.TitleContainsURL, true
	}
	return 0, false
})

// Booktitle reports a booktitle ending in "conference on", which usually
// means the proceedings name was cut.
var Booktitle = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(value)), "conference on") {
		return diag.BooktitleConferenceOn, true
	}
	return 0, false
})

// PersonNames checks connectors at both ends, then requires the value to
// survive a parse and re-serialization in either name order unchanged.
var PersonNames = ValueFunc(func(value string) (diag.Code, bool) {
	if isBlank(value) {
		return 0, false
	}
	lower := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(lower, "and ") || strings.HasPrefix(lower, ",") {
		return diag.NamesLeadingConnector, true
	}
	if strings.HasSuffix(lower, " and") || strings.HasSuffix(lower, ",") {
		return diag.NamesTrailingConnector, true
	}
	list := author.Parse(value)
	if list.AsLastFirst() != value && list.AsFirstLast() != value {
		return diag.NamesNonStandard, true
	}
	return 0, false
})

// CitationKey returns the key legality checker. In strict mode the key must
// survive the generator's cleaning unchanged; otherwise only characters
// BibTeX cannot read in a key are rejected.
func CitationKey(strict bool, unwanted string) ValueChecker {
	return ValueFunc(func(value string) (diag.Code, bool) {
		if isBlank(value) {
			return 0, false
		}
		if strict {
			if keygen.CleanKey(value, unwanted) != value {
				return diag.KeyInvalid, true
			}
			return 0, false
		}
		if strings.ContainsAny(value, " \t\r\n{}(),\\\"#%'~=") {
			return diag.KeyInvalid, true
		}
		return 0, false
	})
}
