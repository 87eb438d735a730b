package diag

import (
	"fmt"
)

// Code is a closed enumeration of integrity issues. Ranges select the ID prefix.
type Code uint16

const (
	UnknownCode Code = 0

	// Формат: value present but fails a grammar
	FmtInfo                  Code = 1000
	BracketUnexpectedClosing Code = 1001
	BracketUnexpectedOpening Code = 1002
	ISBNFormat               Code = 1003
	ISSNFormat               Code = 1004
	DOIInvalid               Code = 1005
	PagesInvalid             Code = 1006
	MonthNotNormalized       Code = 1007
	MonthInvalid             Code = 1008
	DateInvalid              Code = 1009
	YearNoFourDigits         Code = 1010
	YearNotLast              Code = 1011
	URLNoProtocol            Code = 1012
	NamesLeadingConnector    Code = 1013
	NamesTrailingConnector   Code = 1014
	NamesNonStandard         Code = 1015
	HTMLEntity               Code = 1016
	UnescapedAmpersand       Code = 1017
	UnbalancedHash           Code = 1018
	LatexUnbalancedMath      Code = 1019
	LatexNestedMath          Code = 1020
	LatexScriptOutsideMath   Code = 1021
	LatexTrailingBackslash   Code = 1022
	LatexEnvironment         Code = 1023
	LatexVerbDelimiter       Code = 1024
	NotNFC                   Code = 1025
	NonASCII                 Code = 1026
	EditionNotLiteral        Code = 1027
	EditionNotCapitalized    Code = 1028
	NoteNotCapitalized       Code = 1029
	TitleCapitalsNotMasked   Code = 1030
	FileFieldMalformed       Code = 1031

	// Семантика: value well-formed but wrong in context
	SemInfo               Code = 2000
	ISBNChecksum          Code = 2001
	ISSNChecksum          Code = 2002
	EditionJustOne        Code = 2003
	EditionInteger        Code = 2004
	TitleContainsURL      Code = 2005
	BooktitleConferenceOn Code = 2006
	TypeNotInMode         Code = 2007
	FieldNotInMode        Code = 2008
	ProceedingsWithPages  Code = 2009
	JournalAbbreviated    Code = 2010
	JournalNotInList      Code = 2011
	PredatoryVenue        Code = 2012
	LinkedFileMissing     Code = 2013

	// Citation keys
	KeyInfo                  Code = 3000
	KeyMissing               Code = 3001
	KeyInvalid               Code = 3002
	KeyDeviatesFromGenerated Code = 3003
	KeyDuplicate             Code = 3004

	// Cross-record
	XrfInfo        Code = 4000
	UnresolvedLink Code = 4001
	DOIDuplicate   Code = 4002

	// .bib reader
	SynInfo              Code = 5000
	SynUnexpectedChar    Code = 5001
	SynUnterminatedEntry Code = 5002
	SynUnterminatedValue Code = 5003
	SynExpectedEquals    Code = 5004
	SynExpectedFieldName Code = 5005
	SynDuplicateField    Code = 5006
	SynUndefinedMacro    Code = 5007
	SynMissingKey        Code = 5008

	IOInfo          Code = 6000
	IOLoadFileError Code = 6001

	ObsInfo    Code = 7000
	ObsTimings Code = 7001
)

type codeInfo struct {
	title string
	sev   Severity
	fix   FixKind
}

var codeTable = map[Code]codeInfo{
	UnknownCode: {"Unknown error", SevError, FixNone},

	FmtInfo:                  {"Format information", SevInfo, FixNone},
	BracketUnexpectedClosing: {"unexpected closing curly bracket", SevWarning, FixNone},
	BracketUnexpectedOpening: {"unexpected opening curly bracket", SevWarning, FixNone},
	ISBNFormat:               {"incorrect ISBN format", SevWarning, FixNone},
	ISSNFormat:               {"incorrect ISSN format", SevWarning, FixNone},
	DOIInvalid:               {"DOI is invalid", SevWarning, FixNone},
	PagesInvalid:             {"should contain a valid page number range", SevWarning, FixNormalizePages},
	MonthNotNormalized:       {"should be normalized", SevWarning, FixNormalizeMonth},
	MonthInvalid:             {"should be an integer or normalized", SevWarning, FixNormalizeMonth},
	DateInvalid:              {"should be a date in ISO 8601 format", SevWarning, FixNone},
	YearNoFourDigits:         {"should contain a four digit number", SevWarning, FixNone},
	YearNotLast:              {"last four nonpunctuation characters should be numerals", SevWarning, FixNone},
	URLNoProtocol:            {"should contain a valid URL", SevWarning, FixNone},
	NamesLeadingConnector:    {"should not start with the name linking word 'and' or a comma", SevWarning, FixNone},
	NamesTrailingConnector:   {"should not end with the name linking word 'and' or a comma", SevWarning, FixNone},
	NamesNonStandard:         {"names are not in the standard BibTeX format", SevWarning, FixNormalizeNames},
	HTMLEntity:               {"HTML encoded character found", SevWarning, FixUnescapeHTML},
	UnescapedAmpersand:       {"unescaped ampersand", SevWarning, FixEscapeAmpersand},
	UnbalancedHash:           {"odd number of unescaped '#'", SevWarning, FixNone},
	LatexUnbalancedMath:      {"math mode delimiter without matching counterpart", SevWarning, FixNone},
	LatexNestedMath:          {"math mode opened while already in math mode", SevWarning, FixNone},
	LatexScriptOutsideMath:   {"superscript or subscript character outside math mode", SevWarning, FixNone},
	LatexTrailingBackslash:   {"nothing follows the final backslash", SevWarning, FixNone},
	LatexEnvironment:         {"environment \\begin and \\end do not match", SevWarning, FixNone},
	LatexVerbDelimiter:       {"\\verb must be followed by a delimiter character", SevWarning, FixNone},
	NotNFC:                   {"value is not in Unicode Normalization Form C", SevWarning, FixNormalizeNFC},
	NonASCII:                 {"non-ASCII encoded character found", SevInfo, FixNone},
	EditionNotLiteral:        {"should contain an integer or a literal", SevWarning, FixNone},
	EditionNotCapitalized:    {"should have the first letter capitalized", SevWarning, FixNone},
	NoteNotCapitalized:       {"should have the first letter capitalized", SevWarning, FixNone},
	TitleCapitalsNotMasked:   {"capital letters are not masked using curly brackets {}", SevWarning, FixNone},
	FileFieldMalformed:       {"file field is malformed", SevWarning, FixNone},

	SemInfo:               {"Semantic information", SevInfo, FixNone},
	ISBNChecksum:          {"incorrect ISBN control digit", SevError, FixNone},
	ISSNChecksum:          {"incorrect ISSN control digit", SevError, FixNone},
	EditionJustOne:        {"edition of book reported as just 1", SevWarning, FixNone},
	EditionInteger:        {"integer edition is not allowed in BibTeX mode", SevWarning, FixNone},
	TitleContainsURL:      {"the title contains a URL", SevError, FixNone},
	BooktitleConferenceOn: {"booktitle ends with 'conference on'", SevWarning, FixNone},
	TypeNotInMode:         {"entry type is not available in the active database mode", SevWarning, FixNone},
	FieldNotInMode:        {"field is not available in the active database mode", SevWarning, FixNone},
	ProceedingsWithPages:  {"wrong entry type as proceedings has page numbers", SevWarning, FixNone},
	JournalAbbreviated:    {"abbreviation detected", SevWarning, FixNone},
	JournalNotInList:      {"journal not found in abbreviation list", SevInfo, FixNone},
	PredatoryVenue:        {"predatory journal or publisher detected", SevWarning, FixNone},
	LinkedFileMissing:     {"link should refer to a correct file path", SevWarning, FixNone},

	KeyInfo:                  {"Citation key information", SevInfo, FixNone},
	KeyMissing:               {"empty citation key", SevWarning, FixRegenerateKey},
	KeyInvalid:               {"invalid citation key", SevWarning, FixCleanKey},
	KeyDeviatesFromGenerated: {"citation key deviates from generated key", SevInfo, FixRegenerateKey},
	KeyDuplicate:             {"duplicate citation key", SevError, FixNone},

	XrfInfo:        {"Cross-record information", SevInfo, FixNone},
	UnresolvedLink: {"referenced citation key does not exist", SevError, FixNone},
	DOIDuplicate:   {"same DOI used in multiple entries", SevWarning, FixNone},

	SynInfo:              {"Syntax information", SevInfo, FixNone},
	SynUnexpectedChar:    {"unexpected character", SevError, FixNone},
	SynUnterminatedEntry: {"entry is not terminated", SevError, FixNone},
	SynUnterminatedValue: {"field value is not terminated", SevError, FixNone},
	SynExpectedEquals:    {"expected '=' after field name", SevError, FixNone},
	SynExpectedFieldName: {"expected field name", SevError, FixNone},
	SynDuplicateField:    {"field defined more than once", SevWarning, FixNone},
	SynUndefinedMacro:    {"undefined string macro", SevWarning, FixNone},
	SynMissingKey:        {"entry has no citation key", SevWarning, FixNone},

	IOInfo:          {"I/O information", SevInfo, FixNone},
	IOLoadFileError: {"I/O load file error", SevError, FixNone},

	ObsInfo:    {"Observability information", SevInfo, FixNone},
	ObsTimings: {"Pipeline timings", SevInfo, FixNone},
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("FMT%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("KEY%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("XRF%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

// Title returns the canonical text of the issue.
func (c Code) Title() string {
	info, ok := codeTable[c]
	if !ok {
		return codeTable[UnknownCode].title
	}
	return info.title
}

// Severity returns the default severity of the issue.
func (c Code) Severity() Severity {
	info, ok := codeTable[c]
	if !ok {
		return SevError
	}
	return info.sev
}

// Fix returns the machine-actionable fix tag, if the issue has one.
func (c Code) Fix() (FixKind, bool) {
	info, ok := codeTable[c]
	if !ok || info.fix == FixNone {
		return FixNone, false
	}
	return info.fix, true
}

// Known reports whether c is a member of the taxonomy.
func (c Code) Known() bool {
	_, ok := codeTable[c]
	return ok && c != UnknownCode
}

// IsKeyIssue reports whether c concerns the citation key rather than a field.
func (c Code) IsKeyIssue() bool {
	return c >= KeyInfo && c < XrfInfo
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// ParseID resolves an ID such as "KEY3004" back to its Code.
func ParseID(id string) (Code, bool) {
	for c := range codeTable {
		if c != UnknownCode && c.ID() == id {
			return c, true
		}
	}
	return UnknownCode, false
}

// AllCodes returns every known code except UnknownCode, in ascending order.
func AllCodes() []Code {
	out := make([]Code, 0, len(codeTable))
	for c := range codeTable {
		if c != UnknownCode {
			out = append(out, c)
		}
	}
	sortCodes(out)
	return out
}
