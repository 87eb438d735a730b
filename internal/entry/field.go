package entry

import (
	"strings"
)

// Property is a capability tag carried by a Field.
type Property uint32

const (
	PropVerbatim Property = 1 << iota
	PropPersonNames
	PropJournalName
	PropBookName
	PropSingleEntryLink
	PropMultipleEntryLink
	PropDate
	PropYear
	PropMonth
	PropNumeric
	PropExternal
	PropFileList
	PropMultilineText
	PropIdentifier
	PropComment
)

var propNames = [...]string{
	"verbatim", "person_names", "journal_name", "book_name",
	"single_entry_link", "multiple_entry_link", "date", "year", "month",
	"numeric", "external", "file_list", "multiline_text", "identifier", "comment",
}

func (p Property) String() string {
	if p == 0 {
		return "none"
	}
	parts := make([]string, 0, 2)
	for i, name := range propNames {
		if p&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Field identifies one attribute of an entry. Names are lower-case.
type Field struct {
	name  string
	props Property
}

// NewField creates a field with explicit properties. Use FieldFor for catalog lookups.
func NewField(name string, props Property) Field {
	return Field{name: strings.ToLower(strings.TrimSpace(name)), props: props}
}

func (f Field) Name() string { return f.name }
func (f Field) Properties() Property { return f.props }
func (f Field) Has(p Property) bool { return f.props&p == p }
func (f Field) HasAny(p Property) bool { return f.props&p != 0 }
func (f Field) IsZero() bool { return f.name == "" }
func (f Field) String() string { return f.name }
func (f Field) Equal(other Field) bool { return f.name == other.name }
func (f Field) IsLink() bool { return f.HasAny(PropSingleEntryLink | PropMultipleEntryLink) }

// Standard fields.
var (
	FieldAbstract     = NewField("abstract", PropMultilineText)
	FieldAddendum     = NewField("addendum", 0)
	FieldAddress      = NewField("address", 0)
	FieldAfterword    = NewField("afterword", PropPersonNames)
	FieldAnnotator    = NewField("annotator", PropPersonNames)
	FieldAnnote       = NewField("annote", PropMultilineText)
	FieldAnnotation   = NewField("annotation", PropMultilineText)
	FieldAuthor       = NewField("author", PropPersonNames)
	FieldBookAuthor   = NewField("bookauthor", PropPersonNames)
	FieldBookSubtitle = NewField("booksubtitle", PropBookName)
	FieldBooktitle    = NewField("booktitle", PropBookName)
	FieldChapter      = NewField("chapter", 0)
	FieldComment      = NewField("comment", PropMultilineText|PropComment)
	FieldCommentator  = NewField("commentator", PropPersonNames)
	FieldCrossref     = NewField("crossref", PropSingleEntryLink)
	FieldDate         = NewField("date", PropDate)
	FieldDOI          = NewField("doi", PropVerbatim|PropIdentifier)
	FieldEdition      = NewField("edition", PropNumeric)
	FieldEditor       = NewField("editor", PropPersonNames)
	FieldEditorA      = NewField("editora", PropPersonNames)
	FieldEditorB      = NewField("editorb", PropPersonNames)
	FieldEditorC      = NewField("editorc", PropPersonNames)
	FieldEntrySet     = NewField("entryset", PropMultipleEntryLink)
	FieldEprint       = NewField("eprint", PropVerbatim|PropIdentifier)
	FieldEprintType   = NewField("eprinttype", 0)
	FieldEventDate    = NewField("eventdate", PropDate)
	FieldEventTitle   = NewField("eventtitle", 0)
	FieldFile         = NewField("file", PropVerbatim|PropFileList)
	FieldForeword     = NewField("foreword", PropPersonNames)
	FieldHolder       = NewField("holder", PropPersonNames)
	FieldHowPublished = NewField("howpublished", 0)
	FieldInstitution  = NewField("institution", 0)
	FieldIntroduction = NewField("introduction", PropPersonNames)
	FieldISAN         = NewField("isan", PropIdentifier)
	FieldISBN         = NewField("isbn", PropIdentifier)
	FieldISMN         = NewField("ismn", PropIdentifier)
	FieldISRN         = NewField("isrn", PropIdentifier)
	FieldISSN         = NewField("issn", PropIdentifier)
	FieldIssue        = NewField("issue", 0)
	FieldIssueTitle   = NewField("issuetitle", 0)
	FieldJournal      = NewField("journal", PropJournalName)
	FieldJournalTitle = NewField("journaltitle", PropJournalName)
	FieldKey          = NewField("key", 0)
	FieldKeywords     = NewField("keywords", 0)
	FieldLangID       = NewField("langid", 0)
	FieldLanguage     = NewField("language", 0)
	FieldLocation     = NewField("location", 0)
	FieldMainTitle    = NewField("maintitle", 0)
	FieldMonth        = NewField("month", PropMonth)
	FieldNote         = NewField("note", 0)
	FieldNumber       = NewField("number", PropNumeric)
	FieldOrganization = NewField("organization", 0)
	FieldOrigDate     = NewField("origdate", PropDate)
	FieldOwner        = NewField("owner", 0)
	FieldPages        = NewField("pages", 0)
	FieldPageTotal    = NewField("pagetotal", PropNumeric)
	FieldPDF          = NewField("pdf", PropVerbatim)
	FieldPublisher    = NewField("publisher", 0)
	FieldPubState     = NewField("pubstate", 0)
	FieldRelated      = NewField("related", PropMultipleEntryLink)
	FieldReview       = NewField("review", PropMultilineText)
	FieldSchool       = NewField("school", 0)
	FieldSeries       = NewField("series", 0)
	FieldShortTitle   = NewField("shorttitle", 0)
	FieldSubtitle     = NewField("subtitle", 0)
	FieldTimestamp    = NewField("timestamp", 0)
	FieldTitle        = NewField("title", 0)
	FieldTitleAddon   = NewField("titleaddon", 0)
	FieldTranslator   = NewField("translator", PropPersonNames)
	FieldType         = NewField("type", 0)
	FieldURL          = NewField("url", PropVerbatim|PropExternal)
	FieldURLDate      = NewField("urldate", PropDate)
	FieldVenue        = NewField("venue", 0)
	FieldVersion      = NewField("version", 0)
	FieldVolume       = NewField("volume", PropNumeric)
	FieldVolumes      = NewField("volumes", PropNumeric)
	FieldXData        = NewField("xdata", PropMultipleEntryLink)
	FieldXRef         = NewField("xref", PropSingleEntryLink)
	FieldYear         = NewField("year", PropYear|PropNumeric)
)

var standardFields = map[string]Field{}

func init() {
	for _, f := range []Field{
		FieldAbstract, FieldAddendum, FieldAddress, FieldAfterword, FieldAnnotator,
		FieldAnnote, FieldAnnotation, FieldAuthor, FieldBookAuthor, FieldBookSubtitle,
		FieldBooktitle, FieldChapter, FieldComment, FieldCommentator, FieldCrossref,
		FieldDate, FieldDOI, FieldEdition, FieldEditor, FieldEditorA, FieldEditorB,
		FieldEditorC, FieldEntrySet, FieldEprint, FieldEprintType, FieldEventDate,
		FieldEventTitle, FieldFile, FieldForeword, FieldHolder, FieldHowPublished,
		FieldInstitution, FieldIntroduction, FieldISAN, FieldISBN, FieldISMN,
		FieldISRN, FieldISSN, FieldIssue, FieldIssueTitle, FieldJournal,
		FieldJournalTitle, FieldKey, FieldKeywords, FieldLangID, FieldLanguage,
		FieldLocation, FieldMainTitle, FieldMonth, FieldNote, FieldNumber,
		FieldOrganization, FieldOrigDate, FieldOwner, FieldPages, FieldPageTotal,
		FieldPDF, FieldPublisher, FieldPubState, FieldRelated, FieldReview,
		FieldSchool, FieldSeries, FieldShortTitle, FieldSubtitle, FieldTimestamp,
		FieldTitle, FieldTitleAddon, FieldTranslator, FieldType, FieldURL,
		FieldURLDate, FieldVenue, FieldVersion, FieldVolume, FieldVolumes,
		FieldXData, FieldXRef, FieldYear,
	} {
		standardFields[f.name] = f
	}
}

// FieldFor returns the standard field named name, or an unknown field without properties.
func FieldFor(name string) Field {
	name = strings.ToLower(strings.TrimSpace(name))
	if f, ok := standardFields[name]; ok {
		return f
	}
	if strings.HasPrefix(name, "comment-") {
		// user specific comment fields
		return Field{name: name, props: FieldComment.props}
	}
	return Field{name: name}
}

// IsStandard reports whether f belongs to the built-in field catalog.
func IsStandard(f Field) bool {
	_, ok := standardFields[f.name]
	return ok
}

// aliases maps a field to its counterpart in the other schema.
var aliases = map[string]Field{
	"journal":      FieldJournalTitle,
	"journaltitle": FieldJournal,
	"address":      FieldLocation,
	"location":     FieldAddress,
	"school":       FieldInstitution,
	"institution":  FieldSchool,
	"annote":       FieldAnnotation,
	"annotation":   FieldAnnote,
}

// Alias returns the counterpart of f in the other schema, if any.
func Alias(f Field) (Field, bool) {
	a, ok := aliases[f.name]
	return a, ok
}
