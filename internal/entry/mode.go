package entry

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Mode selects one of the two schema variants a database can use.
type Mode uint8

const (
	// ModeBibTeX is the strict, classic schema.
	ModeBibTeX Mode = iota
	// ModeBibLaTeX is the extended schema.
	ModeBibLaTeX
)

func (m Mode) String() string {
	switch m {
	case ModeBibTeX:
		return "bibtex"
	case ModeBibLaTeX:
		return "biblatex"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Other returns the opposite schema.
func (m Mode) Other() Mode {
	if m == ModeBibTeX {
		return ModeBibLaTeX
	}
	return ModeBibTeX
}

// ParseMode accepts "bibtex" and "biblatex" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bibtex", "":
		return ModeBibTeX, nil
	case "biblatex":
		return ModeBibLaTeX, nil
	default:
		return ModeBibTeX, fmt.Errorf("unknown database mode %q", s)
	}
}

// Type is an entry type tag, stored lower-case.
type Type string

// NewType normalizes a raw type name.
func NewType(name string) Type {
	return Type(strings.ToLower(strings.TrimSpace(name)))
}

func (t Type) String() string { return string(t) }

const (
	TypeArticle       Type = "article"
	TypeBook          Type = "book"
	TypeBooklet       Type = "booklet"
	TypeConference    Type = "conference"
	TypeInBook        Type = "inbook"
	TypeInCollection  Type = "incollection"
	TypeInProceedings Type = "inproceedings"
	TypeManual        Type = "manual"
	TypeMastersThesis Type = "mastersthesis"
	TypeMisc          Type = "misc"
	TypePhdThesis     Type = "phdthesis"
	TypeProceedings   Type = "proceedings"
	TypeTechReport    Type = "techreport"
	TypeUnpublished   Type = "unpublished"
)

var bibtexTypes = []Type{
	TypeArticle, TypeBook, TypeBooklet, TypeConference, TypeInBook,
	TypeInCollection, TypeInProceedings, TypeManual, TypeMastersThesis,
	TypeMisc, TypePhdThesis, TypeProceedings, TypeTechReport, TypeUnpublished,
}

// biblatex also accepts the classic names as aliases
var biblatexTypes = append(slices.Clone(bibtexTypes),
	"mvbook", "bookinbook", "suppbook", "collection", "mvcollection",
	"suppcollection", "dataset", "online", "electronic", "www", "patent",
	"periodical", "suppperiodical", "mvproceedings", "reference",
	"mvreference", "inreference", "report", "set", "software", "thesis",
	"xdata", "artwork", "audio", "image", "jurisdiction", "legislation",
	"legal", "letter", "movie", "music", "performance", "review",
	"standard", "video",
)

// common to both schemas and to JabRef-style tooling
var commonFields = []Field{
	FieldAbstract, FieldComment, FieldDOI, FieldFile, FieldISBN, FieldISSN,
	FieldKeywords, FieldOwner, FieldPDF, FieldReview, FieldTimestamp,
	FieldURL, FieldLanguage, FieldShortTitle, FieldCrossref,
}

var bibtexFields = []Field{
	FieldAddress, FieldAnnote, FieldAuthor, FieldBooktitle, FieldChapter,
	FieldEdition, FieldEditor, FieldHowPublished, FieldInstitution,
	FieldJournal, FieldKey, FieldMonth, FieldNote, FieldNumber,
	FieldOrganization, FieldPages, FieldPublisher, FieldSchool, FieldSeries,
	FieldTitle, FieldType, FieldVolume, FieldYear,
}

var biblatexOnlyFields = []Field{
	FieldAddendum, FieldAfterword, FieldAnnotation, FieldAnnotator,
	FieldBookAuthor, FieldBookSubtitle, FieldCommentator, FieldDate,
	FieldEditorA, FieldEditorB, FieldEditorC, FieldEntrySet, FieldEprint,
	FieldEprintType, FieldEventDate, FieldEventTitle, FieldForeword,
	FieldHolder, FieldIntroduction, FieldISAN, FieldISMN, FieldISRN,
	FieldIssue, FieldIssueTitle, FieldJournalTitle, FieldLangID,
	FieldLocation, FieldMainTitle, FieldOrigDate, FieldPageTotal,
	FieldPubState, FieldRelated, FieldSubtitle, FieldTitleAddon,
	FieldTranslator, FieldURLDate, FieldVenue, FieldVersion, FieldVolumes,
	FieldXData, FieldXRef,
}

type catalog struct {
	types  map[Type]struct{}
	fields map[string]struct{}
}

var (
	catalogsOnce sync.Once
	catalogs     [2]catalog
	exclusive    [2]catalog
)

func buildCatalogs() {
	mk := func(types []Type, fields ...[]Field) catalog {
		c := catalog{types: make(map[Type]struct{}), fields: make(map[string]struct{})}
		for _, t := range types {
			c.types[t] = struct{}{}
		}
		for _, group := range fields {
			for _, f := range group {
				c.fields[f.name] = struct{}{}
			}
		}
		return c
	}
	catalogs[ModeBibTeX] = mk(bibtexTypes, commonFields, bibtexFields)
	catalogs[ModeBibLaTeX] = mk(biblatexTypes, commonFields, bibtexFields, biblatexOnlyFields)

	// exclusive[m] = catalogs[other] - catalogs[m]
	for _, m := range []Mode{ModeBibTeX, ModeBibLaTeX} {
		own, other := catalogs[m], catalogs[m.Other()]
		ex := catalog{types: make(map[Type]struct{}), fields: make(map[string]struct{})}
		for t := range other.types {
			if _, ok := own.types[t]; !ok {
				ex.types[t] = struct{}{}
			}
		}
		for f := range other.fields {
			if _, ok := own.fields[f]; !ok {
				ex.fields[f] = struct{}{}
			}
		}
		exclusive[m] = ex
	}
}

// KnownType reports whether t belongs to the vocabulary of mode m.
func KnownType(m Mode, t Type) bool {
	catalogsOnce.Do(buildCatalogs)
	_, ok := catalogs[m].types[t]
	return ok
}

// KnownField reports whether f belongs to the vocabulary of mode m.
func KnownField(m Mode, f Field) bool {
	catalogsOnce.Do(buildCatalogs)
	_, ok := catalogs[m].fields[f.name]
	return ok
}

// ExclusiveSets holds the types and fields that exist only in the schema
// opposite to the active one. Values are shared and must not be modified.
type ExclusiveSets struct {
	Types  map[Type]struct{}
	Fields map[string]struct{}
}

// Exclusive returns the set difference other(active) - active, computed once per process.
func Exclusive(active Mode) ExclusiveSets {
	catalogsOnce.Do(buildCatalogs)
	ex := exclusive[active]
	return ExclusiveSets{Types: ex.types, Fields: ex.fields}
}

// HasType reports whether t is exclusive to the other schema.
func (s ExclusiveSets) HasType(t Type) bool {
	_, ok := s.Types[t]
	return ok
}

// HasField reports whether f is exclusive to the other schema.
func (s ExclusiveSets) HasField(f Field) bool {
	_, ok := s.Fields[f.name]
	return ok
}

// TypesOf returns the type vocabulary of m in a stable order.
func TypesOf(m Mode) []Type {
	if m == ModeBibLaTeX {
		return slices.Clone(biblatexTypes)
	}
	return slices.Clone(bibtexTypes)
}

// FieldsOf returns the field vocabulary of m in a stable order.
func FieldsOf(m Mode) []Field {
	out := slices.Concat(commonFields, bibtexFields)
	if m == ModeBibLaTeX {
		out = append(out, biblatexOnlyFields...)
	}
	return out
}
