package check

import (
	"strings"

	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
)

// DuplicateKeys reports a shared citation key on every entry that has it.
type DuplicateKeys struct{}

func (DuplicateKeys) Prepare(ix *Index) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		key, ok := e.CitationKey()
		if !ok || ix.KeyCount(key) < 2 {
			return nil
		}
		return []diag.Message{diag.NewDetailed(diag.KeyDuplicate, e, entry.Field{}, key)}
	})
}

// DuplicateDOIs reports a shared DOI on every entry that has it.
type DuplicateDOIs struct{}

func (DuplicateDOIs) Prepare(ix *Index) EntryChecker {
	return EntryFunc(func(e *entry.Entry) []diag.Message {
		doi, ok := e.Field(entry.FieldDOI)
		if !ok || isBlank(doi) {
			return nil
		}
		owners := ix.DOIOwners(doi)
		if len(owners) < 2 {
			return nil
		}
		var others []string
		for _, o := range owners {
			if o == e {
				continue
			}
			if k, ok := o.CitationKey(); ok {
				others = append(others, k)
			}
		}
		return []diag.Message{diag.NewDetailed(diag.DOIDuplicate, e, entry.FieldDOI, joinKeys(others))}
	})
}

func joinKeys(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return "also in " + strings.Join(keys, ", ")
}
