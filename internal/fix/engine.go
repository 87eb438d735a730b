package fix

// todo: --backup флаг: писать .bak рядом с изменённым файлом перед заменой.

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"bibcheck/internal/bibtex"
	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota
	ApplyModeAll
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
	// Threshold is the least confident applicability ApplyModeAll accepts.
	// The zero value only applies always-safe fixes.
	Threshold diag.FixApplicability
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID            string
	Title         string
	Code          diag.Code
	Message       string
	Applicability diag.FixApplicability
	PrimaryPath   string
	EditCount     int
	NewValue      string
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	msg   diag.Message
	span  source.Span
	fix   Fix
	order int
}

func newResult() *ApplyResult {
	return &ApplyResult{
		Applied:     make([]AppliedFix, 0),
		Skipped:     make([]SkippedFix, 0),
		FileChanges: make([]FileChange, 0),
	}
}

// ApplyToEntries builds fixes for msgs and applies the selected ones to the
// entries in memory.
func ApplyToEntries(msgs []diag.Message, opts ApplyOptions, b Builder) (*ApplyResult, error) {
	result := newResult()
	candidates, buildSkips := gatherCandidates(nil, msgs, b)
	result.Skipped = append(result.Skipped, buildSkips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	selected, selectionSkips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, selectionSkips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	type target struct {
		e     *entry.Entry
		field string
	}
	touched := make(map[target]bool)
	for _, cand := range selected {
		t := target{cand.fix.Entry, cand.fix.Field.Name()}
		if touched[t] {
			result.Skipped = append(result.Skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Reason: "conflicts with a previously applied fix",
			})
			continue
		}
		touched[t] = true
		if cand.fix.IsKeyFix() {
			cand.fix.Entry.SetCitationKey(cand.fix.NewValue)
		} else {
			cand.fix.Entry.SetField(cand.fix.Field, cand.fix.NewValue)
		}
		result.Applied = append(result.Applied, appliedFrom(cand, cand.fix.Entry.String(), 1))
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

// ApplyToFiles builds fixes for msgs, selects a subset according to opts and
// writes them back to the source files as span edits. Entries must have
// been read from files in fs.
func ApplyToFiles(fs *source.FileSet, msgs []diag.Message, opts ApplyOptions, b Builder) (*ApplyResult, error) {
	result := newResult()
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates, buildSkips := gatherCandidates(fs, msgs, b)
	result.Skipped = append(result.Skipped, buildSkips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}

	sortCandidates(candidates)

	selected, selectionSkips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, selectionSkips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	applied, skippedDuringApply, changes, err := applyCandidates(fs, selected)
	result.Applied = append(result.Applied, applied...)
	result.Skipped = append(result.Skipped, skippedDuringApply...)
	result.FileChanges = append(result.FileChanges, changes...)

	if err != nil {
		return result, err
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

// gatherCandidates builds one fix per fixable message. With a FileSet the
// fixes also get their text edits. Keys handed out by regenerate-key fixes
// are reserved so that two entries never receive the same new key.
func gatherCandidates(fs *source.FileSet, msgs []diag.Message, b Builder) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0)
	skips := make([]SkippedFix, 0)
	seen := make(map[string]bool)

	reserved := make(map[string]bool)
	taken := b.Taken
	b.Taken = func(key string) bool {
		return reserved[key] || (taken != nil && taken(key))
	}

	order := 0
	for i, m := range msgs {
		if _, ok := m.Code().Fix(); !ok {
			continue
		}
		span, _ := m.Span()
		id := ID(m, i)

		f, err := b.Build(m)
		if err != nil {
			skips = append(skips, SkippedFix{
				ID:     id,
				Title:  m.Text(),
				Reason: fmt.Sprintf("failed to build fix: %v", err),
			})
			continue
		}
		f.ID = id
		if seen[f.ID] {
			skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Reason: "duplicate fix id"})
			continue
		}
		if fs != nil {
			edits, err := fileEdits(fs, f)
			if err != nil {
				skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Reason: err.Error()})
				continue
			}
			f.Edits = edits
		}
		seen[f.ID] = true
		if f.IsKeyFix() {
			reserved[f.NewValue] = true
		}
		cands = append(cands, candidate{
			msg:   m,
			span:  span,
			fix:   f,
			order: order,
		})
		order++
	}
	return cands, skips
}

// ID names the fix of m. Messages with a source location get a stable
// "CODE-file-offset" id; others fall back to their position in the list.
func ID(m diag.Message, index int) string {
	if span, ok := m.Span(); ok {
		return fmt.Sprintf("%s-%d-%d", m.Code().ID(), span.File, span.Start)
	}
	return fmt.Sprintf("%s-%d", m.Code().ID(), index)
}

// Suggest builds the fix for the message at index of a list. Entries read
// from a file in fs also get their text edits.
func Suggest(fs *source.FileSet, m diag.Message, index int, b Builder) (Fix, error) {
	f, err := b.Build(m)
	if err != nil {
		return Fix{}, err
	}
	f.ID = ID(m, index)
	if fs != nil && f.Entry.HasSpans() {
		edits, err := fileEdits(fs, f)
		if err != nil {
			return Fix{}, err
		}
		f.Edits = edits
	}
	return f, nil
}

// fileEdits turns a fix into a replacement of the key or the field value.
// An empty key span (entry without key) becomes an insertion.
func fileEdits(fs *source.FileSet, f Fix) ([]TextEdit, error) {
	e := f.Entry
	if !e.HasSpans() {
		return nil, errors.New("entry has no source location")
	}
	var span source.Span
	newText := f.NewValue
	if f.IsKeyFix() {
		span = e.KeySpan()
	} else {
		sp, ok := e.FieldSpan(f.Field)
		if !ok {
			return nil, fmt.Errorf("field %s has no source location", f.Field.Name())
		}
		span = sp
		newText = bibtex.FormatValue(f.NewValue)
	}
	if int(span.File) >= fs.Len() {
		return nil, errors.New("entry belongs to another file set")
	}
	file := fs.Get(span.File)
	if f.IsKeyFix() && span.Empty() && int(span.Start) < len(file.Content) {
		switch file.Content[span.Start] {
		case ',', '}', ')':
		default:
			newText += ", "
		}
	}
	return []TextEdit{{
		Span:    span,
		NewText: newText,
		OldText: string(file.Slice(span)),
	}}, nil
}

// sortCandidates orders by file, span start, span end, insertion order and code.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].span, candidates[j].span
		if si.File != sj.File {
			return si.File < sj.File
		}
		if si.Start != sj.Start {
			return si.Start < sj.Start
		}
		if si.End != sj.End {
			return si.End < sj.End
		}
		if candidates[i].order != candidates[j].order {
			return candidates[i].order < candidates[j].order
		}
		return candidates[i].msg.Code() < candidates[j].msg.Code()
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.fix.ID == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{
			ID:     opts.TargetID,
			Reason: "fix id not found",
		}}
	case ApplyModeAll:
		selected := make([]candidate, 0, len(candidates))
		skipped := make([]SkippedFix, 0)
		for _, cand := range candidates {
			if cand.fix.Applicability <= opts.Threshold {
				selected = append(selected, cand)
				continue
			}
			skipped = append(skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Reason: fmt.Sprintf("applicability is %s", cand.fix.Applicability.String()),
			})
		}
		return selected, skipped
	case ApplyModeOnce:
		for _, cand := range candidates {
			if cand.fix.Applicability == diag.FixApplicabilityAlwaysSafe {
				return []candidate{cand}, nil
			}
		}
		return []candidate{candidates[0]}, nil
	default:
		return nil, nil
	}
}

func appliedFrom(cand candidate, path string, edits int) AppliedFix {
	return AppliedFix{
		ID:            cand.fix.ID,
		Title:         cand.fix.Title,
		Code:          cand.msg.Code(),
		Message:       cand.msg.Text(),
		Applicability: cand.fix.Applicability,
		PrimaryPath:   path,
		EditCount:     edits,
		NewValue:      cand.fix.NewValue,
	}
}

func applyCandidates(fs *source.FileSet, selected []candidate) ([]AppliedFix, []SkippedFix, []FileChange, error) {
	buffers := make(map[source.FileID][]byte)
	appliedEdits := make(map[source.FileID][]TextEdit)
	fileEditCount := make(map[source.FileID]int)

	applied := make([]AppliedFix, 0, len(selected))
	skipped := make([]SkippedFix, 0)

	baseDir := fs.BaseDir()

	for _, cand := range selected {
		buckets := groupEditsByFile(cand.fix.Edits)
		stagedBuffers := make(map[source.FileID][]byte)
		stagedApplied := make(map[source.FileID][]TextEdit)
		totalEdits := 0
		var skipReason string

		for fileID, edits := range buckets {
			file := fs.Get(fileID)
			if file.Flags&source.FileVirtual != 0 {
				skipReason = "target file is virtual"
				break
			}
			if conflictsWithExisting(appliedEdits[fileID], edits) {
				skipReason = fmt.Sprintf("conflicts with previously applied edits in %s", file.FormatPath("auto", baseDir))
				break
			}

			working := buffers[fileID]
			if working == nil {
				working = append([]byte(nil), file.Content...)
			} else {
				working = append([]byte(nil), working...)
			}

			sort.SliceStable(edits, func(i, j int) bool {
				if edits[i].Span.Start == edits[j].Span.Start {
					return edits[i].Span.End > edits[j].Span.End
				}
				return edits[i].Span.Start > edits[j].Span.Start
			})

			existing := append([]TextEdit(nil), appliedEdits[fileID]...)
			for _, edit := range edits {
				start := int(edit.Span.Start) + cumulativeDelta(existing, int(edit.Span.Start))
				end := int(edit.Span.End) + cumulativeDelta(existing, int(edit.Span.End))
				if start < 0 || end < start || end > len(working) {
					skipReason = "edit span out of range"
					break
				}
				if string(working[start:end]) != edit.OldText {
					skipReason = "existing text does not match expected content"
					break
				}
				suffix := append([]byte(nil), working[end:]...)
				working = append(append(working[:start], edit.NewText...), suffix...)
				existing = insertEditSorted(existing, edit)
			}
			if skipReason != "" {
				break
			}
			stagedBuffers[fileID] = working
			stagedApplied[fileID] = existing
			totalEdits += len(edits)
		}

		if skipReason != "" {
			skipped = append(skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Reason: skipReason,
			})
			continue
		}

		for fileID, buf := range stagedBuffers {
			buffers[fileID] = buf
			fileEditCount[fileID] += len(buckets[fileID])
			appliedEdits[fileID] = stagedApplied[fileID]
		}
		applied = append(applied, appliedFrom(cand, formatFilePath(fs, cand.span.File), totalEdits))
	}

	if len(applied) == 0 {
		return applied, skipped, nil, nil
	}

	fileChanges := make([]FileChange, 0, len(buffers))
	for fileID, buf := range buffers {
		file := fs.Get(fileID)
		if err := writeFile(file, buf); err != nil {
			return applied, skipped, fileChanges, fmt.Errorf("write %s: %w", file.Path, err)
		}
		fileChanges = append(fileChanges, FileChange{
			Path:      file.FormatPath("relative", baseDir),
			EditCount: fileEditCount[fileID],
		})
	}

	sort.SliceStable(fileChanges, func(i, j int) bool {
		return fileChanges[i].Path < fileChanges[j].Path
	})

	return applied, skipped, fileChanges, nil
}

// writeFile restores the BOM and line endings stripped on load and replaces
// the file atomically.
func writeFile(file *source.File, buf []byte) error {
	if file.Flags&source.FileNormalizedCRLF != 0 {
		buf = bytes.ReplaceAll(buf, []byte("\n"), []byte("\r\n"))
	}
	if file.Flags&source.FileHadBOM != 0 {
		buf = append([]byte("\ufeff"), buf...)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(file.Path); err == nil {
		mode = info.Mode()
	}
	tmp, err := os.CreateTemp(filepath.Dir(file.Path), ".bibcheck-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), file.Path)
}

func conflictsWithExisting(existing, edits []TextEdit) bool {
	for _, prev := range existing {
		for _, cand := range edits {
			if spansConflict(prev, cand) {
				return true
			}
		}
	}
	return false
}

// spansConflict reports whether two edits touch the same text. Spans are
// half-open; two insertions at one position conflict too, since their order
// would be ambiguous.
func spansConflict(a, b TextEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return aStart == bStart
	}
	if aStart == aEnd {
		return bStart <= aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

func groupEditsByFile(edits []TextEdit) map[source.FileID][]TextEdit {
	buckets := make(map[source.FileID][]TextEdit)
	for _, edit := range edits {
		buckets[edit.Span.File] = append(buckets[edit.Span.File], edit)
	}
	return buckets
}

func cumulativeDelta(edits []TextEdit, pos int) int {
	delta := 0
	for _, e := range edits {
		eStart := int(e.Span.Start)
		if eStart > pos {
			break
		}
		eEnd := int(e.Span.End)
		if eEnd <= pos {
			delta += len(e.NewText) - (eEnd - eStart)
		}
	}
	return delta
}

func insertEditSorted(edits []TextEdit, edit TextEdit) []TextEdit {
	idx := sort.Search(len(edits), func(i int) bool {
		if edits[i].Span.Start == edit.Span.Start {
			return edits[i].Span.End >= edit.Span.End
		}
		return edits[i].Span.Start > edit.Span.Start
	})
	edits = append(edits, TextEdit{})
	copy(edits[idx+1:], edits[idx:])
	edits[idx] = edit
	return edits
}

func formatFilePath(fs *source.FileSet, fileID source.FileID) string {
	if fs == nil || int(fileID) >= fs.Len() {
		return ""
	}
	return fs.Get(fileID).FormatPath("auto", fs.BaseDir())
}
