package diagfmt

import (
	"encoding/json"
	"io"

	"bibcheck/internal/diag"
	"bibcheck/internal/fix"
	"bibcheck/internal/source"
)

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// FixEditJSON представляет одно редактирование для JSON
type FixEditJSON struct {
	Location    LocationJSON `json:"location"`
	NewText     string       `json:"new_text"`
	OldText     string       `json:"old_text,omitempty"`
	BeforeLines []string     `json:"before_lines,omitempty"`
	AfterLines  []string     `json:"after_lines,omitempty"`
}

// FixJSON представляет предложение по исправлению для JSON
type FixJSON struct {
	ID            string        `json:"id,omitempty"`
	Title         string        `json:"title"`
	Kind          string        `json:"kind"`
	Applicability string        `json:"applicability"`
	NewValue      string        `json:"new_value,omitempty"`
	BuildError    string        `json:"build_error,omitempty"`
	Edits         []FixEditJSON `json:"edits,omitempty"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string        `json:"severity"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Entry    string        `json:"entry,omitempty"`
	Field    string        `json:"field,omitempty"`
	Location *LocationJSON `json:"location,omitempty"`
	Fix      *FixJSON      `json:"fix,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

// makeLocation создаёт LocationJSON из Span
func makeLocation(span source.Span, fs *source.FileSet, pathMode PathMode, includePositions bool) LocationJSON {
	loc := LocationJSON{
		File:      pathMode.format(fs.Get(span.File), fs),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if includePositions {
		startPos, endPos := fs.Resolve(span)
		loc.StartLine = startPos.Line
		loc.StartCol = startPos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}
	return loc
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}
	diagnostics := make([]DiagnosticJSON, 0, maxItems)

	for i := range maxItems {
		m := items[i]
		d := DiagnosticJSON{
			Severity: m.Severity().String(),
			Code:     m.Code().ID(),
			Message:  m.Text(),
		}
		if e := m.Entry(); e != nil {
			d.Entry, _ = e.CitationKey()
		}
		if f, ok := m.Field(); ok {
			d.Field = f.Name()
		}
		if span, ok := m.Span(); ok && fs != nil && int(span.File) < fs.Len() {
			loc := makeLocation(span, fs, opts.PathMode, opts.IncludePositions)
			d.Location = &loc
		}
		if opts.IncludeFixes {
			d.Fix = buildFixJSON(fs, m, i, opts)
		}
		diagnostics = append(diagnostics, d)
	}

	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       len(diagnostics),
	}
}

func buildFixJSON(fs *source.FileSet, m diag.Message, index int, opts JSONOpts) *FixJSON {
	kind, ok := m.Code().Fix()
	if !ok {
		return nil
	}
	out := &FixJSON{
		ID:            fix.ID(m, index),
		Title:         kind.String(),
		Kind:          kind.String(),
		Applicability: kind.Applicability().String(),
	}
	f, err := fix.Suggest(fs, m, index, opts.Fixes)
	if err != nil {
		out.BuildError = err.Error()
		return out
	}
	out.Title = f.Title
	out.NewValue = f.NewValue
	for _, edit := range f.Edits {
		editJSON := FixEditJSON{
			Location: makeLocation(edit.Span, fs, opts.PathMode, opts.IncludePositions),
			NewText:  edit.NewText,
			OldText:  edit.OldText,
		}
		if opts.IncludePreviews {
			if preview, err := buildFixEditPreview(fs, edit); err == nil {
				editJSON.BeforeLines = preview.before
				editJSON.AfterLines = preview.after
			}
		}
		out.Edits = append(out.Edits, editJSON)
	}
	return out
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	return writeJSON(w, BuildDiagnosticsOutput(bag, fs, opts))
}

// JSONFiles writes one DiagnosticsOutput per file path.
func JSONFiles(w io.Writer, bags map[string]*diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	output := make(map[string]DiagnosticsOutput, len(bags))
	for path, bag := range bags {
		output[path] = BuildDiagnosticsOutput(bag, fs, opts)
	}
	return writeJSON(w, output)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
