package bibtex

import (
	"bufio"
	"fmt"
	"io"

	"bibcheck/internal/entry"
)

// WriteEntry serializes e in the usual JabRef layout: one field per line,
// two-space indent, values in braces.
func WriteEntry(w io.Writer, e *entry.Entry) error {
	bw := bufio.NewWriter(w)
	key, _ := e.CitationKey()
	fmt.Fprintf(bw, "@%s{%s,\n", e.Type(), key)
	fields := e.Fields()
	for i, f := range fields {
		v, _ := e.Field(f)
		sep := ","
		if i == len(fields)-1 {
			sep = ""
		}
		fmt.Fprintf(bw, "  %s = %s%s\n", f.Name(), FormatValue(v), sep)
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

// WriteDatabase writes the preamble, the @string macros and every entry of db.
func WriteDatabase(w io.Writer, db *entry.Database) error {
	bw := bufio.NewWriter(w)
	if p := db.Preamble(); p != "" {
		fmt.Fprintf(bw, "@preamble{%s}\n\n", p)
	}
	names := db.MacroNames()
	for _, name := range names {
		v, _ := db.Macro(name)
		fmt.Fprintf(bw, "@string{%s = %s}\n", name, FormatValue(v))
	}
	if len(names) > 0 {
		bw.WriteString("\n")
	}
	for i, e := range db.Entries() {
		if i > 0 {
			bw.WriteString("\n")
		}
		if err := WriteEntry(bw, e); err != nil {
			return err
		}
	}
	if db.Mode() == entry.ModeBibLaTeX {
		fmt.Fprintf(bw, "\n@comment{%s databaseType:%s;}\n", metaPrefix, db.Mode())
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write database: %w", err)
	}
	return nil
}
