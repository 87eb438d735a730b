package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bibcheck/internal/config"
	"bibcheck/internal/diag"
	"bibcheck/internal/diagfmt"
	"bibcheck/internal/driver"
	"bibcheck/internal/fix"
	"bibcheck/internal/source"
	"bibcheck/internal/version"
)

type outputOptions struct {
	context    int8
	suggest    bool
	preview    bool
	noWarnings bool
}

func readOutputFlags(cmd *cobra.Command) (outputOptions, error) {
	var opts outputOptions
	ctxLines, err := cmd.Flags().GetInt("context")
	if err != nil {
		return opts, fmt.Errorf("failed to get context flag: %w", err)
	}
	if ctxLines < 0 || ctxLines > 10 {
		return opts, fmt.Errorf("--context must be between 0 and 10")
	}
	opts.context = int8(ctxLines) // #nosec G115 -- bounded above
	if opts.suggest, err = cmd.Flags().GetBool("suggest"); err != nil {
		return opts, fmt.Errorf("failed to get suggest flag: %w", err)
	}
	if opts.preview, err = cmd.Flags().GetBool("preview"); err != nil {
		return opts, fmt.Errorf("failed to get preview flag: %w", err)
	}
	if opts.noWarnings, err = cmd.Flags().GetBool("no-warnings"); err != nil {
		return opts, fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	opts.suggest = opts.suggest || opts.preview
	return opts, nil
}

func dropNonErrors(results []driver.FileResult) {
	for _, r := range results {
		if r.Bag != nil {
			r.Bag.Filter(func(m diag.Message) bool { return m.Severity() == diag.SevError })
		}
	}
}

// fixBuilder builds fixes for the checked databases. New keys must be free
// in every checked file.
func fixBuilder(s *settings, results []driver.FileResult) (fix.Builder, error) {
	gen, err := s.cfg.KeyGenerator()
	if err != nil {
		return fix.Builder{}, err
	}
	return fix.Builder{
		Keys:     gen,
		Unwanted: s.cfg.Keys.UnwantedCharacters,
		Taken: func(key string) bool {
			for _, r := range results {
				if r.DB != nil && r.DB.HasKey(key) {
					return true
				}
			}
			return false
		},
	}, nil
}

func displayPath(r driver.FileResult, fileSet *source.FileSet, mode string) string {
	if r.DB == nil || fileSet == nil || int(r.FileID) >= fileSet.Len() {
		return r.Path
	}
	return fileSet.Get(r.FileID).FormatPath(mode, fileSet.BaseDir())
}

// renderResults writes results in s.cfg.Run.Format.
func renderResults(w io.Writer, s *settings, fileSet *source.FileSet, results []driver.FileResult, opts outputOptions) error {
	pathMode, ok := diagfmt.ParsePathMode(s.cfg.Run.PathMode)
	if !ok {
		return fmt.Errorf("unknown path mode: %s", s.cfg.Run.PathMode)
	}
	var builder fix.Builder
	if opts.suggest {
		var err error
		if builder, err = fixBuilder(s, results); err != nil {
			return err
		}
	}

	switch s.cfg.Run.Format {
	case config.FormatPretty:
		prettyOpts := diagfmt.PrettyOpts{
			Color:       s.color,
			Context:     opts.context,
			PathMode:    pathMode,
			ShowFixes:   opts.suggest,
			ShowPreview: opts.preview,
			Fixes:       builder,
		}
		printed := 0
		bags := make([]*diag.Bag, 0, len(results))
		for _, r := range results {
			bags = append(bags, r.Bag)
			if r.Bag == nil || r.Bag.Len() == 0 {
				continue
			}
			if printed > 0 {
				fmt.Fprintln(w)
			}
			if len(results) > 1 {
				fmt.Fprintf(w, "== %s ==\n", displayPath(r, fileSet, s.cfg.Run.PathMode))
			}
			diagfmt.Pretty(w, r.Bag, fileSet, prettyOpts)
			printed++
		}
		if !s.quiet {
			if printed > 0 {
				fmt.Fprintln(w)
			}
			diagfmt.Summary(w, len(results), diagfmt.Count(bags...), s.color)
		}
	case config.FormatShort:
		var all []diag.Message
		for _, r := range results {
			if r.Bag != nil {
				all = append(all, r.Bag.Items()...)
			}
		}
		if output := diag.FormatShortMessages(all, fileSet); output != "" {
			fmt.Fprintln(w, output)
		}
	case config.FormatJSON:
		jsonOpts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeFixes:     opts.suggest,
			IncludePreviews:  opts.preview,
			Fixes:            builder,
		}
		if len(results) == 1 {
			return diagfmt.JSON(w, results[0].Bag, fileSet, jsonOpts)
		}
		bags := make(map[string]*diag.Bag, len(results))
		for _, r := range results {
			bags[displayPath(r, fileSet, s.cfg.Run.PathMode)] = r.Bag
		}
		return diagfmt.JSONFiles(w, bags, fileSet, jsonOpts)
	case config.FormatSarif:
		merged := diag.NewBag(0)
		for _, r := range results {
			merged.Merge(r.Bag)
		}
		meta := diagfmt.SarifRunMeta{
			ToolName:       "bibcheck",
			ToolVersion:    version.Get().Version,
			InvocationArgs: s.args,
		}
		return diagfmt.Sarif(w, merged, fileSet, meta)
	default:
		return fmt.Errorf("unknown format: %s", s.cfg.Run.Format)
	}
	return nil
}
