package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"bibcheck/internal/check"
	"bibcheck/internal/entry"
	"bibcheck/internal/journals"
	"bibcheck/internal/keygen"
)

// Preferences maps the [check], [keys] and [files] sections onto check.Preferences.
func (c *Config) Preferences() check.Preferences {
	prefs := check.Preferences{
		EnforceLegalKey:     c.Keys.EnforceLegal,
		AllowIntegerEdition: c.Check.AllowIntegerEdition,
		ASCIIOnly:           c.Check.ASCIIOnly,
		KeyPattern:          c.Keys.Pattern,
		UnwantedCharacters:  c.Keys.UnwantedCharacters,
		FileDirectories:     append([]string(nil), c.Files.Directories...),
	}
	for _, name := range c.Check.VenueFields {
		prefs.VenueFields = append(prefs.VenueFields, entry.FieldFor(strings.ToLower(strings.TrimSpace(name))))
	}
	return prefs
}

// KeyGenerator builds the generator for [keys].pattern.
func (c *Config) KeyGenerator() (*keygen.Generator, error) {
	gen, err := keygen.New(keygen.Options{Pattern: c.Keys.Pattern, UnwantedCharacters: c.Keys.UnwantedCharacters})
	if err != nil {
		return nil, fmt.Errorf("[keys].pattern: %w", err)
	}
	return gen, nil
}

// LoadJournals loads the journal and predatory venue lists. The store, when
// configured, is read first and the list files are added on top.
func (c *Config) LoadJournals(ctx context.Context) (*journals.List, *journals.PredatoryList, error) {
	abbrevs := journals.NewList()
	predatory := journals.NewPredatoryList()
	if c.Journals.Store != "" {
		store, err := journals.OpenStore(ctx, c.Journals.Store)
		if err != nil {
			return nil, nil, err
		}
		defer store.Close()
		if abbrevs, err = store.Abbreviations(ctx); err != nil {
			return nil, nil, err
		}
		if predatory, err = store.Predatory(ctx); err != nil {
			return nil, nil, err
		}
	}
	if len(c.Journals.Abbreviations) > 0 {
		fromFiles, err := journals.LoadCSV(c.Journals.Abbreviations...)
		if err != nil {
			return nil, nil, err
		}
		abbrevs.Add(fromFiles.Entries()...)
	}
	if len(c.Journals.Predatory) > 0 {
		fromFiles, err := journals.LoadPredatory(c.Journals.Predatory...)
		if err != nil {
			return nil, nil, err
		}
		predatory.Add(fromFiles.Names()...)
	}
	return abbrevs, predatory, nil
}

// Deps builds the checker collaborators. Empty journal lists disable the
// journal checks instead of reporting every journal as unknown.
func (c *Config) Deps(ctx context.Context) (check.Deps, error) {
	var deps check.Deps
	if c.Keys.CheckGenerated {
		gen, err := c.KeyGenerator()
		if err != nil {
			return check.Deps{}, err
		}
		deps.Keys = gen
	}
	abbrevs, predatory, err := c.LoadJournals(ctx)
	if err != nil {
		return check.Deps{}, err
	}
	if abbrevs.Len() > 0 {
		deps.Journals = abbrevs
	}
	if predatory.Len() > 0 {
		deps.Predatory = predatory
	}
	if !c.Files.CheckLinks {
		deps.FileExists = func(string) bool { return true }
	}
	return deps, nil
}

// Suite builds the checker suite for this configuration.
func (c *Config) Suite(ctx context.Context) (*check.Suite, error) {
	deps, err := c.Deps(ctx)
	if err != nil {
		return nil, err
	}
	return check.NewSuite(c.Preferences(), deps), nil
}

// Fingerprint identifies everything besides file content that changes
// check results; the disk cache keys on it.
func (c *Config) Fingerprint() string {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	_ = enc.Encode(struct {
		Check    CheckConfig    `toml:"check"`
		Keys     KeysConfig     `toml:"keys"`
		Journals JournalsConfig `toml:"journals"`
		Files    FilesConfig    `toml:"files"`
	}{c.Check, c.Keys, c.Journals, c.Files})
	paths := append(append([]string{}, c.Journals.Abbreviations...), c.Journals.Predatory...)
	if c.Journals.Store != "" {
		paths = append(paths, c.Journals.Store)
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			fmt.Fprintf(&b, "%s %d %d\n", p, info.Size(), info.ModTime().UnixNano())
		}
	}
	return b.String()
}
