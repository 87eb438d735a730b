package journals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS abbreviations (
	name            TEXT NOT NULL,
	abbreviation    TEXT NOT NULL,
	shortest_unique TEXT NOT NULL DEFAULT '',
	name_key        TEXT NOT NULL PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS predatory (
	name     TEXT NOT NULL,
	name_key TEXT NOT NULL PRIMARY KEY
);
`

// Store persists journal and predatory venue lists in a local SQLite file,
// so imported lists survive between runs.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the store at path. ":memory:" works
// for tests.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal store %s: %w", path, err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ImportAbbreviations upserts entries in one transaction and returns how many were written.
func (s *Store) ImportAbbreviations(ctx context.Context, entries []Abbreviation) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO abbreviations (name, abbreviation, shortest_unique, name_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name_key) DO UPDATE SET
			name = excluded.name,
			abbreviation = excluded.abbreviation,
			shortest_unique = excluded.shortest_unique`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	for _, a := range entries {
		if a.Name == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, a.Name, a.Abbreviation, a.ShortestUnique, normalizeName(a.Name)); err != nil {
			return n, fmt.Errorf("failed to import %q: %w", a.Name, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return n, fmt.Errorf("failed to commit import: %w", err)
	}
	return n, nil
}

// ImportPredatory upserts venue names and returns how many were written.
func (s *Store) ImportPredatory(ctx context.Context, names []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	n := 0
	for _, name := range names {
		key := normalizeName(name)
		if key == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO predatory (name, name_key) VALUES (?, ?) ON CONFLICT(name_key) DO NOTHING`,
			name, key); err != nil {
			return 0, errors.Join(fmt.Errorf("failed to import %q: %w", name, err), tx.Rollback())
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return n, nil
}

// Abbreviations loads the stored abbreviation list into memory.
func (s *Store) Abbreviations(ctx context.Context) (*List, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, abbreviation, shortest_unique FROM abbreviations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query abbreviations: %w", err)
	}
	defer rows.Close()

	l := NewList()
	for rows.Next() {
		var a Abbreviation
		if err := rows.Scan(&a.Name, &a.Abbreviation, &a.ShortestUnique); err != nil {
			return nil, fmt.Errorf("failed to scan abbreviation: %w", err)
		}
		l.Add(a)
	}
	return l, rows.Err()
}

// Predatory loads the stored predatory venue names into memory.
func (s *Store) Predatory(ctx context.Context) (*PredatoryList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM predatory ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query predatory venues: %w", err)
	}
	defer rows.Close()

	p := NewPredatoryList()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan predatory venue: %w", err)
		}
		p.Add(name)
	}
	return p, rows.Err()
}

// Counts returns the number of stored abbreviations and predatory venues.
func (s *Store) Counts(ctx context.Context) (abbreviations, predatory int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM abbreviations`).Scan(&abbreviations); err != nil {
		return 0, 0, fmt.Errorf("failed to count abbreviations: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predatory`).Scan(&predatory); err != nil {
		return 0, 0, fmt.Errorf("failed to count predatory venues: %w", err)
	}
	return abbreviations, predatory, nil
}
