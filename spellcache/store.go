// Package spellcache keeps correction-service responses in a local SQLite
// database keyed by the exact text that was submitted.
//
// The cache only grows: a stored response is never replaced, and empty
// responses are never stored so that they are asked for again next time.
package spellcache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const table = "spell"

// Store is a persistent get-or-compute cache.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the cache at path, creating the file and its schema on first
// use. An existing cache with the same table layout is reused as is.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection keeps writes ordered.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing cache %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored output for input. On a miss it calls compute and,
// when the result is non-empty, stores it before returning. Errors from
// compute are returned unchanged and leave the cache untouched.
func (s *Store) Get(ctx context.Context, input string, compute func(context.Context, string) (string, error)) (string, error) {
	output, found, err := s.lookup(ctx, input)
	if err != nil {
		return "", err
	}
	if found {
		return output, nil
	}

	output, err = compute(ctx, input)
	if err != nil {
		return "", err
	}
	if output == "" {
		return output, nil
	}
	if err := s.insert(ctx, input, output); err != nil {
		return "", err
	}
	return output, nil
}

// Len returns the number of stored responses.
func (s *Store) Len(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache records: %w", err)
	}
	return n, nil
}

func (s *Store) lookup(ctx context.Context, input string) (string, bool, error) {
	query, args, err := sq.Select("output").From(table).Where(sq.Eq{"input": input}).ToSql()
	if err != nil {
		return "", false, err
	}
	var output string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&output)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("reading cache: %w", err)
	}
	return output, true, nil
}

func (s *Store) insert(ctx context.Context, input, output string) error {
	// First stored answer wins.
	query, args, err := sq.Insert(table).
		Options("OR IGNORE").
		Columns("input", "output").
		Values(input, output).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}
