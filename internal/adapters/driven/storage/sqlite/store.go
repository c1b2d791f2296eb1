package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// Store is a SQLite-backed watermark store.
type Store struct {
	db   *sql.DB
	path string
}

// Ensure Store implements the interface.
var _ driven.CheckpointStore = (*Store)(nil)

// NewStore opens or creates the database at path and applies migrations.
// If path is empty, defaults to ~/.moviesync/checkpoints.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".moviesync", "checkpoints.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// migrate applies pending goose migrations from the embedded files.
func migrate(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Read returns every stored watermark. A fresh database yields an empty map.
func (s *Store) Read(ctx context.Context) (domain.Watermarks, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, last_updated_at FROM watermarks")
	if err != nil {
		return nil, fmt.Errorf("querying watermarks: %w", err)
	}
	defer rows.Close()

	marks := make(domain.Watermarks)
	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, fmt.Errorf("scanning watermark: %w", err)
		}
		k, err := domain.ParseEntityKind(kind)
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return nil, fmt.Errorf("parsing %s watermark %q: %w", kind, value, err)
		}
		marks[k] = ts
	}
	return marks, rows.Err()
}

// Write replaces the stored watermarks in a single transaction.
func (s *Store) Write(ctx context.Context, marks domain.Watermarks) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM watermarks"); err != nil {
		return fmt.Errorf("clearing watermarks: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for kind, ts := range marks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO watermarks (kind, last_updated_at, written_at)
			VALUES (?, ?, ?)
			ON CONFLICT(kind) DO UPDATE SET
				last_updated_at = excluded.last_updated_at,
				written_at = excluded.written_at
		`, string(kind), ts.UTC().Format(time.RFC3339Nano), now)
		if err != nil {
			return fmt.Errorf("saving %s watermark: %w", kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit watermarks: %w", err)
	}
	return nil
}
