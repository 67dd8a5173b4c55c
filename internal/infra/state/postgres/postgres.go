// Package postgres persists the state document as a single JSONB row.
// It suits deployments that already run a database and prefer it over
// an external Gist.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
)

// documentKey identifies the single row holding the whole document.
// Keeping it a column rather than a constant table makes hand inspection
// and future multi-tenant splits trivial.
const documentKey = "briefing"

// Store implements the document store port over a Postgres table.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and ensures the state table exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing connection, mainly for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS briefing_state (
    key        TEXT PRIMARY KEY,
    document   JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

// Load reads the document row. A missing row reads as an empty document.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	const query = `SELECT document FROM briefing_state WHERE key = $1`

	var doc []byte
	err := s.db.QueryRowContext(ctx, query, documentKey).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state document: %w", err)
	}
	return doc, nil
}

// Save upserts the document row.
func (s *Store) Save(ctx context.Context, data []byte) error {
	const query = `
INSERT INTO briefing_state (key, document, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, documentKey, data); err != nil {
		return fmt.Errorf("save state document: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
