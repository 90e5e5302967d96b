package persistence

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"regexp"
	"time"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStore keeps each collection as a JSONB row keyed by name.
type PostgresStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{db: db, table: table, now: time.Now}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

// EnsureSchema creates the collections table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	items JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, name Collection, doc []byte) error {
	query := fmt.Sprintf(`INSERT INTO %s (name, items, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`, s.table)

	if _, err := s.db.ExecContext(ctx, query, string(name), doc, s.now().UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name Collection) ([]byte, error) {
	query := fmt.Sprintf(`SELECT items FROM %s WHERE name = $1`, s.table)

	var doc []byte
	err := s.db.QueryRowContext(ctx, query, string(name)).Scan(&doc)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", name, err)
	}
	return doc, nil
}
