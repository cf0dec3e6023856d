// Package postgres keeps user documents as JSONB rows in Postgres, one row
// per user.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/vbonduro/measureiq/internal/docstore"
)

const driverName = "pgx"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

type Store struct {
	db *sql.DB
}

// Open connects to dsn and creates the user_data table if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New uses an existing connection pool.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS user_data (
		user_id TEXT PRIMARY KEY,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure user_data table: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM user_data WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user_data: %w", err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, userID string, doc []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_data (user_id, data, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, userID, string(doc))
	if err != nil {
		return fmt.Errorf("upsert user_data: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
