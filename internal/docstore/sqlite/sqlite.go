// Package sqlite keeps user documents in the user_data table of the main
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/measureiq/internal/docstore"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, userID string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM user_data WHERE user_id = ?", userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user data: %w", err)
	}
	return []byte(data), nil
}

func (s *Store) Put(ctx context.Context, userID string, doc []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_data (user_id, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, userID, string(doc))
	if err != nil {
		return fmt.Errorf("failed to upsert user data: %w", err)
	}
	return nil
}
