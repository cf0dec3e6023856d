package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vbonduro/measureiq/internal/domain"
)

// ErrDuplicateEmail is returned by Create when the address is taken.
var ErrDuplicateEmail = errors.New("email already registered")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, id, email, passwordHash string) (*domain.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)
	`, id, email, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE id = ?
	`, id)
}

// GetByEmail matches the address case-insensitively.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?
	`, email)
}

// GetByResetToken returns the user holding tokenHash if it has not expired
// at now.
func (s *UserStore) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, password_hash, created_at FROM users
		WHERE reset_token = ? AND reset_token_expires > ?
	`, tokenHash, now.Unix())
}

func (s *UserStore) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET reset_token = ?, reset_token_expires = ? WHERE id = ?
	`, tokenHash, expires.Unix(), userID)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

// UpdatePassword stores a new hash and clears any reset token.
func (s *UserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expires = NULL WHERE id = ?
	`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
