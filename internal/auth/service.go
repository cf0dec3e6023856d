// Package auth handles accounts: registration, sign-in, session tokens and
// password reset by email.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/store"
)

const bcryptCost = 10

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid login")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidResetToken  = errors.New("invalid or expired token")
	ErrMissingCredentials = errors.New("email and password are required")
)

type UserRepository interface {
	Create(ctx context.Context, id, email, passwordHash string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Config struct {
	ResetTokenTTL   time.Duration
	FrontendBaseURL string
}

type Service struct {
	users  UserRepository
	tokens *Tokens
	mailer Mailer
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(users UserRepository, tokens *Tokens, mailer Mailer, cfg Config, logger *slog.Logger) *Service {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 30 * time.Minute
	}
	return &Service{users: users, tokens: tokens, mailer: mailer, cfg: cfg, logger: logger, now: time.Now}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and returns a session token for it.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	email = normaliseEmail(email)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	u, err := s.users.Create(ctx, uuid.NewString(), email, string(hash))
	if errors.Is(err, store.ErrDuplicateEmail) {
		return "", ErrUserExists
	}
	if err != nil {
		return "", err
	}
	s.logger.Info("user registered", "user_id", u.ID)
	return s.tokens.Issue(u)
}

// Login checks the password and returns a fresh session token. Unknown
// addresses and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = normaliseEmail(email)
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(u)
}

// Authenticate verifies a session token.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

var resetMailTmpl = template.Must(template.New("reset").Parse(`<p>You requested a password reset.</p>
<p><a href="{{.URL}}">Click here to reset your password</a></p>
<p>This link expires in {{.Minutes}} minutes.</p>`))

// ForgotPassword emails a reset link when the address belongs to an
// account. It reports success either way so callers cannot probe for
// registered addresses.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normaliseEmail(email)
	if email == "" {
		return nil
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expires := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, u.ID, hashToken(token), expires); err != nil {
		return err
	}

	resetURL := strings.TrimRight(s.cfg.FrontendBaseURL, "/") + "/reset-password.html?token=" + url.QueryEscape(token)
	var body strings.Builder
	err = resetMailTmpl.Execute(&body, struct {
		URL     string
		Minutes int
	}{resetURL, int(s.cfg.ResetTokenTTL.Minutes())})
	if err != nil {
		return fmt.Errorf("failed to render reset mail: %w", err)
	}

	msg := Message{
		To:      u.Email,
		Subject: "Reset your MeasureIQ password",
		HTML:    body.String(),
		Text:    "Reset your password: " + resetURL,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		// the account holder can simply ask again
		s.logger.Warn("failed to send reset mail", "user_id", u.ID, "error", err)
	}
	return nil
}

// ResetPassword sets a new password using an unexpired reset token. The
// token is cleared so it works once.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	if password == "" {
		return ErrMissingCredentials
	}
	u, err := s.users.GetByResetToken(ctx, hashToken(token), s.now())
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidResetToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	s.logger.Info("password reset", "user_id", u.ID)
	return nil
}

// hashToken keeps raw reset tokens out of the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
