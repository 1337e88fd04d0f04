package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const minPasswordLength = 8

// UserService registers users and exchanges credentials for API tokens.
type UserService struct {
	repo   *storage.SQLiteRepository
	tokens *auth.TokenManager
	cost   int
	now    func() time.Time
}

func NewUserService(repo *storage.SQLiteRepository, tokens *auth.TokenManager) *UserService {
	return &UserService{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

// Register creates a user and returns it with a fresh token.
func (s *UserService) Register(ctx context.Context, email, name, password string) (core.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return core.User{}, "", core.NewValidationError("email", "is not a valid address")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.User{}, "", core.NewValidationError("name", "is required")
	}
	if len(password) < minPasswordLength {
		return core.User{}, "", core.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	u := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Queries().CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return core.User{}, "", fmt.Errorf("email already registered: %w", core.ErrConflict)
		}
		return core.User{}, "", err
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return core.User{}, "", err
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return u, token, nil
}

// Login verifies credentials. Unknown emails and wrong passwords both yield core.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	u, err := s.repo.Queries().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, "", fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
		}
		return core.User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, "", fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return core.User{}, "", err
	}
	return u, token, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (core.User, error) {
	return s.repo.Queries().GetUser(ctx, id)
}
