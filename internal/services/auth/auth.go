// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth verifies administrator credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/go-newsletter/internal/models"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet requirements")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

type Service struct {
	repo              *repository.Repository
	passwordValidator *PasswordValidator
	cost              int
}

func NewService(repo *repository.Repository) *Service {
	return &Service{
		repo:              repo,
		passwordValidator: DefaultPasswordValidator(),
		cost:              bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost for new hashes.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// Login authenticates a user and returns the user if successful
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "username", username, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "username", username, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	slog.Info("login_success", "user_id", user.ID, "username", username)
	return user, nil
}

// CreateUser validates the password and stores a new administrator.
func (s *Service) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	if result := s.passwordValidator.Validate(password, username); !result.Valid {
		return nil, fmt.Errorf("%w: %w", ErrWeakPassword, &PasswordValidationError{Errors: result.Errors})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, username, string(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user_created", "user_id", user.ID, "username", username)
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator when no user exists yet.
// Existing users are left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	if count > 0 {
		return nil
	}

	if _, err := s.CreateUser(ctx, username, password); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}
