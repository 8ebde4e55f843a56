// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-newsletter/internal/database"
	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
	"codeberg.org/oliverandrich/go-newsletter/internal/models"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestSubscriber creates a subscriber with one token and returns both.
func NewTestSubscriber(t *testing.T, repo *repository.Repository, email string, status models.SubscriptionStatus) (*models.Subscriber, domain.SubscriptionToken) {
	t.Helper()
	return NewTestSubscriberAt(t, repo, email, status, time.Now().UTC())
}

// NewTestSubscriberAt is NewTestSubscriber with an explicit subscription
// time, for tests that depend on delivery order.
func NewTestSubscriberAt(t *testing.T, repo *repository.Repository, email string, status models.SubscriptionStatus, subscribedAt time.Time) (*models.Subscriber, domain.SubscriptionToken) {
	t.Helper()
	ctx := context.Background()

	sub := &models.Subscriber{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test Subscriber",
		SubscribedAt: subscribedAt,
		Status:       models.StatusPendingConfirmation,
	}
	token, err := domain.NewSubscriptionToken()
	require.NoError(t, err)
	require.NoError(t, repo.CreatePendingSubscription(ctx, sub, token))

	if status == models.StatusConfirmed {
		require.NoError(t, repo.ConfirmSubscriber(ctx, sub.ID))
		sub.Status = models.StatusConfirmed
	}
	return sub, token
}

// InsertRawSubscriber inserts a subscriber row bypassing domain validation,
// for simulating legacy or corrupt data.
func InsertRawSubscriber(t *testing.T, db *sqlx.DB, email string, status models.SubscriptionStatus) uuid.UUID {
	t.Helper()
	return InsertRawSubscriberAt(t, db, email, status, time.Now().UTC())
}

// InsertRawSubscriberAt is InsertRawSubscriber with an explicit subscription time.
func InsertRawSubscriberAt(t *testing.T, db *sqlx.DB, email string, status models.SubscriptionStatus, subscribedAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO subscriptions (id, email, name, subscribed_at, status) VALUES (?, ?, ?, ?, ?)`,
		id, email, "Raw Subscriber", subscribedAt, status)
	require.NoError(t, err)
	return id
}

// NewTestUser creates an admin user with the given password.
func NewTestUser(t *testing.T, repo *repository.Repository, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := repo.CreateUser(context.Background(), username, string(hash))
	require.NoError(t, err)
	return user
}

// NewFormRequest creates a form-encoded HTTP request for testing.
func NewFormRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}
