// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
	"codeberg.org/oliverandrich/go-newsletter/internal/models"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"codeberg.org/oliverandrich/go-newsletter/internal/testutil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

func newMockRepo(t *testing.T) (*repository.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return repository.New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestCreatePendingSubscription(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	sub := &models.Subscriber{
		ID:           uuid.New(),
		Email:        "ursula@example.com",
		Name:         "Ursula",
		SubscribedAt: time.Now().UTC(),
		Status:       models.StatusPendingConfirmation,
	}
	token, err := domain.NewSubscriptionToken()
	require.NoError(t, err)

	err = repo.CreatePendingSubscription(ctx, sub, token)

	require.NoError(t, err)

	stored, err := repo.GetSubscriberByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "ursula@example.com", stored.Email)
	assert.Equal(t, "Ursula", stored.Name)
	assert.Equal(t, models.StatusPendingConfirmation, stored.Status)

	id, err := repo.SubscriberIDFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, id)
}

func TestCreatePendingSubscription_DuplicateEmailRollsBack(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestSubscriber(t, repo, "ursula@example.com", models.StatusPendingConfirmation)

	dup := &models.Subscriber{
		ID:           uuid.New(),
		Email:        "ursula@example.com",
		Name:         "Other",
		SubscribedAt: time.Now().UTC(),
		Status:       models.StatusPendingConfirmation,
	}
	token, err := domain.NewSubscriptionToken()
	require.NoError(t, err)

	err = repo.CreatePendingSubscription(ctx, dup, token)

	require.ErrorIs(t, err, repository.ErrDuplicate)
	_, err = repo.SubscriberIDFromToken(ctx, token)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStoreSubscriptionToken_ManyPerSubscriber(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	sub, first := testutil.NewTestSubscriber(t, repo, "ursula@example.com", models.StatusPendingConfirmation)
	second, err := domain.NewSubscriptionToken()
	require.NoError(t, err)

	err = repo.StoreSubscriptionToken(ctx, sub.ID, second)

	require.NoError(t, err)
	count, err := repo.CountSubscriptionTokens(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	for _, token := range []domain.SubscriptionToken{first, second} {
		id, err := repo.SubscriberIDFromToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, id)
	}
}

func TestSubscriberIDFromToken_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	token, err := domain.ParseSubscriptionToken("ySGXNWj24BXAj15ybqmzn3n4h")
	require.NoError(t, err)

	_, err = repo.SubscriberIDFromToken(context.Background(), token)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscriberIDFromToken_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	token, err := domain.ParseSubscriptionToken("ySGXNWj24BXAj15ybqmzn3n4h")
	require.NoError(t, err)
	dbErr := errors.New("connection refused")
	mock.ExpectQuery("SELECT subscriber_id FROM subscription_tokens").
		WithArgs("ySGXNWj24BXAj15ybqmzn3n4h").
		WillReturnError(dbErr)

	_, err = repo.SubscriberIDFromToken(context.Background(), token)

	require.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmSubscriber(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	sub, _ := testutil.NewTestSubscriber(t, repo, "ursula@example.com", models.StatusPendingConfirmation)

	require.NoError(t, repo.ConfirmSubscriber(ctx, sub.ID))

	stored, err := repo.GetSubscriberByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsConfirmed())
}

func TestConfirmSubscriber_Twice(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	sub, _ := testutil.NewTestSubscriber(t, repo, "ursula@example.com", models.StatusPendingConfirmation)

	require.NoError(t, repo.ConfirmSubscriber(ctx, sub.ID))
	require.NoError(t, repo.ConfirmSubscriber(ctx, sub.ID))

	stored, err := repo.GetSubscriberByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

func TestListConfirmedEmails(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestSubscriber(t, repo, "first@example.com", models.StatusConfirmed)
	testutil.NewTestSubscriber(t, repo, "pending@example.com", models.StatusPendingConfirmation)
	testutil.InsertRawSubscriber(t, db, "not-an-email", models.StatusConfirmed)

	emails, err := repo.ListConfirmedEmails(ctx)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first@example.com", "not-an-email"}, emails)
}

func TestListConfirmedEmails_SubscriptionOrder(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

	testutil.NewTestSubscriberAt(t, repo, "third@example.com", models.StatusConfirmed, base.Add(2*time.Hour))
	testutil.NewTestSubscriberAt(t, repo, "first@example.com", models.StatusConfirmed, base)
	testutil.NewTestSubscriberAt(t, repo, "second@example.com", models.StatusConfirmed, base.Add(time.Hour))

	emails, err := repo.ListConfirmedEmails(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"first@example.com", "second@example.com", "third@example.com"}, emails)
}

func TestListConfirmedEmails_Empty(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	emails, err := repo.ListConfirmedEmails(context.Background())

	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestListConfirmedEmails_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT email FROM subscriptions").
		WillReturnError(errors.New("database is locked"))

	_, err := repo.ListConfirmedEmails(context.Background())

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubscriberByEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	sub, _ := testutil.NewTestSubscriber(t, repo, "ursula@example.com", models.StatusConfirmed)

	found, err := repo.GetSubscriberByEmail(ctx, "ursula@example.com")

	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)
	assert.True(t, found.IsConfirmed())
}

func TestGetSubscriberByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetSubscriberByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}
