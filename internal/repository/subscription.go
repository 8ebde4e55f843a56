// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
	"codeberg.org/oliverandrich/go-newsletter/internal/models"
	"github.com/google/uuid"
	"github.com/vinovest/sqlx"
)

// CreatePendingSubscription inserts a pending subscriber and its first token
// in one transaction. An email that is already stored yields ErrDuplicate.
func (r *Repository) CreatePendingSubscription(ctx context.Context, sub *models.Subscriber, token domain.SubscriptionToken) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			r.q(`INSERT INTO subscriptions (id, email, name, subscribed_at, status) VALUES (?, ?, ?, ?, ?)`),
			sub.ID, sub.Email, sub.Name, sub.SubscribedAt, sub.Status)
		if err != nil {
			return wrapInsertError(err)
		}
		return r.insertToken(ctx, tx, sub.ID, token)
	})
}

// StoreSubscriptionToken adds another token for an existing subscriber.
func (r *Repository) StoreSubscriptionToken(ctx context.Context, subscriberID uuid.UUID, token domain.SubscriptionToken) error {
	return r.insertToken(ctx, r.db, subscriberID, token)
}

func (r *Repository) insertToken(ctx context.Context, exec sqlx.ExecerContext, subscriberID uuid.UUID, token domain.SubscriptionToken) error {
	_, err := exec.ExecContext(ctx,
		r.q(`INSERT INTO subscription_tokens (subscription_token, subscriber_id) VALUES (?, ?)`),
		token.String(), subscriberID)
	return err
}

// SubscriberIDFromToken resolves a token to its subscriber.
// Returns ErrNotFound when the token does not exist.
func (r *Repository) SubscriberIDFromToken(ctx context.Context, token domain.SubscriptionToken) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id,
		r.q(`SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = ?`),
		token.String())
	if err != nil {
		return uuid.Nil, wrapError(err)
	}
	return id, nil
}

// ConfirmSubscriber sets the subscriber status to confirmed. The write is
// unconditional, so confirming twice is not an error.
func (r *Repository) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		r.q(`UPDATE subscriptions SET status = ? WHERE id = ?`),
		models.StatusConfirmed, id)
	return err
}

// ListConfirmedEmails returns the stored email of every confirmed subscriber
// in subscription order. Emails are returned as stored, without validation.
func (r *Repository) ListConfirmedEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.SelectContext(ctx, &emails,
		r.q(`SELECT email FROM subscriptions WHERE status = ? ORDER BY subscribed_at, id`),
		models.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// GetSubscriberByID retrieves a subscriber by ID.
func (r *Repository) GetSubscriberByID(ctx context.Context, id uuid.UUID) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.GetContext(ctx, &sub,
		r.q(`SELECT id, email, name, subscribed_at, status FROM subscriptions WHERE id = ?`), id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &sub, nil
}

// GetSubscriberByEmail retrieves a subscriber by email address.
func (r *Repository) GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.GetContext(ctx, &sub,
		r.q(`SELECT id, email, name, subscribed_at, status FROM subscriptions WHERE email = ?`), email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &sub, nil
}

// CountSubscriptionTokens counts the tokens issued to a subscriber.
func (r *Repository) CountSubscriptionTokens(ctx context.Context, subscriberID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		r.q(`SELECT COUNT(*) FROM subscription_tokens WHERE subscriber_id = ?`), subscriberID)
	return count, err
}
