// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
	"codeberg.org/oliverandrich/go-newsletter/internal/errchain"
	"codeberg.org/oliverandrich/go-newsletter/internal/metrics"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrInvalidTokenFormat = errors.New("invalid subscription token format")
	ErrTokenNotFound      = errors.New("unknown subscription token")
)

// ConfirmStore resolves tokens and confirms subscribers.
type ConfirmStore interface {
	SubscriberIDFromToken(ctx context.Context, token domain.SubscriptionToken) (uuid.UUID, error)
	ConfirmSubscriber(ctx context.Context, id uuid.UUID) error
}

// Confirmer moves subscribers from pending to confirmed.
type Confirmer struct {
	store   ConfirmStore
	metrics *metrics.Metrics
}

func NewConfirmer(store ConfirmStore, m *metrics.Metrics) *Confirmer {
	return &Confirmer{store: store, metrics: m}
}

// Confirm validates rawToken, resolves it to a subscriber and marks that
// subscriber confirmed. Confirming an already confirmed subscriber succeeds.
//
// Errors wrap ErrInvalidTokenFormat or ErrTokenNotFound for client errors.
// Any other error is an *errchain.Error carrying the data access failure.
func (c *Confirmer) Confirm(ctx context.Context, rawToken string) error {
	token, err := domain.ParseSubscriptionToken(rawToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTokenFormat, err)
	}

	id, err := c.store.SubscriberIDFromToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTokenNotFound
	}
	if err != nil {
		return errchain.Wrap(err, "failed to retrieve the subscriber id associated with the provided token")
	}

	if err := c.store.ConfirmSubscriber(ctx, id); err != nil {
		return errchain.Wrap(err, "failed to update the subscriber status to confirmed")
	}

	c.metrics.IncConfirmed()
	slog.InfoContext(ctx, "subscription_confirmed", "subscriber_id", id)

	return nil
}
