// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package subscription implements subscribing and confirming subscriptions.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
	"codeberg.org/oliverandrich/go-newsletter/internal/errchain"
	"codeberg.org/oliverandrich/go-newsletter/internal/i18n"
	"codeberg.org/oliverandrich/go-newsletter/internal/metrics"
	"codeberg.org/oliverandrich/go-newsletter/internal/models"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"github.com/google/uuid"
)

// Result describes what Subscribe did.
type Result string

const (
	ResultCreated          Result = "created"
	ResultResent           Result = "resent"
	ResultAlreadyConfirmed Result = "already_confirmed"
)

// SubscribeStore persists pending subscriptions and their tokens.
type SubscribeStore interface {
	GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	CreatePendingSubscription(ctx context.Context, sub *models.Subscriber, token domain.SubscriptionToken) error
	StoreSubscriptionToken(ctx context.Context, subscriberID uuid.UUID, token domain.SubscriptionToken) error
}

// Mailer sends a message with an HTML and a plain text body.
type Mailer interface {
	Send(ctx context.Context, to domain.SubscriberEmail, subject, html, text string) error
}

// NewSubscriber is a validated subscription request.
type NewSubscriber struct {
	Email domain.SubscriberEmail
	Name  domain.SubscriberName
}

// ParseNewSubscriber validates raw form input.
func ParseNewSubscriber(name, email string) (NewSubscriber, error) {
	n, err := domain.ParseSubscriberName(name)
	if err != nil {
		return NewSubscriber{}, err
	}
	e, err := domain.ParseSubscriberEmail(email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Email: e, Name: n}, nil
}

// Service registers subscribers and sends confirmation emails.
type Service struct {
	store   SubscribeStore
	mailer  Mailer
	baseURL string
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store SubscribeStore, mailer Mailer, baseURL string, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		mailer:  mailer,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe stores a pending subscriber with a fresh token and emails the
// confirmation link. A pending subscriber gets an additional token and a new
// email; a confirmed subscriber is left alone and receives nothing.
func (s *Service) Subscribe(ctx context.Context, in NewSubscriber) (Result, error) {
	existing, err := s.lookup(ctx, in.Email)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.IsConfirmed() {
		return s.alreadyConfirmed(ctx, existing), nil
	}

	token, err := domain.NewSubscriptionToken()
	if err != nil {
		return "", errchain.Wrap(err, "failed to generate a subscription token")
	}

	result := ResultResent
	if existing == nil {
		sub := &models.Subscriber{
			ID:           uuid.New(),
			Email:        in.Email.String(),
			Name:         in.Name.String(),
			SubscribedAt: s.now(),
			Status:       models.StatusPendingConfirmation,
		}
		err := s.store.CreatePendingSubscription(ctx, sub, token)
		switch {
		case err == nil:
			result = ResultCreated
			existing = sub
		case errors.Is(err, repository.ErrDuplicate):
			// A concurrent request stored the same email first.
			existing, err = s.lookup(ctx, in.Email)
			if err != nil {
				return "", err
			}
			if existing == nil {
				return "", errchain.Wrap(repository.ErrDuplicate, "failed to insert new subscriber in the database")
			}
			if existing.IsConfirmed() {
				return s.alreadyConfirmed(ctx, existing), nil
			}
		default:
			return "", errchain.Wrap(err, "failed to insert new subscriber in the database")
		}
	}

	if result == ResultResent {
		if err := s.store.StoreSubscriptionToken(ctx, existing.ID, token); err != nil {
			return "", errchain.Wrap(err, "failed to store an additional confirmation token for a pending subscriber")
		}
	}

	if err := s.sendConfirmation(ctx, in.Email, token); err != nil {
		return "", errchain.Wrap(err, "failed to send a confirmation email")
	}

	s.metrics.IncSubscriptionRequested(string(result))
	slog.InfoContext(ctx, "subscription_requested", "subscriber_id", existing.ID, "result", result)

	return result, nil
}

// lookup returns the stored subscriber for email, or nil when there is none.
func (s *Service) lookup(ctx context.Context, email domain.SubscriberEmail) (*models.Subscriber, error) {
	sub, err := s.store.GetSubscriberByEmail(ctx, email.String())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil //nolint:nilnil // no subscriber is not an error
	case err != nil:
		return nil, errchain.Wrap(err, "failed to look up the subscriber")
	}
	return sub, nil
}

func (s *Service) alreadyConfirmed(ctx context.Context, sub *models.Subscriber) Result {
	s.metrics.IncSubscriptionRequested(string(ResultAlreadyConfirmed))
	slog.InfoContext(ctx, "subscription_already_confirmed", "subscriber_id", sub.ID)
	return ResultAlreadyConfirmed
}

// ConfirmationLink builds the URL a subscriber follows to confirm.
func (s *Service) ConfirmationLink(token domain.SubscriptionToken) string {
	return fmt.Sprintf("%s/confirm?subscription_token=%s", s.baseURL, token)
}

func (s *Service) sendConfirmation(ctx context.Context, to domain.SubscriberEmail, token domain.SubscriptionToken) error {
	data := map[string]any{"ConfirmationLink": s.ConfirmationLink(token)}

	return s.mailer.Send(ctx, to,
		i18n.T(ctx, "confirmation_email_subject"),
		i18n.TData(ctx, "confirmation_email_html", data),
		i18n.TData(ctx, "confirmation_email_text", data),
	)
}
