// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package newsletter loads confirmed subscribers and delivers issues to them.
package newsletter

import (
	"context"
	"fmt"

	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
)

// ConfirmedSubscriber is a confirmed subscriber whose stored email is valid.
type ConfirmedSubscriber struct {
	Email domain.SubscriberEmail
}

// Recipient is the outcome of loading one confirmed subscriber. Exactly one
// of Subscriber and Err is set.
type Recipient struct {
	Subscriber *ConfirmedSubscriber
	Err        error
}

// ConfirmedStore lists the stored emails of confirmed subscribers.
type ConfirmedStore interface {
	ListConfirmedEmails(ctx context.Context) ([]string, error)
}

// Source produces the recipients of a newsletter issue.
type Source struct {
	store ConfirmedStore
}

func NewSource(store ConfirmedStore) *Source {
	return &Source{store: store}
}

// LoadConfirmed returns one Recipient per confirmed subscriber, in a stable
// order. A row whose stored email fails validation yields a Recipient with
// Err set instead of failing the whole load.
func (s *Source) LoadConfirmed(ctx context.Context) ([]Recipient, error) {
	emails, err := s.store.ListConfirmedEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("list confirmed subscribers: %w", err)
	}

	recipients := make([]Recipient, 0, len(emails))
	for _, raw := range emails {
		email, err := domain.ParseSubscriberEmail(raw)
		if err != nil {
			recipients = append(recipients, Recipient{Err: err})
			continue
		}
		recipients = append(recipients, Recipient{Subscriber: &ConfirmedSubscriber{Email: email}})
	}

	return recipients, nil
}
