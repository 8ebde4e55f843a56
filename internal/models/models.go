// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the confirmation state of a subscriber.
type SubscriptionStatus string

const (
	StatusPendingConfirmation SubscriptionStatus = "pending_confirmation"
	StatusConfirmed           SubscriptionStatus = "confirmed"
)

// Subscriber is a row of the subscriptions table.
type Subscriber struct { //nolint:govet // fieldalignment not critical for models
	ID           uuid.UUID          `db:"id" json:"id"`
	Email        string             `db:"email" json:"email"`
	Name         string             `db:"name" json:"name"`
	SubscribedAt time.Time          `db:"subscribed_at" json:"subscribed_at"`
	Status       SubscriptionStatus `db:"status" json:"status"`
}

// IsConfirmed reports whether the subscriber may receive newsletter issues.
func (s *Subscriber) IsConfirmed() bool {
	return s.Status == StatusConfirmed
}

// SubscriptionToken maps a confirmation token to its subscriber.
type SubscriptionToken struct {
	Token        string    `db:"subscription_token" json:"-"`
	SubscriberID uuid.UUID `db:"subscriber_id" json:"subscriber_id"`
}
