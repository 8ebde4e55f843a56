// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"context"

	"codeberg.org/oliverandrich/go-newsletter/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockMailer is a testify mock for mail transports.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to domain.SubscriberEmail, subject, html, text string) error {
	args := m.Called(ctx, to.String(), subject, html, text)
	return args.Error(0)
}

// SentTo returns the recipients of every recorded Send call in order.
func (m *MockMailer) SentTo() []string {
	var to []string
	for _, call := range m.Calls {
		if call.Method == "Send" {
			to = append(to, call.Arguments.String(1))
		}
	}
	return to
}
