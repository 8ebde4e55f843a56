// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates renders the HTML pages as templ components.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"context"

	"codeberg.org/oliverandrich/go-newsletter/internal/appcontext"
	"codeberg.org/oliverandrich/go-newsletter/internal/i18n"
	"codeberg.org/oliverandrich/go-newsletter/internal/models"
)

// CSRFToken returns the CSRF token from the context.
func CSRFToken(ctx context.Context) string {
	return appcontext.CSRFTokenFrom(ctx)
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return i18n.T(ctx, messageID)
}

// Locale returns the current locale.
func Locale(ctx context.Context) string {
	return i18n.GetLocale(ctx)
}

// GetUser returns the authenticated administrator from context, or nil.
func GetUser(ctx context.Context) *models.User {
	return appcontext.UserFrom(ctx)
}

// IsAuthenticated returns true if an administrator is logged in.
func IsAuthenticated(ctx context.Context) bool {
	return GetUser(ctx) != nil
}
