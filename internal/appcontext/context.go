// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context and context keys.
package appcontext

import (
	"context"

	"codeberg.org/oliverandrich/go-newsletter/internal/htmx"
	"codeberg.org/oliverandrich/go-newsletter/internal/models"
	"github.com/labstack/echo/v4"
)

// Context keys for storing values in context.Context.
type (
	// CSRFToken is the context key for the CSRF token.
	CSRFToken struct{}
	// User is the context key for the authenticated administrator.
	User struct{}
)

// Context is a custom Echo context with typed fields for htmx and the
// authenticated administrator.
type Context struct {
	echo.Context
	Htmx *htmx.Request
	User *models.User // nil if not authenticated
}

// From returns the application context wrapped around c, or a fresh one
// when c was not created by the server middleware.
func From(c echo.Context) *Context {
	if cc, ok := c.(*Context); ok {
		return cc
	}
	return &Context{Context: c, Htmx: htmx.ParseRequest(c.Request())}
}

// GetUser returns the authenticated user, or nil if not authenticated.
func (c *Context) GetUser() *models.User {
	return c.User
}

// IsAuthenticated returns true if the user is authenticated.
func (c *Context) IsAuthenticated() bool {
	return c.User != nil
}

// SetUser stores user on the context and in the request context for templates.
func (c *Context) SetUser(user *models.User) {
	c.User = user
	req := c.Request()
	c.SetRequest(req.WithContext(WithUser(req.Context(), user)))
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User{}, user)
}

// UserFrom returns the user stored in ctx, or nil.
func UserFrom(ctx context.Context) *models.User {
	if user, ok := ctx.Value(User{}).(*models.User); ok {
		return user
	}
	return nil
}

// CSRFTokenFrom returns the CSRF token stored in ctx, or "".
func CSRFTokenFrom(ctx context.Context) string {
	if token, ok := ctx.Value(CSRFToken{}).(string); ok {
		return token
	}
	return ""
}
