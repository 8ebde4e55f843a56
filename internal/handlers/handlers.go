// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the HTTP endpoints.
package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/auth"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/newsletter"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/session"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/subscription"
	"codeberg.org/oliverandrich/go-newsletter/internal/templates"
	"github.com/labstack/echo/v4"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Repo          *repository.Repository
	Subscriptions *subscription.Service
	Confirmer     *subscription.Confirmer
	Publisher     *newsletter.Publisher
	Auth          *auth.Service
	Sessions      *session.Manager
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo          *repository.Repository
	subscriptions *subscription.Service
	confirmer     *subscription.Confirmer
	publisher     *newsletter.Publisher
	auth          *auth.Service
	sessions      *session.Manager
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	return &Handlers{
		repo:          d.Repo,
		subscriptions: d.Subscriptions,
		confirmer:     d.Confirmer,
		publisher:     d.Publisher,
		auth:          d.Auth,
		sessions:      d.Sessions,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if h.repo != nil {
		if err := h.repo.Ping(c.Request().Context()); err != nil {
			slog.ErrorContext(c.Request().Context(), "health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Home renders the subscribe form.
func (h *Handlers) Home(c echo.Context) error {
	return Render(c, http.StatusOK, templates.Home(templates.SubscribeForm{}))
}
