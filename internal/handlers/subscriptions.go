// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"codeberg.org/oliverandrich/go-newsletter/internal/i18n"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/subscription"
	"codeberg.org/oliverandrich/go-newsletter/internal/templates"
	"github.com/labstack/echo/v4"
)

type subscribeRequest struct {
	Name  string `form:"name"`
	Email string `form:"email"`
}

// Subscribe registers a pending subscriber and sends the confirmation email.
func (h *Handlers) Subscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, i18n.T(c.Request().Context(), "error_invalid_input"))
	}

	in, err := subscription.ParseNewSubscriber(req.Name, req.Email)
	if err != nil {
		return Render(c, http.StatusBadRequest, templates.Home(templates.SubscribeForm{
			Name:  req.Name,
			Email: req.Email,
			Error: i18n.T(c.Request().Context(), "error_invalid_input"),
		}))
	}

	if _, err := h.subscriptions.Subscribe(c.Request().Context(), in); err != nil {
		return InternalServerError(c, err)
	}

	return Render(c, http.StatusOK, templates.SubscribeThanks())
}

// Confirm confirms the subscriber owning the subscription_token query
// parameter.
func (h *Handlers) Confirm(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.confirmer.Confirm(ctx, c.QueryParam("subscription_token"))
	switch {
	case errors.Is(err, subscription.ErrInvalidTokenFormat):
		return BadRequest(c, i18n.T(ctx, "error_invalid_token"))
	case errors.Is(err, subscription.ErrTokenNotFound):
		return Unauthorized(c, i18n.T(ctx, "error_unknown_token"))
	case err != nil:
		return InternalServerError(c, err)
	}

	return Render(c, http.StatusOK, templates.Confirmed())
}
