// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/go-newsletter/internal/appcontext"
	"codeberg.org/oliverandrich/go-newsletter/internal/htmx"
	"codeberg.org/oliverandrich/go-newsletter/internal/i18n"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/auth"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/newsletter"
	"codeberg.org/oliverandrich/go-newsletter/internal/templates"
	"github.com/labstack/echo/v4"
)

// Admin routes.
const (
	LoginPath       = "/admin/login"
	NewslettersPath = "/admin/newsletters"
)

// PublishRealm is the realm announced when an unauthenticated client tries
// to publish.
const PublishRealm = "publish"

// RequireAdminPage redirects anonymous visitors to the login page.
func RequireAdminPage(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !appcontext.From(c).IsAuthenticated() {
			return htmx.Redirect(c, LoginPath)
		}
		return next(c)
	}
}

// RequireAdmin rejects anonymous requests with 401 and a Basic challenge.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !appcontext.From(c).IsAuthenticated() {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="`+PublishRealm+`"`)
			return Unauthorized(c, i18n.T(c.Request().Context(), "error_unauthorized"))
		}
		return next(c)
	}
}

type loginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// LoginPage renders the login form.
func (h *Handlers) LoginPage(c echo.Context) error {
	if appcontext.From(c).IsAuthenticated() {
		return htmx.Redirect(c, NewslettersPath)
	}
	return Render(c, http.StatusOK, templates.Login("", ""))
}

// Login verifies the credentials and starts an admin session.
func (h *Handlers) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, i18n.T(c.Request().Context(), "error_invalid_input"))
	}

	user, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return Render(c, http.StatusUnauthorized,
			templates.Login(req.Username, i18n.T(c.Request().Context(), "login_failed")))
	}
	if err != nil {
		return InternalServerError(c, err)
	}

	cookie, err := h.sessions.Create(user.ID, user.Username)
	if err != nil {
		return InternalServerError(c, err)
	}
	c.SetCookie(cookie)

	return c.Redirect(http.StatusSeeOther, NewslettersPath)
}

// Logout clears the session cookie.
func (h *Handlers) Logout(c echo.Context) error {
	if user := appcontext.From(c).GetUser(); user != nil {
		slog.Info("logout", "user_id", user.ID)
	}
	c.SetCookie(h.sessions.Clear())
	return c.Redirect(http.StatusSeeOther, LoginPath)
}

// NewsletterForm renders the publish form.
func (h *Handlers) NewsletterForm(c echo.Context) error {
	return Render(c, http.StatusOK, templates.NewsletterForm(templates.IssueForm{}))
}

// PublishNewsletter delivers an issue to all confirmed subscribers.
func (h *Handlers) PublishNewsletter(c echo.Context) error {
	var issue newsletter.Issue
	if err := c.Bind(&issue); err != nil {
		return BadRequest(c, i18n.T(c.Request().Context(), "error_invalid_input"))
	}

	if err := validateForm(&issue); err != nil {
		return Render(c, http.StatusBadRequest, templates.NewsletterForm(templates.IssueForm{
			Title: issue.Title,
			HTML:  issue.HTML,
			Text:  issue.Text,
			Error: i18n.T(c.Request().Context(), "error_invalid_input"),
		}))
	}

	if err := h.publisher.Publish(c.Request().Context(), issue); err != nil {
		return InternalServerError(c, err)
	}

	return c.NoContent(http.StatusOK)
}
