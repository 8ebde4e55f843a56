// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"errors"
	"log/slog"

	"codeberg.org/oliverandrich/go-newsletter/internal/appcontext"
	"codeberg.org/oliverandrich/go-newsletter/internal/htmx"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/session"
	"github.com/labstack/echo/v4"
)

// customContext wraps the Echo context with appcontext.Context.
func customContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&appcontext.Context{
				Context: c,
				Htmx:    htmx.ParseRequest(c.Request()),
			})
		}
	}
}

// loadUser resolves the session cookie to an administrator. Stale cookies
// for deleted users are cleared.
func loadUser(sessions *session.Manager, repo *repository.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := appcontext.From(c)

			data, err := sessions.Parse(c.Request())
			if err != nil || data == nil {
				return next(cc)
			}

			user, err := repo.GetUserByID(c.Request().Context(), data.UserID)
			if errors.Is(err, repository.ErrNotFound) {
				c.SetCookie(sessions.Clear())
				return next(cc)
			}
			if err != nil {
				// Keep the cookie, the user may still exist once the database recovers.
				slog.WarnContext(c.Request().Context(), "failed to load session user", "error", err)
				return next(cc)
			}

			cc.SetUser(user)
			return next(cc)
		}
	}
}
