// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/go-newsletter/internal/errchain"
	"codeberg.org/oliverandrich/go-newsletter/internal/i18n"
	"codeberg.org/oliverandrich/go-newsletter/internal/templates"
	"github.com/labstack/echo/v4"
)

// RenderError renders the error page with the given status code and message.
func RenderError(c echo.Context, code int, message string) error {
	return Render(c, code, templates.Error(code, message))
}

// BadRequest renders a 400 error page.
func BadRequest(c echo.Context, message string) error {
	return RenderError(c, http.StatusBadRequest, message)
}

// Unauthorized renders a 401 error page.
func Unauthorized(c echo.Context, message string) error {
	return RenderError(c, http.StatusUnauthorized, message)
}

// NotFound renders a 404 error page.
func NotFound(c echo.Context) error {
	return RenderError(c, http.StatusNotFound, i18n.T(c.Request().Context(), "error_not_found"))
}

// InternalServerError logs err with its cause chain and renders a generic
// 500 page. Details never reach the client.
func InternalServerError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	slog.ErrorContext(ctx, err.Error(),
		"method", c.Request().Method,
		"path", c.Path(),
		errchain.Attr(err),
	)
	return RenderError(c, http.StatusInternalServerError, i18n.T(ctx, "error_internal"))
}

// HTTPErrorHandler renders echo errors (unknown routes, body limit, CSRF
// failures) as HTML error pages.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := i18n.T(c.Request().Context(), "error_internal")

	if he, ok := err.(*echo.HTTPError); ok { //nolint:errorlint // echo returns *HTTPError directly
		code = he.Code
		switch code {
		case http.StatusNotFound:
			message = i18n.T(c.Request().Context(), "error_not_found")
		case http.StatusInternalServerError:
		default:
			message = http.StatusText(code)
		}
	} else {
		slog.ErrorContext(c.Request().Context(), "unhandled error", errchain.Attr(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if renderErr := RenderError(c, code, message); renderErr != nil {
		slog.Error("failed to render error page", "error", renderErr)
	}
}
