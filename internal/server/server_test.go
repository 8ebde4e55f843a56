// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/go-newsletter/internal/config"
	"codeberg.org/oliverandrich/go-newsletter/internal/i18n"
	"codeberg.org/oliverandrich/go-newsletter/internal/metrics"
	"codeberg.org/oliverandrich/go-newsletter/internal/models"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"codeberg.org/oliverandrich/go-newsletter/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const adminPassword = "correct horse battery staple"

var tokenPattern = regexp.MustCompile(`/confirm\?subscription_token=([A-Za-z0-9]+)`)

type testApp struct {
	e      *echo.Echo
	repo   *repository.Repository
	mailer *testutil.MockMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	require.NoError(t, i18n.Init())

	db, repo := testutil.NewTestDB(t)
	mailer := &testutil.MockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "localhost", Port: 8080, BaseURL: "http://localhost:8080", MaxBodySize: 1},
		Session: config.SessionConfig{CookieName: "_session", MaxAge: 3600, HashKey: testHashKey},
		Mail:    config.MailConfig{Transport: config.MailTransportLog},
		Admin:   config.AdminConfig{Username: "admin", Password: adminPassword},
		Metrics: config.MetricsConfig{Enabled: true},
	}

	e, err := New(context.Background(), cfg, db, mailer, metrics.New())
	require.NoError(t, err)

	return &testApp{e: e, repo: repo, mailer: mailer}
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func form(method, target string, values url.Values) *http.Request {
	return testutil.NewFormRequest(method, target, strings.NewReader(values.Encode()))
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// login returns the session cookie and a CSRF cookie with its token.
func (a *testApp) login(t *testing.T) (sessionCookie, csrfCookie *http.Cookie) {
	t.Helper()
	rec := a.do(form(http.MethodPost, "/admin/login", url.Values{
		"username": {"admin"},
		"password": {adminPassword},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	sessionCookie = cookieNamed(rec, "_session")
	require.NotNil(t, sessionCookie)

	rec = a.do(httptest.NewRequest(http.MethodGet, "/admin/newsletters", nil), sessionCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	csrfCookie = cookieNamed(rec, "_csrf")
	require.NotNil(t, csrfCookie)
	assert.Contains(t, rec.Body.String(), csrfCookie.Value)

	return sessionCookie, csrfCookie
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!doctype html>")
}

func TestTrailingSlashRedirect(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/confirm/?subscription_token=abc", nil))

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/confirm?subscription_token=abc", rec.Header().Get(echo.HeaderLocation))
}

func TestAdminCreatedOnStartup(t *testing.T) {
	app := newTestApp(t)

	user, err := app.repo.GetUserByUsername(context.Background(), "admin")

	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
}

func TestSubscribeConfirmPublish(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(form(http.MethodPost, "/subscriptions", url.Values{
		"name":  {"le guin"},
		"email": {"ursula_le_guin@gmail.com"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"ursula_le_guin@gmail.com"}, app.mailer.SentTo())

	match := tokenPattern.FindStringSubmatch(app.mailer.Calls[0].Arguments.String(4))
	require.Len(t, match, 2)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/confirm?subscription_token="+match[1], nil))
	require.Equal(t, http.StatusOK, rec.Code)

	sub, err := app.repo.GetSubscriberByEmail(context.Background(), "ursula_le_guin@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, sub.Status)

	sessionCookie, csrfCookie := app.login(t)
	rec = app.do(form(http.MethodPost, "/admin/newsletters", url.Values{
		"title":      {"Newsletter title"},
		"html":       {"<p>Newsletter body as HTML</p>"},
		"text":       {"Newsletter body as plain text"},
		"csrf_token": {csrfCookie.Value},
	}), sessionCookie, csrfCookie)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, []string{"ursula_le_guin@gmail.com", "ursula_le_guin@gmail.com"}, app.mailer.SentTo())

	rec = app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "subscriptions_confirmed_total 1")
	assert.Contains(t, rec.Body.String(), "newsletter_deliveries_total 1")
}

func TestPublish_PendingSubscribersExcluded(t *testing.T) {
	app := newTestApp(t)
	testutil.NewTestSubscriber(t, app.repo, "pending@example.com", models.StatusPendingConfirmation)

	sessionCookie, csrfCookie := app.login(t)
	rec := app.do(form(http.MethodPost, "/admin/newsletters", url.Values{
		"title":      {"Newsletter title"},
		"html":       {"<p>Newsletter body as HTML</p>"},
		"text":       {"Newsletter body as plain text"},
		"csrf_token": {csrfCookie.Value},
	}), sessionCookie, csrfCookie)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, app.mailer.SentTo())
}

func TestPublish_AnonymousGetsChallenge(t *testing.T) {
	app := newTestApp(t)
	testutil.NewTestSubscriber(t, app.repo, "confirmed@example.com", models.StatusConfirmed)

	rec := app.do(form(http.MethodPost, "/admin/newsletters", url.Values{
		"title": {"Newsletter title"},
		"html":  {"<p>Newsletter body as HTML</p>"},
		"text":  {"Newsletter body as plain text"},
	}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="publish"`, rec.Header().Get(echo.HeaderWWWAuthenticate))
	assert.Empty(t, app.mailer.SentTo())
}

func TestPublish_RequiresCSRFToken(t *testing.T) {
	app := newTestApp(t)
	testutil.NewTestSubscriber(t, app.repo, "confirmed@example.com", models.StatusConfirmed)

	sessionCookie, _ := app.login(t)
	rec := app.do(form(http.MethodPost, "/admin/newsletters", url.Values{
		"title": {"Newsletter title"},
		"html":  {"<p>Newsletter body as HTML</p>"},
		"text":  {"Newsletter body as plain text"},
	}), sessionCookie)

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code)
	assert.Empty(t, app.mailer.SentTo())
}

func TestNewsletterPage_RedirectsAnonymous(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/admin/newsletters", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get(echo.HeaderLocation))
}

func TestLogout_EndsSession(t *testing.T) {
	app := newTestApp(t)
	sessionCookie, csrfCookie := app.login(t)

	rec := app.do(form(http.MethodPost, "/admin/logout", url.Values{
		"csrf_token": {csrfCookie.Value},
	}), sessionCookie, csrfCookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cleared := cookieNamed(rec, "_session")
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestConfirm_UnknownToken(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/confirm?subscription_token=ySGXNWj24BXAj15ybqmzn3n4h", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsDisabled(t *testing.T) {
	db, _ := testutil.NewTestDB(t)
	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: "http://localhost:8080", MaxBodySize: 1},
		Session: config.SessionConfig{CookieName: "_session", MaxAge: 3600, HashKey: testHashKey},
	}

	e, err := New(context.Background(), cfg, db, &testutil.MockMailer{}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
