// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"codeberg.org/oliverandrich/go-newsletter/internal/handlers"
	"codeberg.org/oliverandrich/go-newsletter/internal/models"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"codeberg.org/oliverandrich/go-newsletter/internal/testutil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

const adminPassword = "correct horse battery staple"

func issueValues() url.Values {
	return url.Values{
		"title": {"Newsletter title"},
		"html":  {"<p>Newsletter body as HTML</p>"},
		"text":  {"Newsletter body as plain text"},
	}
}

func TestNewsletterForm_RedirectsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, handlers.NewslettersPath, nil)
	rec := httptest.NewRecorder()

	err := handlers.RequireAdminPage(env.h.NewsletterForm)(newTestContext(env.e, req, rec, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, handlers.LoginPath, rec.Header().Get("Location"))
}

func TestNewsletterForm_HtmxRedirect(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, handlers.NewslettersPath, nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	err := handlers.RequireAdminPage(env.h.NewsletterForm)(newTestContext(env.e, req, rec, nil))

	require.NoError(t, err)
	assert.Equal(t, handlers.LoginPath, rec.Header().Get("HX-Redirect"))
}

func TestNewsletterForm_Authenticated(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "admin", adminPassword)
	req := httptest.NewRequest(http.MethodGet, handlers.NewslettersPath, nil)
	rec := httptest.NewRecorder()

	err := handlers.RequireAdminPage(env.h.NewsletterForm)(newTestContext(env.e, req, rec, user))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="title"`)
}

func TestPublish_AnonymousRejected(t *testing.T) {
	// A mock store with no expectations fails on any query.
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	xdb := sqlx.NewDb(db, "sqlmock")
	env := newTestEnvWithRepo(t, xdb, repository.New(xdb))

	req := formRequest(http.MethodPost, handlers.NewslettersPath, issueValues())
	rec := httptest.NewRecorder()

	err = handlers.RequireAdmin(env.h.PublishNewsletter)(newTestContext(env.e, req, rec, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="publish"`, rec.Header().Get("WWW-Authenticate"))
	assert.Empty(t, env.mailer.SentTo())
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPublish_OnlyConfirmedSubscribers(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "admin", adminPassword)
	testutil.NewTestSubscriber(t, env.repo, "pending@example.com", models.StatusPendingConfirmation)
	testutil.NewTestSubscriber(t, env.repo, "confirmed@example.com", models.StatusConfirmed)
	env.mailer.On("Send", mock.Anything, "confirmed@example.com",
		"Newsletter title", "<p>Newsletter body as HTML</p>", "Newsletter body as plain text").Return(nil).Once()

	req := formRequest(http.MethodPost, handlers.NewslettersPath, issueValues())
	rec := httptest.NewRecorder()

	err := handlers.RequireAdmin(env.h.PublishNewsletter)(newTestContext(env.e, req, rec, user))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	env.mailer.AssertExpectations(t)
	assert.Equal(t, []string{"confirmed@example.com"}, env.mailer.SentTo())
}

func TestPublish_InvalidForm(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{"missing title", url.Values{"html": {"<p>x</p>"}, "text": {"x"}}},
		{"missing html", url.Values{"title": {"t"}, "text": {"x"}}},
		{"missing text", url.Values{"title": {"t"}, "html": {"<p>x</p>"}}},
		{"empty", url.Values{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			user := testutil.NewTestUser(t, env.repo, "admin", adminPassword)
			testutil.NewTestSubscriber(t, env.repo, "confirmed@example.com", models.StatusConfirmed)

			req := formRequest(http.MethodPost, handlers.NewslettersPath, tt.values)
			rec := httptest.NewRecorder()

			err := handlers.RequireAdmin(env.h.PublishNewsletter)(newTestContext(env.e, req, rec, user))

			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, env.mailer.SentTo())
		})
	}
}

func TestPublish_TransportFailure(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "admin", adminPassword)
	testutil.NewTestSubscriber(t, env.repo, "confirmed@example.com", models.StatusConfirmed)
	env.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	req := formRequest(http.MethodPost, handlers.NewslettersPath, issueValues())
	rec := httptest.NewRecorder()

	err := handlers.RequireAdmin(env.h.PublishNewsletter)(newTestContext(env.e, req, rec, user))

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoginPage(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, handlers.LoginPath, nil)
	rec := httptest.NewRecorder()

	err := env.h.LoginPage(newTestContext(env.e, req, rec, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="password"`)
}

func TestLoginPage_AlreadyLoggedIn(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "admin", adminPassword)
	req := httptest.NewRequest(http.MethodGet, handlers.LoginPath, nil)
	rec := httptest.NewRecorder()

	err := env.h.LoginPage(newTestContext(env.e, req, rec, user))

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, handlers.NewslettersPath, rec.Header().Get("Location"))
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "admin", adminPassword)

	req := formRequest(http.MethodPost, handlers.LoginPath, url.Values{
		"username": {"admin"},
		"password": {adminPassword},
	})
	rec := httptest.NewRecorder()

	err := env.h.Login(newTestContext(env.e, req, rec, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, handlers.NewslettersPath, rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	// The issued cookie round-trips to the same user.
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	data, err := env.sessions.Parse(next)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, user.ID, data.UserID)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	testutil.NewTestUser(t, env.repo, "admin", adminPassword)

	req := formRequest(http.MethodPost, handlers.LoginPath, url.Values{
		"username": {"admin"},
		"password": {"not the password"},
	})
	rec := httptest.NewRecorder()

	err := env.h.Login(newTestContext(env.e, req, rec, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication failed.")
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.NewTestUser(t, env.repo, "admin", adminPassword)
	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	rec := httptest.NewRecorder()

	err := env.h.Logout(newTestContext(env.e, req, rec, user))

	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
