// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session_test

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-newsletter/internal/config"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/session"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminHashKey  = "6e6577736c65747465722d61646d696e2d686173682d6b65792d303030303031"
	adminBlockKey = "6e6577736c65747465722d61646d696e2d626c6f636b2d6b65792d3030303031"
	otherHashKey  = "6e6577736c65747465722d6f746865722d686173682d6b65792d303030303031"
)

var adminID = uuid.MustParse("0b9d4c1e-5a3f-4e2d-8c7b-6a5f4e3d2c1b")

func adminSessions(t *testing.T, mutate func(*config.SessionConfig)) (*session.Manager, *config.SessionConfig) {
	t.Helper()
	cfg := &config.SessionConfig{
		CookieName: "newsletter_admin",
		MaxAge:     2 * 60 * 60,
		HashKey:    adminHashKey,
	}
	if mutate != nil {
		mutate(cfg)
	}
	mgr, err := session.NewManager(cfg, false)
	require.NoError(t, err)
	return mgr, cfg
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestAdminSession_RoundTrip(t *testing.T) {
	mgr, _ := adminSessions(t, nil)

	cookie, err := mgr.Create(adminID, "admin")
	require.NoError(t, err)

	data, err := mgr.Parse(requestWith(cookie))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, adminID, data.UserID)
	assert.Equal(t, "admin", data.Username)
}

func TestAdminSession_ExpiryFollowsMaxAge(t *testing.T) {
	mgr, cfg := adminSessions(t, func(c *config.SessionConfig) { c.MaxAge = 15 * 60 })
	maxAge := time.Duration(cfg.MaxAge) * time.Second

	before := time.Now()
	cookie, err := mgr.Create(adminID, "admin")
	require.NoError(t, err)
	after := time.Now()

	assert.Equal(t, cfg.MaxAge, cookie.MaxAge)
	data, err := mgr.Parse(requestWith(cookie))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.False(t, data.ExpiresAt.Before(before.Add(maxAge)))
	assert.False(t, data.ExpiresAt.After(after.Add(maxAge)))
}

func TestAdminSession_PastExpiryIsRejected(t *testing.T) {
	mgr, cfg := adminSessions(t, nil)
	key, err := hex.DecodeString(cfg.HashKey)
	require.NoError(t, err)

	// A correctly signed cookie whose payload has already run out.
	value, err := securecookie.New(key, nil).Encode(cfg.CookieName, session.Data{
		UserID:    adminID,
		Username:  "admin",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	data, err := mgr.Parse(requestWith(&http.Cookie{Name: cfg.CookieName, Value: value}))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestAdminSession_EmptyHashKeyWarnsAndStillWorks(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	mgr, _ := adminSessions(t, func(c *config.SessionConfig) { c.HashKey = "" })
	assert.Contains(t, logs.String(), "no session hash key configured")

	cookie, err := mgr.Create(adminID, "admin")
	require.NoError(t, err)
	data, err := mgr.Parse(requestWith(cookie))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "admin", data.Username)

	// A restart draws a new random key, so earlier cookies stop working.
	restarted, _ := adminSessions(t, func(c *config.SessionConfig) { c.HashKey = "" })
	data, err = restarted.Parse(requestWith(cookie))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestAdminSession_ConfiguredKeyDoesNotWarn(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	adminSessions(t, nil)

	assert.Empty(t, logs.String())
}

func TestAdminSession_RejectedCookies(t *testing.T) {
	mgr, cfg := adminSessions(t, nil)
	other, _ := adminSessions(t, func(c *config.SessionConfig) { c.HashKey = otherHashKey })
	foreign, err := other.Create(adminID, "admin")
	require.NoError(t, err)
	genuine, err := mgr.Create(adminID, "admin")
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"garbage value", &http.Cookie{Name: cfg.CookieName, Value: "admin"}},
		{"signed by another key", foreign},
		{"truncated signature", &http.Cookie{Name: cfg.CookieName, Value: genuine.Value[:len(genuine.Value)-4]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := mgr.Parse(requestWith(tt.cookie))
			require.NoError(t, err)
			assert.Nil(t, data)
		})
	}
}

func TestAdminSession_EncryptedPayloadHidesUsername(t *testing.T) {
	mgr, _ := adminSessions(t, func(c *config.SessionConfig) { c.BlockKey = adminBlockKey })

	cookie, err := mgr.Create(adminID, "admin")
	require.NoError(t, err)
	assert.NotContains(t, string(payloadOf(t, cookie)), "admin")

	data, err := mgr.Parse(requestWith(cookie))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "admin", data.Username)
}

func TestAdminSession_SignedPayloadIsReadable(t *testing.T) {
	mgr, _ := adminSessions(t, nil)

	cookie, err := mgr.Create(adminID, "admin")
	require.NoError(t, err)

	assert.Contains(t, string(payloadOf(t, cookie)), "admin")
}

// payloadOf extracts the serialized session from a securecookie value,
// which is base64("date|base64(payload)|mac").
func payloadOf(t *testing.T, cookie *http.Cookie) []byte {
	t.Helper()
	outer, err := base64.URLEncoding.DecodeString(cookie.Value)
	require.NoError(t, err)
	parts := bytes.SplitN(outer, []byte("|"), 3)
	require.Len(t, parts, 3)
	payload, err := base64.URLEncoding.DecodeString(string(parts[1]))
	require.NoError(t, err)
	return payload
}

func TestNewManager_RejectsMalformedKeys(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.SessionConfig)
		wantErr string
	}{
		{"hash key not hex", func(c *config.SessionConfig) { c.HashKey = "admin-secret" }, "invalid session hash key"},
		{"hash key too short", func(c *config.SessionConfig) { c.HashKey = "abcd" }, "must be 32 bytes, got 2"},
		{"block key not hex", func(c *config.SessionConfig) { c.BlockKey = "admin-secret" }, "invalid session block key"},
		{"block key too long", func(c *config.SessionConfig) { c.BlockKey = adminBlockKey + "00" }, "must be 32 bytes, got 33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.SessionConfig{CookieName: "newsletter_admin", MaxAge: 3600, HashKey: adminHashKey}
			tt.mutate(cfg)

			_, err := session.NewManager(cfg, false)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdminSession_CookieAttributes(t *testing.T) {
	for _, secure := range []bool{false, true} {
		cfg := &config.SessionConfig{CookieName: "newsletter_admin", MaxAge: 3600, HashKey: adminHashKey}
		mgr, err := session.NewManager(cfg, secure)
		require.NoError(t, err)

		login, err := mgr.Create(adminID, "admin")
		require.NoError(t, err)
		logout := mgr.Clear()

		for _, c := range []*http.Cookie{login, logout} {
			assert.Equal(t, "newsletter_admin", c.Name)
			assert.Equal(t, "/", c.Path)
			assert.True(t, c.HttpOnly)
			assert.Equal(t, secure, c.Secure)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		}
		assert.Equal(t, 3600, login.MaxAge)
		assert.Equal(t, -1, logout.MaxAge)
		assert.Empty(t, logout.Value)
	}
}
