package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOAuthHandler(t *testing.T) *OAuthHandler {
	t.Helper()
	sessions := NewSessions("test-secret", false)
	return NewOAuthHandler("client-id", "client-secret", "http://localhost:8080/auth/google/callback", sessions, false, zap.NewNop())
}

func TestLogin_RedirectsToGoogleWithState(t *testing.T) {
	h := newTestOAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", loc.Host)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state, "state cookie must be set")
	assert.Equal(t, state, loc.Query().Get("state"), "redirect state must match the cookie")
}

func TestCallback_RejectsBadState(t *testing.T) {
	h := newTestOAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=x", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "issued"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallback_RejectsMissingStateCookie(t *testing.T) {
	h := newTestOAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=anything&code=x", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout_ClearsSessionAndRedirects(t *testing.T) {
	h := newTestOAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie && c.Value == "" && c.Expires.Before(time.Now()) {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie must be expired")
}
