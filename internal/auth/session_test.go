package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueCookie(t *testing.T, s *Sessions, ownerID string) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, s.Issue(rr, ownerID))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessions_RoundTrip(t *testing.T) {
	s := NewSessions("secret", false)
	cookie := issueCookie(t, s, "user-123")
	assert.Equal(t, SessionCookie, cookie.Name)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest("GET", "/api/links", nil)
	req.AddCookie(cookie)

	ownerID, err := s.OwnerFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "user-123", ownerID)
}

func TestSessions_MissingCookie(t *testing.T) {
	s := NewSessions("secret", false)
	req := httptest.NewRequest("GET", "/api/links", nil)
	_, err := s.OwnerFromRequest(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_WrongSecret(t *testing.T) {
	issuer := NewSessions("secret-a", false)
	verifier := NewSessions("secret-b", false)

	req := httptest.NewRequest("GET", "/api/links", nil)
	req.AddCookie(issueCookie(t, issuer, "user-123"))

	_, err := verifier.OwnerFromRequest(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_ExpiredToken(t *testing.T) {
	s := NewSessions("secret", false)

	claims := jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/links", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})

	_, err = s.OwnerFromRequest(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_Clear(t *testing.T) {
	s := NewSessions("secret", false)
	rr := httptest.NewRecorder()
	s.Clear(rr)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

func TestRequireOwner(t *testing.T) {
	s := NewSessions("secret", false)

	var gotOwner string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, _ = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	// No cookie: 401, handler never runs.
	rr := httptest.NewRecorder()
	s.RequireOwner(next).ServeHTTP(rr, httptest.NewRequest("GET", "/api/links", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, gotOwner)

	// Valid cookie: handler sees the owner id.
	req := httptest.NewRequest("GET", "/api/links", nil)
	req.AddCookie(issueCookie(t, s, "user-123"))
	rr = httptest.NewRecorder()
	s.RequireOwner(next).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-123", gotOwner)
}

func TestOwnerFromContext_Empty(t *testing.T) {
	_, ok := OwnerFromContext(httptest.NewRequest("GET", "/", nil).Context())
	assert.False(t, ok)
}
