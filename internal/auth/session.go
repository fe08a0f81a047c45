// Package auth exchanges a Google OAuth login for a signed session cookie
// and exposes the resulting owner id to request handlers. The rest of the
// application treats the owner id as an opaque string.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookie = "golinks_session"
	sessionTTL    = 7 * 24 * time.Hour
)

var ErrNoSession = errors.New("no valid session")

// Sessions issues and verifies the HS256-signed session cookie.
type Sessions struct {
	secret []byte
	secure bool
}

func NewSessions(secret string, secure bool) *Sessions {
	return &Sessions{secret: []byte(secret), secure: secure}
}

// Issue signs a session token for the owner and sets it as an HttpOnly cookie.
func (s *Sessions) Issue(w http.ResponseWriter, ownerID string) error {
	expires := time.Now().Add(sessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// OwnerFromRequest returns the owner id carried by a valid session cookie,
// or ErrNoSession.
func (s *Sessions) OwnerFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", ErrNoSession
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrNoSession
	}
	return claims.Subject, nil
}
