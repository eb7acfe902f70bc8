// Package session holds the credentials and cached profile that every
// authenticated API call is made with. A Session is passed explicitly to the
// API client; nothing reads credentials from ambient state.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthenticated is returned when a command needs a token and none is set.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrExpired is returned when the token's exp claim is in the past.
var ErrExpired = errors.New("session expired")

// Profile is the cached copy of the signed-in user.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Session is set at login, read by every authenticated request and cleared at
// logout.
type Session struct {
	Token   string
	Profile *Profile
}

// New returns a session for token with no cached profile.
func New(token string) *Session {
	return &Session{Token: strings.TrimSpace(token)}
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// ExpiresAt returns the exp claim of a JWT token. Opaque API tokens, or JWTs
// without exp, report ok=false.
func (s *Session) ExpiresAt() (time.Time, bool) {
	if !s.Authenticated() || strings.Count(s.Token, ".") != 2 {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	// The server verifies the signature; the client only needs exp.
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Check returns ErrNotAuthenticated or ErrExpired when the session cannot be
// used at now.
func (s *Session) Check(now time.Time) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	if exp, ok := s.ExpiresAt(); ok && !now.Before(exp) {
		return ErrExpired
	}
	return nil
}

// Role returns the cached profile role, or "" when no profile is cached.
func (s *Session) Role() string {
	if s == nil || s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}
