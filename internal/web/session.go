// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package web

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Cookie names.
const (
	SessionCookieName = "profilehub_session"
	FlashCookieName   = "profilehub_flash"
)

// MinSecretLength is the shortest accepted signing key.
const MinSecretLength = 32

// flashTTL bounds how long an unread flash survives.
const flashTTL = 5 * time.Minute

// Session is the state carried in the session cookie. Identity is the
// serialized user identity, empty for anonymous visitors.
type Session struct {
	Identity string
	CSRF     string
}

// Authenticated reports whether the session carries an identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.Identity != ""
}

type sessionClaims struct {
	jwt.RegisteredClaims
	CSRF string `json:"csrf"`
}

// Flashes are one-shot messages shown on the next rendered page.
type Flashes struct {
	Errors []string `json:"errors,omitempty"`
	Infos  []string `json:"infos,omitempty"`
}

// Empty reports whether there is nothing to show.
func (f Flashes) Empty() bool {
	return len(f.Errors) == 0 && len(f.Infos) == 0
}

type flashClaims struct {
	jwt.RegisteredClaims
	Flashes
}

// SessionManager signs and verifies the session and flash cookies. Both are
// HS256 JWTs; the session's subject is the user identity.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager creates a SessionManager. secure marks cookies Secure.
func NewSessionManager(secret []byte, ttl time.Duration, secure bool) (*SessionManager, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("SESSION_INVALID_SECRET").
			With("min", MinSecretLength).
			Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").Errorf("session ttl must be positive")
	}
	return &SessionManager{secret: secret, ttl: ttl, secure: secure, now: time.Now}, nil
}

// NewSession returns an anonymous session with a fresh CSRF token.
func NewSession() *Session {
	return &Session{CSRF: rand.Text()}
}

// Read returns the session from r. Missing, tampered and expired cookies
// all report false.
func (m *SessionManager) Read(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	var claims sessionClaims
	if err := m.parse(cookie.Value, &claims); err != nil || claims.CSRF == "" {
		return nil, false
	}
	return &Session{Identity: claims.Subject, CSRF: claims.CSRF}, true
}

// Write stores sess in the session cookie, restarting its expiry.
func (m *SessionManager) Write(w http.ResponseWriter, sess *Session) error {
	now := m.now()
	expires := now.Add(m.ttl)
	value, err := m.sign(sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		CSRF: sess.CSRF,
	})
	if err != nil {
		return oops.Code("SESSION_WRITE_FAILED").Wrap(err)
	}
	http.SetCookie(w, m.cookie(SessionCookieName, value, expires))
	return nil
}

// Clear removes the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.expired(SessionCookieName))
}

// ReadFlash returns the flashes carried by r, if any.
func (m *SessionManager) ReadFlash(r *http.Request) Flashes {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return Flashes{}
	}
	var claims flashClaims
	if err := m.parse(cookie.Value, &claims); err != nil {
		return Flashes{}
	}
	return claims.Flashes
}

// WriteFlash stores f for the next request.
func (m *SessionManager) WriteFlash(w http.ResponseWriter, f Flashes) error {
	now := m.now()
	expires := now.Add(flashTTL)
	value, err := m.sign(flashClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Flashes: f,
	})
	if err != nil {
		return oops.Code("FLASH_WRITE_FAILED").Wrap(err)
	}
	http.SetCookie(w, m.cookie(FlashCookieName, value, expires))
	return nil
}

// ClearFlash removes the flash cookie.
func (m *SessionManager) ClearFlash(w http.ResponseWriter) {
	http.SetCookie(w, m.expired(FlashCookieName))
}

func (m *SessionManager) sign(claims jwt.Claims) (string, error) {
	//nolint:wrapcheck // callers wrap with a code
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *SessionManager) parse(value string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(value, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	//nolint:wrapcheck // callers only care whether parsing failed
	return err
}

func (m *SessionManager) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (m *SessionManager) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
