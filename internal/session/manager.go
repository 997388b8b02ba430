package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CookieName is the name of the session cookie
const CookieName = "copydash_session"

type cookieClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager loads and saves sessions through a signed cookie plus the store
type Manager struct {
	store    *Store
	secret   []byte
	lifetime time.Duration
	secure   bool
	now      func() time.Time
	log      zerolog.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock overrides the manager's clock
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager. secure sets the cookie Secure flag.
func NewManager(store *Store, secret string, lifetime time.Duration, secure bool, log zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		secret:   []byte(secret),
		lifetime: lifetime,
		secure:   secure,
		now:      time.Now,
		log:      log.With().Str("component", "session_manager").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load returns the request's session, or a new empty one when the cookie is
// missing, invalid or points at an expired session
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return m.newSession()
	}

	sid, err := m.parseToken(cookie.Value)
	if err != nil {
		m.log.Debug().Err(err).Msg("Rejected session cookie")
		return m.newSession()
	}

	data, expiresAt, err := m.store.Get(r.Context(), sid, m.now())
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			m.log.Warn().Err(err).Msg("Failed to load session")
		}
		return m.newSession()
	}

	return &Session{ID: sid, Data: data, ExpiresAt: expiresAt}
}

// Save persists the session, extends its lifetime and writes the cookie
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	expiresAt := m.now().Add(m.lifetime)
	if err := m.store.Put(ctx, s.ID, s.Data, expiresAt); err != nil {
		return err
	}

	token, err := m.signToken(s.ID, expiresAt)
	if err != nil {
		return err
	}

	s.ExpiresAt = expiresAt
	s.isNew = false
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.lifetime.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy deletes the session and expires the cookie
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	s.Clear()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return m.store.Delete(ctx, s.ID)
}

// CleanupExpired removes expired sessions from the store
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

func (m *Manager) newSession() *Session {
	return &Session{ID: uuid.NewString(), isNew: true}
}

func (m *Manager) signToken(sid string, expiresAt time.Time) (string, error) {
	claims := cookieClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(m.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

func (m *Manager) parseToken(tokenString string) (string, error) {
	claims := &cookieClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.SID == "" {
		return "", fmt.Errorf("session cookie has no sid")
	}
	return claims.SID, nil
}
