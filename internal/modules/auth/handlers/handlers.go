// Package handlers implements the OAuth2 PKCE login flow against the identity provider.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/aristath/copydash/internal/session"
	"github.com/rs/zerolog"
)

// Identity is the identity provider slice of the copytrade client
type Identity interface {
	AuthURL(redirectURI, challenge, state string) string
	LogoutURL(baseURL string) string
	ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (*copytrade.TokenResponse, error)
}

// SessionStore loads, saves and ends browser sessions
type SessionStore interface {
	Load(r *http.Request) *session.Session
	Save(ctx context.Context, w http.ResponseWriter, s *session.Session) error
	Destroy(ctx context.Context, w http.ResponseWriter, s *session.Session) error
}

// Handler serves the login flow
type Handler struct {
	identity Identity
	sessions SessionStore
	baseURL  string // redirect URI registered with the identity provider
	log      zerolog.Logger
}

// NewHandler creates an auth handler
func NewHandler(identity Identity, sessions SessionStore, baseURL string, log zerolog.Logger) *Handler {
	return &Handler{
		identity: identity,
		sessions: sessions,
		baseURL:  baseURL,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// HandleLogin handles GET /login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	pair, err := copytrade.NewPKCEPair()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate PKCE pair")
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	state, err := copytrade.NewState()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate OAuth state")
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	s := h.sessions.Load(r)
	s.Data.Verifier = pair.Verifier
	s.Data.State = state
	if err := h.sessions.Save(r.Context(), w, s); err != nil {
		h.log.Error().Err(err).Msg("Failed to save session")
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.identity.AuthURL(h.baseURL, pair.Challenge, state), http.StatusFound)
}

// HandleCallback handles GET /callback?code=...&state=...
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	s := h.sessions.Load(r)
	verifier, state := s.PopVerifier()
	if verifier == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if state != "" && r.URL.Query().Get("state") != state {
		h.log.Warn().Msg("OAuth state mismatch")
		_ = h.sessions.Save(r.Context(), w, s)
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	token, err := h.identity.ExchangeCode(r.Context(), code, verifier, h.baseURL)
	if err != nil {
		message := "Unknown Error"
		var tokenErr *copytrade.TokenError
		if errors.As(err, &tokenErr) {
			message = tokenErr.Error()
		}
		h.log.Warn().Err(err).Msg("Token exchange failed")
		_ = h.sessions.Save(r.Context(), w, s)
		http.Error(w, "Token Exchange Error: "+message, http.StatusBadRequest)
		return
	}

	s.Data.AccessToken = token.AccessToken
	s.Data.ProfileID = ""
	if err := h.sessions.Save(r.Context(), w, s); err != nil {
		h.log.Error().Err(err).Msg("Failed to save session")
		http.Error(w, "Failed to complete login", http.StatusInternalServerError)
		return
	}

	h.log.Info().Msg("User logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout handles GET /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Load(r)
	if err := h.sessions.Destroy(r.Context(), w, s); err != nil {
		h.log.Warn().Err(err).Msg("Failed to destroy session")
	}
	http.Redirect(w, r, h.identity.LogoutURL(h.baseURL), http.StatusFound)
}

// HandleIndex handles GET /. The identity provider redirects back here with ?code=.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("code") != "" {
		h.HandleCallback(w, r)
		return
	}

	s := h.sessions.Load(r)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": s.Authenticated(),
		"logged_out":    r.URL.Query().Get("logged_out") != "",
	})
}

// HandleMe handles GET /api/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Load(r)
	response := map[string]interface{}{
		"authenticated": s.Authenticated(),
	}
	if s.Authenticated() {
		response["profile_id"] = s.Data.ProfileID
		response["expires_at"] = s.ExpiresAt.UTC().Format(time.RFC3339)
	}
	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
