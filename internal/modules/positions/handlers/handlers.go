// Package handlers exposes the open positions summary over HTTP and websocket.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/aristath/copydash/internal/modules/positions"
	"github.com/aristath/copydash/internal/session"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const streamWriteTimeout = 5 * time.Second

// SummaryService is the positions service as seen by the handlers
type SummaryService interface {
	Summary(ctx context.Context, token, profileID string) (positions.Summary, string, error)
	RefreshInterval() time.Duration
}

// SessionStore persists or ends the caller's session
type SessionStore interface {
	Save(ctx context.Context, w http.ResponseWriter, s *session.Session) error
	Destroy(ctx context.Context, w http.ResponseWriter, s *session.Session) error
}

// Handler serves positions requests
type Handler struct {
	service  SummaryService
	sessions SessionStore
	log      zerolog.Logger
}

// NewHandler creates a positions handler
func NewHandler(service SummaryService, sessions SessionStore, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		log:      log.With().Str("handler", "positions").Logger(),
	}
}

// streamMessage is one websocket frame
type streamMessage struct {
	Type    string             `json:"type"` // "summary" or "error"
	Summary *positions.Summary `json:"summary,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// HandleSummary handles GET /api/positions/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	summary, profileID, err := h.service.Summary(r.Context(), s.Data.AccessToken, s.Data.ProfileID)
	if err != nil {
		if copytrade.IsUnauthorized(err) {
			if destroyErr := h.sessions.Destroy(r.Context(), w, s); destroyErr != nil {
				h.log.Warn().Err(destroyErr).Msg("Failed to destroy session")
			}
			h.writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		h.log.Error().Err(err).Msg("Failed to build positions summary")
		h.writeError(w, http.StatusBadGateway, "failed to build positions summary")
		return
	}

	h.rememberProfile(r.Context(), w, s, profileID)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp":                time.Now().Format(time.RFC3339),
			"refresh_interval_seconds": int(h.service.RefreshInterval().Seconds()),
		},
	})
}

// HandleStream handles GET /api/positions/stream (websocket).
// It pushes the summary on connect and then once per cache TTL.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// Resolve the profile before the upgrade so the session cookie can still be written
	profileID := s.Data.ProfileID
	first, resolved, err := h.service.Summary(r.Context(), s.Data.AccessToken, profileID)
	if err != nil && copytrade.IsUnauthorized(err) {
		_ = h.sessions.Destroy(r.Context(), w, s)
		h.writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	if err == nil {
		profileID = resolved
		h.rememberProfile(r.Context(), w, s, profileID)
	}

	conn, acceptErr := websocket.Accept(w, r, nil)
	if acceptErr != nil {
		h.log.Warn().Err(acceptErr).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// Incoming frames are ignored; ctx ends when the peer goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Debug().Str("profile_id", profileID).Msg("Positions stream connected")

	ticker := time.NewTicker(h.service.RefreshInterval())
	defer ticker.Stop()

	summary := first
	for {
		msg := streamMessage{Type: "summary", Summary: &summary}
		if err != nil {
			msg = streamMessage{Type: "error", Error: "failed to build positions summary"}
		}
		if writeErr := h.writeFrame(ctx, conn, msg); writeErr != nil {
			h.log.Debug().Err(writeErr).Msg("Positions stream closed")
			return
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}

		summary, resolved, err = h.service.Summary(ctx, s.Data.AccessToken, profileID)
		if err != nil {
			if copytrade.IsUnauthorized(err) {
				conn.Close(websocket.StatusPolicyViolation, "session expired")
				return
			}
			h.log.Warn().Err(err).Msg("Positions stream refresh failed")
			continue
		}
		profileID = resolved
	}
}

func (h *Handler) writeFrame(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

// rememberProfile stores a newly resolved profile id so later requests skip userinfo
func (h *Handler) rememberProfile(ctx context.Context, w http.ResponseWriter, s *session.Session, profileID string) {
	if profileID == "" || profileID == s.Data.ProfileID {
		return
	}
	s.Data.ProfileID = profileID
	if err := h.sessions.Save(ctx, w, s); err != nil {
		h.log.Warn().Err(err).Msg("Failed to save profile id in session")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
