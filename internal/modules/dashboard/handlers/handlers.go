// Package handlers provides the dashboard JSON endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/aristath/copydash/internal/modules/dashboard"
	"github.com/aristath/copydash/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SessionStore ends sessions whose upstream token was rejected
type SessionStore interface {
	Destroy(ctx context.Context, w http.ResponseWriter, s *session.Session) error
}

// Handler serves dashboard requests
type Handler struct {
	service  *dashboard.Service
	sessions SessionStore
	log      zerolog.Logger
}

// NewHandler creates a dashboard handler
func NewHandler(service *dashboard.Service, sessions SessionStore, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		log:      log.With().Str("handler", "dashboard").Logger(),
	}
}

// HandleOverview handles GET /api/dashboard
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	overview := h.service.Overview(r.Context(), s.Data.AccessToken)
	if overview.Strategy.Unauthorized {
		h.expire(w, r, s)
		return
	}

	h.writeJSON(w, http.StatusOK, overview)
}

// HandleAccounts handles GET /api/accounts
func (h *Handler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	profileName, copiers, err := h.service.CopiersWithStats(r.Context(), s.Data.AccessToken)
	if err != nil {
		if copytrade.IsUnauthorized(err) {
			h.expire(w, r, s)
			return
		}
		h.log.Error().Err(err).Msg("Failed to fetch accounts")
		http.Error(w, "Error fetching accounts data", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile_name": profileName,
		"copiers":      copiers,
	})
}

// HandleCopierOpenSignals handles GET /api/copiers/{copierID}/signals/open
func (h *Handler) HandleCopierOpenSignals(w http.ResponseWriter, r *http.Request) {
	h.openSignals(w, r, dashboard.OwnerCopier)
}

// HandleStrategyOpenSignals handles GET /api/strategies/{strategyID}/signals/open
func (h *Handler) HandleStrategyOpenSignals(w http.ResponseWriter, r *http.Request) {
	h.openSignals(w, r, dashboard.OwnerStrategy)
}

// HandleCopierClosedSignals handles GET /api/copiers/{copierID}/signals/closed?start=&end=
func (h *Handler) HandleCopierClosedSignals(w http.ResponseWriter, r *http.Request) {
	h.closedSignals(w, r, dashboard.OwnerCopier)
}

// HandleStrategyClosedSignals handles GET /api/strategies/{strategyID}/signals/closed?start=&end=
func (h *Handler) HandleStrategyClosedSignals(w http.ResponseWriter, r *http.Request) {
	h.closedSignals(w, r, dashboard.OwnerStrategy)
}

func (h *Handler) openSignals(w http.ResponseWriter, r *http.Request, owner dashboard.SignalOwner) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := ownerID(r, owner)

	signals, err := h.service.OpenSignals(r.Context(), s.Data.AccessToken, owner, id)
	if err != nil {
		h.upstreamError(w, r, s, err, "Failed to fetch open signals")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": signals,
		"count":   len(signals),
	})
}

func (h *Handler) closedSignals(w http.ResponseWriter, r *http.Request, owner dashboard.SignalOwner) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := ownerID(r, owner)

	start, end, err := parseRange(r, time.Now().UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trades, err := h.service.ClosedTrades(r.Context(), s.Data.AccessToken, owner, id, start, end)
	if err != nil {
		h.upstreamError(w, r, s, err, "Failed to fetch closed signals")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": trades.Signals,
		"stats":   trades.Stats,
		"start":   start.Format(time.RFC3339),
		"end":     end.Format(time.RFC3339),
	})
}

// parseRange reads start and end (RFC3339 or YYYY-MM-DD). Missing bounds
// default to the last 30 days ending now.
func parseRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	end := now
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		end = t
	}

	start := end.Add(-dashboard.DefaultClosedRange)
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
		}
		start = t
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start must not be after end")
	}
	return start, end, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func ownerID(r *http.Request, owner dashboard.SignalOwner) string {
	if owner == dashboard.OwnerStrategy {
		return chi.URLParam(r, "strategyID")
	}
	return chi.URLParam(r, "copierID")
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return nil, false
	}
	return s, true
}

func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, s *session.Session, err error, msg string) {
	if copytrade.IsUnauthorized(err) {
		h.expire(w, r, s)
		return
	}
	h.log.Warn().Err(err).Msg(msg)
	h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": msg})
}

// expire drops a session whose token the platform no longer accepts
func (h *Handler) expire(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := h.sessions.Destroy(r.Context(), w, s); err != nil {
		h.log.Warn().Err(err).Msg("Failed to destroy session")
	}
	h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
