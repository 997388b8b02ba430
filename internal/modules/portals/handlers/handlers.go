// Package handlers provides the public and admin portal endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/aristath/copydash/internal/modules/copying"
	"github.com/aristath/copydash/internal/modules/portals"
	"github.com/aristath/copydash/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Copier starts or updates copying of a strategy
type Copier interface {
	Copy(ctx context.Context, token, copierID, strategyID string, settings copytrade.CopySettings) (*copytrade.CopySettings, bool, error)
}

// StrategyLookup fetches the strategy a portal promotes
type StrategyLookup interface {
	Strategy(ctx context.Context, token, strategyID string) (*copytrade.Strategy, error)
}

// SessionStore ends sessions whose upstream token was rejected
type SessionStore interface {
	Destroy(ctx context.Context, w http.ResponseWriter, s *session.Session) error
}

// Handler serves portal requests
type Handler struct {
	service    *portals.Service
	copier     Copier
	strategies StrategyLookup
	sessions   SessionStore
	log        zerolog.Logger
}

// NewHandler creates a portal handler
func NewHandler(service *portals.Service, copier Copier, strategies StrategyLookup, sessions SessionStore, log zerolog.Logger) *Handler {
	return &Handler{
		service:    service,
		copier:     copier,
		strategies: strategies,
		sessions:   sessions,
		log:        log.With().Str("handler", "portals").Logger(),
	}
}

// copyRequest is the body of POST /api/portals/{slug}/copies
type copyRequest struct {
	CopierID string                 `json:"copier_id"`
	Settings copytrade.CopySettings `json:"settings"`
}

// HandleGetPortal handles GET /api/portals/{slug}.
// The strategy summary is included only for signed-in visitors.
func (h *Handler) HandleGetPortal(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.portalError(w, err)
		return
	}

	response := map[string]interface{}{"portal": p}

	if s := session.FromContext(r.Context()); s.Authenticated() {
		strategy, err := h.strategies.Strategy(r.Context(), s.Data.AccessToken, p.StrategyID)
		if err != nil {
			h.log.Warn().Err(err).Str("strategy_id", p.StrategyID).Msg("Failed to fetch portal strategy")
		} else {
			response["strategy"] = strategy
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleRecordView handles POST /api/portals/{slug}/views
func (h *Handler) HandleRecordView(w http.ResponseWriter, r *http.Request) {
	var profileID string
	if s := session.FromContext(r.Context()); s != nil {
		profileID = s.Data.ProfileID
	}

	counted, err := h.service.RecordView(r.Context(), chi.URLParam(r, "slug"), profileID)
	if err != nil {
		h.portalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"counted": counted})
}

// HandleCopy handles POST /api/portals/{slug}/copies
func (h *Handler) HandleCopy(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	slug := chi.URLParam(r, "slug")
	p, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		h.portalError(w, err)
		return
	}

	var req copyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CopierID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "copier_id and settings are required"})
		return
	}

	settings, _, err := h.copier.Copy(r.Context(), s.Data.AccessToken, req.CopierID, p.StrategyID, req.Settings)
	if err != nil {
		switch {
		case errors.Is(err, copying.ErrInvalidSettings):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case copytrade.IsUnauthorized(err):
			if destroyErr := h.sessions.Destroy(r.Context(), w, s); destroyErr != nil {
				h.log.Warn().Err(destroyErr).Msg("Failed to destroy session")
			}
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
		default:
			h.log.Warn().Err(err).Str("slug", slug).Msg("Copy from portal failed")
			h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream request failed"})
		}
		return
	}

	counted, err := h.service.RecordCopy(r.Context(), slug, s.Data.ProfileID, req.CopierID)
	if err != nil {
		// the copy itself went through; only the counter is lost
		h.log.Error().Err(err).Str("slug", slug).Msg("Failed to record portal copy")
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"settings": settings,
		"counted":  counted,
	})
}

// HandleList handles GET /api/admin/portals?active=true
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	list, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		h.portalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portals": list,
		"count":   len(list),
	})
}

// HandleCreate handles POST /api/admin/portals
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req portals.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.portalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /api/admin/portals/{portalID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "portalID"))
	if err != nil {
		h.portalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PATCH /api/admin/portals/{portalID}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req portals.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "portalID"), req)
	if err != nil {
		h.portalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /api/admin/portals/{portalID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "portalID")); err != nil {
		h.portalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStats handles GET /api/admin/portals/{portalID}/stats?days=
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	days := portals.DefaultStatsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be between 1 and 365"})
			return
		}
		days = n
	}

	stats, err := h.service.Stats(r.Context(), chi.URLParam(r, "portalID"), days)
	if err != nil {
		h.portalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":  days,
		"stats": stats,
	})
}

func (h *Handler) portalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portals.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, portals.ErrSlugTaken):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, portals.ErrInvalidTheme), errors.Is(err, portals.ErrInvalidSlug), errors.Is(err, portals.ErrInvalidPortal):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("Portal operation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
