// Package handlers provides the copy-settings HTTP endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/aristath/copydash/internal/modules/copying"
	"github.com/aristath/copydash/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SessionStore ends sessions whose upstream token was rejected
type SessionStore interface {
	Destroy(ctx context.Context, w http.ResponseWriter, s *session.Session) error
}

// Handler serves copy commands
type Handler struct {
	service  *copying.Service
	sessions SessionStore
	log      zerolog.Logger
}

// NewHandler creates a copying handler
func NewHandler(service *copying.Service, sessions SessionStore, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		log:      log.With().Str("handler", "copying").Logger(),
	}
}

// HandleCopierStrategies handles GET /api/copiers/{copierID}/strategies
func (h *Handler) HandleCopierStrategies(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	strategies, err := h.service.CopierStrategies(r.Context(), s.Data.AccessToken, chi.URLParam(r, "copierID"))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": strategies,
		"count":      len(strategies),
	})
}

// HandleGetSettings handles GET /api/copiers/{copierID}/strategies/{strategyID}/copy-settings
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), s.Data.AccessToken, chi.URLParam(r, "copierID"), chi.URLParam(r, "strategyID"))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// HandlePutSettings handles PUT /api/copiers/{copierID}/strategies/{strategyID}/copy-settings.
// Responds 201 when copying started, 200 when existing settings changed.
func (h *Handler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	settings, ok := h.decodeSettings(w, r)
	if !ok {
		return
	}

	result, created, err := h.service.Copy(r.Context(), s.Data.AccessToken, chi.URLParam(r, "copierID"), chi.URLParam(r, "strategyID"), settings)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, copying.Status{Copying: true, Settings: result})
}

// HandleDeleteSettings handles DELETE /api/copiers/{copierID}/strategies/{strategyID}/copy-settings?mode=
func (h *Handler) HandleDeleteSettings(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	mode := copytrade.DeleteMode(r.URL.Query().Get("mode"))
	applied, err := h.service.StopCopy(r.Context(), s.Data.AccessToken, chi.URLParam(r, "copierID"), chi.URLParam(r, "strategyID"), mode)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"stopped": true,
		"mode":    applied,
	})
}

// HandleLink handles POST /api/copiers/{copierID}/strategies/{strategyID}/link
func (h *Handler) HandleLink(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	settings, ok := h.decodeSettings(w, r)
	if !ok {
		return
	}

	result, err := h.service.Link(r.Context(), s.Data.AccessToken, chi.URLParam(r, "copierID"), chi.URLParam(r, "strategyID"), settings)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, copying.Status{Copying: true, Settings: result})
}

// HandleUnlink handles POST /api/copiers/{copierID}/strategies/{strategyID}/unlink
func (h *Handler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.service.Unlink(r.Context(), s.Data.AccessToken, chi.URLParam(r, "copierID"), chi.URLParam(r, "strategyID")); err != nil {
		h.fail(w, r, s, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"stopped": true,
		"mode":    copytrade.DeleteModeManual,
	})
}

func (h *Handler) decodeSettings(w http.ResponseWriter, r *http.Request) (copytrade.CopySettings, bool) {
	var settings copytrade.CopySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return settings, false
	}
	return settings, true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return nil, false
	}
	return s, true
}

// fail maps service and upstream errors to responses
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	switch {
	case errors.Is(err, copying.ErrInvalidSettings), errors.Is(err, copying.ErrInvalidMode):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, copying.ErrAlreadyLinked):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case copytrade.IsUnauthorized(err):
		if destroyErr := h.sessions.Destroy(r.Context(), w, s); destroyErr != nil {
			h.log.Warn().Err(destroyErr).Msg("Failed to destroy session")
		}
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
	case copytrade.IsNotFound(err):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "copy relationship not found"})
	default:
		h.log.Warn().Err(err).Msg("Copy command failed upstream")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream request failed"})
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
