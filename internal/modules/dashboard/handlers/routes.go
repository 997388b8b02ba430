package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the dashboard routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleOverview)
	r.Get("/accounts", h.HandleAccounts)

	r.Get("/copiers/{copierID}/signals/open", h.HandleCopierOpenSignals)
	r.Get("/copiers/{copierID}/signals/closed", h.HandleCopierClosedSignals)
	r.Get("/strategies/{strategyID}/signals/open", h.HandleStrategyOpenSignals)
	r.Get("/strategies/{strategyID}/signals/closed", h.HandleStrategyClosedSignals)
}
