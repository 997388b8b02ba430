package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the copy-settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/copiers/{copierID}/strategies", func(r chi.Router) {
		r.Get("/", h.HandleCopierStrategies)

		r.Route("/{strategyID}", func(r chi.Router) {
			r.Get("/copy-settings", h.HandleGetSettings)
			r.Put("/copy-settings", h.HandlePutSettings)
			r.Delete("/copy-settings", h.HandleDeleteSettings)
			r.Post("/link", h.HandleLink)
			r.Post("/unlink", h.HandleUnlink)
		})
	})
}
