package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the request/response positions routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/positions/summary", h.HandleSummary)
}

// RegisterStreamRoutes registers long-lived routes; they must not sit behind a request timeout
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/positions/stream", h.HandleStream)
}
