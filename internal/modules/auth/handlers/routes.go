package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the login flow routes at the router root
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Get("/login", h.HandleLogin)
	r.Get("/callback", h.HandleCallback)
	r.Get("/logout", h.HandleLogout)
	r.Get("/api/me", h.HandleMe)
}
