package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the public portal routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portals/{slug}", func(r chi.Router) {
		r.Get("/", h.HandleGetPortal)
		r.Post("/views", h.HandleRecordView)
		r.Post("/copies", h.HandleCopy)
	})
}

// RegisterAdminRoutes registers the portal admin API behind a bearer token.
// An empty token leaves the admin API unregistered.
func (h *Handler) RegisterAdminRoutes(r chi.Router, token string) {
	if token == "" {
		return
	}

	r.Route("/admin/portals", func(r chi.Router) {
		r.Use(RequireBearer(token))

		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{portalID}", h.HandleGet)
		r.Patch("/{portalID}", h.HandleUpdate)
		r.Delete("/{portalID}", h.HandleDelete)
		r.Get("/{portalID}/stats", h.HandleStats)
	})
}

// RequireBearer rejects requests whose Authorization header does not carry token
func RequireBearer(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid admin token"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
