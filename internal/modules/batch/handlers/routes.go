package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the batch routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/fetch", func(r chi.Router) {
		r.Post("/", h.HandleFetch)
		r.Get("/runs", h.HandleGetRuns)
	})
}
