package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the reporting routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/fiis", h.HandleGetFunds)
	r.Get("/summary", h.HandleGetSummary)
	r.Route("/timeline", func(r chi.Router) {
		r.Get("/", h.HandleGetTimeline)
		r.Get("/trend", h.HandleGetTrend)
	})
}
