package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Route("/funds", func(r chi.Router) {
			r.Get("/", h.HandleGetFunds)
			r.Put("/{ticker}", h.HandlePutFund)
			r.Delete("/{ticker}", h.HandleDeleteFund)
		})
		r.Get("/distributions", h.HandleGetDistributions)
	})
}
