// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/fiis/internal/domain"
	"github.com/aristath/fiis/internal/events"
	"github.com/aristath/fiis/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles ledger HTTP requests
type Handler struct {
	ledgerDB *sql.DB
	repo     *ledger.Repository
	events   *events.Manager
	log      zerolog.Logger
}

// NewHandler creates a new ledger handler. eventManager may be nil.
func NewHandler(
	ledgerDB *sql.DB,
	repo *ledger.Repository,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ledgerDB: ledgerDB,
		repo:     repo,
		events:   eventManager,
		log:      log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetFunds handles GET /api/ledger/funds
func (h *Handler) HandleGetFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := h.repo.ListFunds(r.Context(), h.ledgerDB)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list funds")
		h.writeError(w, http.StatusInternalServerError, "failed to list funds")
		return
	}

	items := make([]map[string]interface{}, 0, len(funds))
	for _, f := range funds {
		items = append(items, fundJSON(f))
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"funds": items,
		"count": len(items),
	}))
}

type putFundRequest struct {
	Qty string `json:"qty"`
}

// HandlePutFund handles PUT /api/ledger/funds/{ticker}
// Body: {"qty": "100"}. The quantity accepts the same formats as scraped
// amounts; signed values are rejected.
func (h *Handler) HandlePutFund(w http.ResponseWriter, r *http.Request) {
	ticker := domain.NormalizeTicker(chi.URLParam(r, "ticker"))

	var req putFundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	qty, err := ledger.ParseQuantity(req.Qty)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	fund, err := h.repo.UpsertFund(r.Context(), h.ledgerDB, ticker, qty)
	if errors.Is(err, ledger.ErrInvalidPosition) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to upsert fund")
		h.writeError(w, http.StatusInternalServerError, "failed to save fund")
		return
	}

	h.emit("upserted", fund.Ticker)
	h.writeJSON(w, http.StatusOK, envelope(fundJSON(*fund)))
}

// HandleDeleteFund handles DELETE /api/ledger/funds/{ticker}
func (h *Handler) HandleDeleteFund(w http.ResponseWriter, r *http.Request) {
	ticker := domain.NormalizeTicker(chi.URLParam(r, "ticker"))

	deleted, err := h.repo.DeleteFund(r.Context(), h.ledgerDB, ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to delete fund")
		h.writeError(w, http.StatusInternalServerError, "failed to delete fund")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "fund not found")
		return
	}

	h.emit("deleted", ticker)
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetDistributions handles GET /api/ledger/distributions?month=YYYY-MM
// Lists the raw records of one month (latest month by default).
func (h *Handler) HandleGetDistributions(w http.ResponseWriter, r *http.Request) {
	var month *domain.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := domain.ParseMonth(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = &parsed
	} else {
		latest, err := h.repo.LatestMonth(r.Context(), h.ledgerDB)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to get latest month")
			h.writeError(w, http.StatusInternalServerError, "failed to query distributions")
			return
		}
		month = latest
	}

	items := make([]map[string]interface{}, 0)
	if month != nil {
		records, err := h.repo.RecordsForMonth(r.Context(), h.ledgerDB, *month)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to query distributions")
			h.writeError(w, http.StatusInternalServerError, "failed to query distributions")
			return
		}
		for _, rec := range records {
			items = append(items, map[string]interface{}{
				"ticker":           rec.Ticker,
				"as_of_month":      rec.AsOfMonth.String(),
				"amount_per_share": rec.AmountPerShare.String(),
				"qty":              rec.QuantitySnapshot.String(),
				"total":            rec.Total.String(),
				"fetched_at":       rec.FetchedAt.Format(time.RFC3339),
				"source_url":       rec.SourceURL,
			})
		}
	}

	var monthValue interface{}
	if month != nil {
		monthValue = month.String()
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"month":         monthValue,
		"distributions": items,
		"count":         len(items),
	}))
}

// fundJSON renders decimals as strings so quantities round-trip exactly
func fundJSON(f domain.FundPosition) map[string]interface{} {
	return map[string]interface{}{
		"ticker":     f.Ticker,
		"qty":        f.Quantity.String(),
		"created_at": f.CreatedAt.Format(time.RFC3339),
	}
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *Handler) emit(action, ticker string) {
	if h.events == nil {
		return
	}
	h.events.EmitTyped("ledger", &events.FundsChangedData{Action: action, Tickers: []string{ticker}})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
