// Package handlers provides HTTP handlers for triggering and listing batch runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/fiis/internal/domain"
	"github.com/aristath/fiis/internal/modules/batch"
	"github.com/rs/zerolog"
)

// Runner is the batch surface the handlers need
type Runner interface {
	Run(ctx context.Context) (*batch.Report, error)
	Runs(ctx context.Context, limit int) ([]domain.FetchRun, error)
}

// Handler handles batch HTTP requests
type Handler struct {
	runner Runner
	log    zerolog.Logger
}

// NewHandler creates a new batch handler
func NewHandler(runner Runner, log zerolog.Logger) *Handler {
	return &Handler{
		runner: runner,
		log:    log.With().Str("handler", "batch").Logger(),
	}
}

type resultItem struct {
	Ticker         string   `json:"ticker"`
	Status         string   `json:"status"`
	AmountPerShare *float64 `json:"amount_per_share,omitempty"`
	Total          *float64 `json:"total,omitempty"`
	Error          string   `json:"error,omitempty"`
}

type fetchResponse struct {
	Status    string       `json:"status"`
	RunID     string       `json:"run_id"`
	Month     string       `json:"month"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []resultItem `json:"results"`
}

// HandleFetch handles POST /api/fetch
func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	// A client disconnect must not abort a run halfway through the portfolio
	ctx := context.WithoutCancel(r.Context())

	report, err := h.runner.Run(ctx)
	if errors.Is(err, batch.ErrBatchInProgress) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Batch fetch failed")
		h.writeError(w, http.StatusInternalServerError, "batch fetch failed")
		return
	}

	resp := fetchResponse{
		Status:    "ok",
		RunID:     report.RunID,
		Month:     report.Month.String(),
		Succeeded: report.Succeeded(),
		Failed:    report.Failed(),
		Results:   make([]resultItem, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		item := resultItem{Ticker: res.Ticker, Status: string(res.Status)}
		if res.Status == batch.StatusOK {
			amount := res.AmountPerShare.InexactFloat64()
			total := res.Total.InexactFloat64()
			item.AmountPerShare = &amount
			item.Total = &total
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, item)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetRuns handles GET /api/fetch/runs
func (h *Handler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	runs, err := h.runner.Runs(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list fetch runs")
		h.writeError(w, http.StatusInternalServerError, "failed to list fetch runs")
		return
	}

	items := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		items = append(items, map[string]interface{}{
			"id":          run.ID,
			"month":       run.Month.String(),
			"started_at":  run.StartedAt.UTC().Format(time.RFC3339),
			"finished_at": run.FinishedAt.UTC().Format(time.RFC3339),
			"succeeded":   run.Succeeded,
			"failed":      run.Failed,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
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
