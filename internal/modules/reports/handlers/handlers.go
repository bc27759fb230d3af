// Package handlers provides HTTP handlers for the reporting API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/fiis/internal/domain"
	"github.com/aristath/fiis/internal/modules/reports"
	"github.com/rs/zerolog"
)

const (
	defaultTimelineLimit = 3
	defaultTrendLimit    = 12
	defaultTrendWindow   = 3
	maxLimit             = 120
)

// Handler handles reporting HTTP requests
type Handler struct {
	service *reports.Service
	log     zerolog.Logger
}

// NewHandler creates a new reports handler
func NewHandler(service *reports.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "reports").Logger(),
	}
}

type fundRow struct {
	Ticker         string  `json:"ticker"`
	Qty            float64 `json:"qty"`
	AmountPerShare float64 `json:"amount_per_share"`
	Total          float64 `json:"total"`
	HasDividend    bool    `json:"has_dividend"`
}

type topYield struct {
	Ticker         string  `json:"ticker"`
	AmountPerShare float64 `json:"amount_per_share"`
}

type topPosition struct {
	Ticker string  `json:"ticker"`
	Qty    float64 `json:"qty"`
}

type summaryResponse struct {
	FiisCount      int          `json:"fiis_count"`
	Month          *string      `json:"month"`
	LastUpdate     *string      `json:"last_update"`
	TotalEstimated float64      `json:"total_estimated"`
	AvgYield       float64      `json:"avg_yield"`
	TopYield       *topYield    `json:"top_yield"`
	TopPosition    *topPosition `json:"top_position"`
}

type timelineItem struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

type trendPoint struct {
	Month         string   `json:"month"`
	Total         float64  `json:"total"`
	MovingAverage *float64 `json:"moving_average"`
}

// HandleGetFunds handles GET /api/fiis
func (h *Handler) HandleGetFunds(w http.ResponseWriter, r *http.Request) {
	var month *domain.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := domain.ParseMonth(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		month = &parsed
	}

	resolved, snapshots, err := h.service.MonthRows(r.Context(), month)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list funds for month")
		h.writeError(w, http.StatusInternalServerError, "failed to list funds")
		return
	}

	rows := make([]fundRow, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, fundRow{
			Ticker:         s.Ticker,
			Qty:            s.Quantity.InexactFloat64(),
			AmountPerShare: s.AmountPerShare.InexactFloat64(),
			Total:          s.Total.InexactFloat64(),
			HasDividend:    s.HasDividend,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"month": monthString(resolved),
		"rows":  rows,
	})
}

// HandleGetSummary handles GET /api/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute summary")
		h.writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	resp := summaryResponse{
		FiisCount:      summary.FundsCount,
		Month:          monthString(summary.Month),
		TotalEstimated: summary.TotalEstimated.InexactFloat64(),
		AvgYield:       summary.AvgYield.InexactFloat64(),
	}
	if summary.LastUpdate != nil {
		ts := summary.LastUpdate.UTC().Format(time.RFC3339)
		resp.LastUpdate = &ts
	}
	if summary.TopYield != nil {
		resp.TopYield = &topYield{
			Ticker:         summary.TopYield.Ticker,
			AmountPerShare: summary.TopYield.AmountPerShare.InexactFloat64(),
		}
	}
	if summary.TopPosition != nil {
		resp.TopPosition = &topPosition{
			Ticker: summary.TopPosition.Ticker,
			Qty:    summary.TopPosition.Quantity.InexactFloat64(),
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetTimeline handles GET /api/timeline
func (h *Handler) HandleGetTimeline(w http.ResponseWriter, r *http.Request) {
	limit := timelineLimit(r)

	totals, err := h.service.Timeline(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query timeline")
		h.writeError(w, http.StatusInternalServerError, "failed to query timeline")
		return
	}

	items := make([]timelineItem, 0, len(totals))
	for _, mt := range totals {
		items = append(items, timelineItem{Month: mt.Month.String(), Total: mt.Total.InexactFloat64()})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// HandleGetTrend handles GET /api/timeline/trend
func (h *Handler) HandleGetTrend(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultTrendLimit)
	window := queryInt(r, "window", defaultTrendWindow)

	trend, err := h.service.Trend(r.Context(), limit, window)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute trend")
		h.writeError(w, http.StatusInternalServerError, "failed to compute trend")
		return
	}

	points := make([]trendPoint, 0, len(trend.Points))
	for _, p := range trend.Points {
		points = append(points, trendPoint{Month: p.Month.String(), Total: p.Total, MovingAverage: p.MovingAverage})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"points":          points,
		"window":          trend.Window,
		"mean":            trend.Mean,
		"std_dev":         trend.StdDev,
		"last_vs_average": trend.LastVsAverage,
	})
}

// queryInt reads a positive integer parameter, falling back to def when it
// is absent or invalid
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if v > maxLimit {
		return maxLimit
	}
	return v
}

// timelineLimit is like queryInt, except that zero and negative values are
// kept so they yield an empty timeline
func timelineLimit(r *http.Request) int {
	v, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return defaultTimelineLimit
	}
	if v > maxLimit {
		return maxLimit
	}
	return v
}

func monthString(m *domain.Month) *string {
	if m == nil {
		return nil
	}
	s := m.String()
	return &s
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
