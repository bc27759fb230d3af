package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/scheduler"
)

// SystemHandlers handles monitoring and manual job endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   map[string]*database.DB
	scheduler   *scheduler.Scheduler
	jobs        map[string]scheduler.Job
}

// SystemStatusResponse represents the host and storage status
type SystemStatusResponse struct {
	Status        string   `json:"status"` // "healthy" or "degraded"
	UptimeSeconds int64    `json:"uptime_seconds"`
	CPUPercent    float64  `json:"cpu_percent"`
	MemoryPercent float64  `json:"memory_percent"`
	Goroutines    int      `json:"goroutines"`
	ScheduledJobs int      `json:"scheduled_jobs"`
	DataDirMB     float64  `json:"data_dir_mb"`
	Databases     []DBInfo `json:"databases"`
	LastChecked   string   `json:"last_checked"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	SizeBytes    int64  `json:"size_bytes"`
	WALSizeBytes int64  `json:"wal_size_bytes"`
	Healthy      bool   `json:"healthy"`
}

// NewSystemHandlers creates a new system handlers instance. sched and jobs may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	sched *scheduler.Scheduler,
	jobs map[string]scheduler.Job,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		databases:   databases,
		scheduler:   sched,
		jobs:        jobs,
	}
}

// RegisterRoutes registers the system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/jobs", h.HandleListJobs)
		r.Post("/jobs/{name}", h.HandleTriggerJob)
	})
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.statusSnapshot(r.Context()))
}

func (h *SystemHandlers) statusSnapshot(ctx context.Context) SystemStatusResponse {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		DataDirMB:     h.getDirSize(h.dataDir),
		Databases:     make([]DBInfo, 0, len(h.databases)),
		LastChecked:   time.Now().UTC().Format(time.RFC3339),
	}
	if h.scheduler != nil {
		response.ScheduledJobs = h.scheduler.JobCount()
	}

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := h.databases[name]
		stats := db.GetStats()

		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		healthy := db.QuickCheck(checkCtx) == nil
		cancel()

		if !healthy {
			response.Status = "degraded"
			h.log.Warn().Str("database", name).Msg("Database ping failed")
		}

		response.Databases = append(response.Databases, DBInfo{
			Name:         name,
			Path:         db.Path(),
			SizeBytes:    stats.SizeBytes,
			WALSizeBytes: stats.WALSizeBytes,
			Healthy:      healthy,
		})
	}

	return response
}

// HandleListJobs handles GET /api/system/jobs, reporting each job's latest outcome
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	lastRuns := map[string]scheduler.RunRecord{}
	if h.scheduler != nil {
		lastRuns = h.scheduler.LastRuns()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":      names,
		"last_runs": lastRuns,
	})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}. The job runs in the
// background; the response only confirms it was started.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok || h.scheduler == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "unknown job: " + name,
		})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")

	go func() {
		if err := h.scheduler.RunNow(job); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": name + " triggered",
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages. The CPU sample window
// is kept short so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuAvg := 0.0
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
