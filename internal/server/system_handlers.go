package server

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/copydash/internal/database"
)

// CacheSizer reports how many summaries the positions cache holds
type CacheSizer interface {
	CacheSize() int
}

// SystemHandlers serves process and storage status
type SystemHandlers struct {
	log       zerolog.Logger
	cache     CacheSizer
	databases []*database.DB
	startedAt time.Time
	// Overridable in tests
	stats func() (float64, float64)
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, cache CacheSizer, databases []*database.DB) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		cache:     cache,
		databases: databases,
		startedAt: time.Now(),
	}
	h.stats = h.getSystemStats
	return h
}

// DatabaseStatus describes one database file
type DatabaseStatus struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Size      string `json:"size"`
	Healthy   bool   `json:"healthy"`
}

// StatusResponse is the body of GET /api/system/status
type StatusResponse struct {
	Status          string           `json:"status"`
	Uptime          string           `json:"uptime"`
	Goroutines      int              `json:"goroutines"`
	CPUPercent      float64          `json:"cpu_percent"`
	MemoryPercent   float64          `json:"memory_percent"`
	CachedSummaries int              `json:"cached_summaries"`
	Databases       []DatabaseStatus `json:"databases"`
}

// HandleStatus handles GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.stats()

	response := StatusResponse{
		Status:          "healthy",
		Uptime:          time.Since(h.startedAt).Round(time.Second).String(),
		Goroutines:      runtime.NumGoroutine(),
		CPUPercent:      cpuPercent,
		MemoryPercent:   memPercent,
		CachedSummaries: h.cache.CacheSize(),
		Databases:       make([]DatabaseStatus, 0, len(h.databases)),
	}

	for _, db := range h.databases {
		status := DatabaseStatus{Name: db.Name(), Healthy: true}
		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database ping failed")
			status.Healthy = false
			response.Status = "degraded"
		}
		if info, err := os.Stat(db.Path()); err == nil {
			status.SizeBytes = info.Size()
		}
		status.Size = humanize.Bytes(uint64(status.SizeBytes))
		response.Databases = append(response.Databases, status)
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the request fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
