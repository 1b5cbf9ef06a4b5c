// Package handlers provides the HTTP API handlers for hermes.
package handlers

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"gorm.io/gorm"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/service"
)

// PlayoutHealth is the slice of the playout monitor the health endpoint
// reads.
type PlayoutHealth interface {
	// HeartbeatAge is time since the last successful poll; negative means
	// playout has never answered.
	HeartbeatAge() time.Duration
	// Healthy reports whether the last poll succeeded.
	Healthy() bool
}

// HealthHandler handles the deep health check endpoint.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        *gorm.DB
	stats     *service.Stats
	playout   PlayoutHealth
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, db *gorm.DB, stats *service.Stats, playout PlayoutHealth) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		db:        db,
		stats:     stats,
		playout:   playout,
	}
}

// Register registers the health route with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/api/health",
		Summary:     "Health check",
		Description: "Returns service health including database, playout, feed, and system metrics",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// DatabaseHealth reports database reachability and pool pressure.
type DatabaseHealth struct {
	Status          string  `json:"status"`
	PingMs          float64 `json:"ping_ms"`
	OpenConnections int     `json:"open_connections"`
	InUse           int     `json:"in_use"`
	Idle            int     `json:"idle"`
	Error           string  `json:"error,omitempty"`
}

// PlayoutHealthStatus reports the playout connection state.
type PlayoutHealthStatus struct {
	Status             string  `json:"status"`
	HeartbeatAgeSecond float64 `json:"heartbeat_age_seconds"`
}

// SystemHealth reports host load and memory from gopsutil.
type SystemHealth struct {
	Cores         int     `json:"cores"`
	Load1Min      float64 `json:"load_1min"`
	Load5Min      float64 `json:"load_5min"`
	Load15Min     float64 `json:"load_15min"`
	MemoryUsedPct float64 `json:"memory_used_pct"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	ProcessRSSMB  uint64  `json:"process_rss_mb"`
}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status            string              `json:"status"`
	Version           string              `json:"version"`
	Timestamp         string              `json:"timestamp"`
	Uptime            string              `json:"uptime"`
	UptimeSeconds     float64             `json:"uptime_seconds"`
	Database          DatabaseHealth      `json:"database"`
	Playout           PlayoutHealthStatus `json:"playout"`
	BreaksPlayedToday int64               `json:"breaks_played_today"`
	BreaksFailedToday int64               `json:"breaks_failed_today"`
	HeadlinesToday    int64               `json:"headlines_today"`
	FeedsHealthy      int64               `json:"feeds_healthy"`
	FeedsTotal        int64               `json:"feeds_total"`
	LastBreak         *models.Break       `json:"last_break,omitempty"`
	System            SystemHealth        `json:"system"`
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// GetHealth returns the health status of the service. It degrades rather
// than errors: a dead database or silent playout shows up in the body, not
// as a 500, so the probe itself stays reachable.
func (h *HealthHandler) GetHealth(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	resp := HealthResponse{
		Status:        "ok",
		Version:       h.version,
		Timestamp:     now.UTC().Format(time.RFC3339),
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Database:      h.databaseHealth(ctx),
		Playout:       h.playoutHealth(),
		System:        systemHealth(),
	}

	if resp.Database.Status != "ok" {
		resp.Status = "degraded"
	}
	if resp.Playout.Status != "ok" {
		resp.Status = "degraded"
	}

	if h.stats != nil {
		if snapshot, err := h.stats.Today(ctx); err == nil {
			resp.BreaksPlayedToday = snapshot.BreaksPlayedToday
			resp.BreaksFailedToday = snapshot.BreaksFailedToday
			resp.HeadlinesToday = snapshot.HeadlinesToday
			resp.FeedsHealthy = snapshot.FeedsHealthy
			resp.FeedsTotal = snapshot.FeedsTotal
			resp.LastBreak = snapshot.LastBreak
		}
	}

	return &HealthOutput{Body: resp}, nil
}

func (h *HealthHandler) databaseHealth(ctx context.Context) DatabaseHealth {
	if h.db == nil {
		return DatabaseHealth{Status: "not_configured"}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return DatabaseHealth{Status: "error", Error: err.Error()}
	}

	start := time.Now()
	if err := sqlDB.PingContext(ctx); err != nil {
		return DatabaseHealth{Status: "error", Error: err.Error()}
	}
	ping := time.Since(start)

	poolStats := sqlDB.Stats()
	return DatabaseHealth{
		Status:          "ok",
		PingMs:          float64(ping.Microseconds()) / 1000,
		OpenConnections: poolStats.OpenConnections,
		InUse:           poolStats.InUse,
		Idle:            poolStats.Idle,
	}
}

func (h *HealthHandler) playoutHealth() PlayoutHealthStatus {
	if h.playout == nil {
		return PlayoutHealthStatus{Status: "not_configured", HeartbeatAgeSecond: -1}
	}

	age := h.playout.HeartbeatAge()
	status := PlayoutHealthStatus{HeartbeatAgeSecond: age.Seconds()}
	switch {
	case age < 0:
		status.Status = "never_seen"
		status.HeartbeatAgeSecond = -1
	case h.playout.Healthy():
		status.Status = "ok"
	default:
		status.Status = "unreachable"
	}
	return status
}

func systemHealth() SystemHealth {
	info := SystemHealth{Cores: runtime.NumCPU()}

	if loadAvg, err := load.Avg(); err == nil && loadAvg != nil {
		info.Load1Min = loadAvg.Load1
		info.Load5Min = loadAvg.Load5
		info.Load15Min = loadAvg.Load15
	}

	const mib = 1024 * 1024
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		info.MemoryUsedPct = vm.UsedPercent
		info.MemoryTotalMB = vm.Total / mib
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			info.ProcessRSSMB = memInfo.RSS / mib
		}
	}

	return info
}
