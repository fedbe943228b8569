package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

var startTime = time.Now()

// Checker reports whether a dependency can serve requests.
type Checker interface {
	Available(ctx context.Context) error
}

// Pinger reports whether a store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	extractor Checker
	history   Pinger
	tempDir   string
}

// NewHealthHandler creates a new health handler. history may be nil; tempDir
// is the directory cookie jars are staged in ("" for os.TempDir()).
func NewHealthHandler(extractor Checker, history Pinger, tempDir string) *HealthHandler {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &HealthHandler{
		extractor: extractor,
		history:   history,
		tempDir:   tempDir,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}

	checks["extractor"] = "ok"
	if err := h.extractor.Available(ctx); err != nil {
		checks["extractor"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.history != nil {
		checks["history"] = "ok"
		if err := h.history.Ping(ctx); err != nil {
			checks["history"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if status != http.StatusOK {
		resp.Status = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// SystemStats contains system resource statistics.
type SystemStats struct {
	Uptime         int64   `json:"uptime_seconds"`
	UptimeHuman    string  `json:"uptime_human"`
	MemAllocMB     int64   `json:"mem_alloc_mb"`
	MemSysMB       int64   `json:"mem_sys_mb"`
	MemHeapMB      int64   `json:"mem_heap_mb"`
	NumGoroutines  int     `json:"num_goroutines"`
	NumCPU         int     `json:"num_cpu"`
	HostMemTotalMB int64   `json:"host_mem_total_mb"`
	HostMemUsedPct float64 `json:"host_mem_used_pct"`
	DiskUsedBytes  int64   `json:"disk_used_bytes"`
	DiskFreeBytes  int64   `json:"disk_free_bytes"`
	DiskTotalBytes int64   `json:"disk_total_bytes"`
	DiskUsedPct    float64 `json:"disk_used_pct"`
	TempPath       string  `json:"temp_path"`
}

// Stats handles GET /api/v1/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		MemHeapMB:     int64(m.HeapAlloc / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		TempPath:      h.tempDir,
	}

	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		stats.HostMemTotalMB = int64(vm.Total / 1024 / 1024)
		stats.HostMemUsedPct = vm.UsedPercent
	}

	// Cookie jars are staged here; a full disk breaks extraction.
	if usage, err := disk.UsageWithContext(r.Context(), h.tempDir); err == nil {
		stats.DiskTotalBytes = int64(usage.Total)
		stats.DiskFreeBytes = int64(usage.Free)
		stats.DiskUsedBytes = int64(usage.Used)
		stats.DiskUsedPct = usage.UsedPercent
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
