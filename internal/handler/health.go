package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"winshirt-sync/internal/mirror"
	"winshirt-sync/internal/service"
	"winshirt-sync/pkg/response"
)

// probeTimeout bounds the remote check of the readiness endpoints.
const probeTimeout = 3 * time.Second

// Handler serves the health and status endpoints.
type Handler struct {
	probe     *service.Probe
	mirror    mirror.Store
	name      string
	version   string
	startTime time.Time
}

// New creates a new health handler.
func New(probe *service.Probe, store mirror.Store, name, version string) *Handler {
	return &Handler{
		probe:     probe,
		mirror:    store,
		name:      name,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Online    bool      `json:"online"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (h *Handler) remoteStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if h.probe.IsConnected(ctx) {
		return "ok"
	}
	return "offline"
}

func (h *Handler) mirrorStatus(ctx context.Context) string {
	if h.mirror == nil {
		return "not_configured"
	}
	if _, err := h.mirror.Keys(ctx); err != nil {
		return "error"
	}
	return "ok"
}

// Ready handles GET /api/v1/ready. Only a broken mirror makes the service
// unready; an unreachable remote is reported through Online.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	remote := h.remoteStatus(r.Context())
	checks := []Check{
		{Name: "api", Status: "ok"},
		{Name: "mirror", Status: h.mirrorStatus(r.Context())},
		{Name: "remote", Status: remote},
	}

	resp := ReadyResponse{
		Ready:     checks[1].Status == "ok",
		Online:    remote == "ok",
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, resp)
}

// StatusChecks represents the checks in status response
type StatusChecks struct {
	Remote   string  `json:"remote"`
	Mirror   string  `json:"mirror"`
	MemoryMB float64 `json:"memory_mb"`
}

// StatusResponse represents the unified status response for bot monitoring
type StatusResponse struct {
	Service       string       `json:"service"`
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	PingMS        int64        `json:"ping_ms"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status - unified health check for bot monitoring
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	requestStart := time.Now()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	checks := StatusChecks{
		Remote:   h.remoteStatus(r.Context()),
		Mirror:   h.mirrorStatus(r.Context()),
		MemoryMB: float64(int(memoryMB*100)) / 100,
	}

	status := "ok"
	switch {
	case checks.Mirror != "ok":
		status = "down"
	case checks.Remote != "ok":
		status = "degraded"
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, StatusResponse{
		Service:       h.name,
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		PingMS:        time.Since(requestStart).Milliseconds(),
		Checks:        checks,
	})
}
