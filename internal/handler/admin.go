package handler

import (
	"net/http"
	"runtime"
	"time"

	"winshirt-sync/internal/mirror"
	"winshirt-sync/internal/repository"
	"winshirt-sync/internal/service"
	"winshirt-sync/pkg/apierror"
	"winshirt-sync/pkg/response"
)

// AdminHandler handles backup, sync bookkeeping and user management.
type AdminHandler struct {
	backup     *service.BackupService
	status     *mirror.StatusBook
	resync     *service.ResyncScheduler
	auth       *service.AuthService
	remote     repository.RemoteRepository
	store      mirror.Store
	remoteType string
	mirrorType string
	startTime  time.Time
}

// AdminConfig collects the dependencies of the admin handler. Auth and Resync
// may be nil when the account store or the resync loop is disabled.
type AdminConfig struct {
	Backup     *service.BackupService
	Status     *mirror.StatusBook
	Resync     *service.ResyncScheduler
	Auth       *service.AuthService
	Remote     repository.RemoteRepository
	Mirror     mirror.Store
	RemoteType string
	MirrorType string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{
		backup:     cfg.Backup,
		status:     cfg.Status,
		resync:     cfg.Resync,
		auth:       cfg.Auth,
		remote:     cfg.Remote,
		store:      cfg.Mirror,
		remoteType: cfg.RemoteType,
		mirrorType: cfg.MirrorType,
		startTime:  time.Now(),
	}
}

// Backup handles GET /api/v1/admin/backup
func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	snap, filename, err := h.backup.ExportSnapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := service.MarshalSnapshot(snap)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Attachment(w, "application/json", filename, data)
}

// Restore handles POST /api/v1/admin/restore[?push=true]
func (h *AdminHandler) Restore(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body := http.MaxBytesReader(w, r.Body, maxBackupBytes)

	report, err := h.backup.ImportSnapshot(r.Context(), body, queryBool(r, "push"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, report)
}

// Clear handles POST /api/v1/admin/clear?confirm=true
func (h *AdminHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !queryBool(r, "confirm") {
		writeError(w, r, apierror.BadRequest("confirm=true is required to clear all data"))
		return
	}
	report, err := h.backup.ClearAllData(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, report)
}

// Sync handles GET /api/v1/admin/sync
func (h *AdminHandler) Sync(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.status.All(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, statuses)
}

// Resync handles POST /api/v1/admin/resync
func (h *AdminHandler) Resync(w http.ResponseWriter, r *http.Request) {
	if h.resync == nil {
		writeError(w, r, apierror.ServiceUnavailable("resync is not configured"))
		return
	}
	n, err := h.resync.RunNow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]int{"refreshed": n})
}

func backendStats(stats map[string]interface{}, err error, kind string) map[string]interface{} {
	if err != nil {
		return map[string]interface{}{"type": kind, "status": "error", "error": err.Error()}
	}
	if stats == nil {
		stats = make(map[string]interface{})
	}
	stats["type"] = kind
	stats["status"] = "connected"
	return stats
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.remote != nil {
		remoteStats, err := h.remote.Stats(ctx)
		stats["remote"] = backendStats(remoteStats, err, h.remoteType)
	} else {
		stats["remote"] = map[string]interface{}{"status": "not_configured"}
	}

	mirrorStats, err := h.store.Stats(ctx)
	stats["mirror"] = backendStats(mirrorStats, err, h.mirrorType)

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

func (h *AdminHandler) accounts(w http.ResponseWriter, r *http.Request) bool {
	if h.auth == nil {
		writeError(w, r, apierror.ServiceUnavailable("account store is not configured"))
		return false
	}
	return true
}

// ListUsers handles GET /api/v1/admin/users[?limit=&offset=]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.accounts(w, r) {
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	users, total, err := h.auth.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, users, limit, offset, total)
}

// SetRole handles PUT /api/v1/admin/users/{id}/role
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	if !h.accounts(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.SetRole(r.Context(), id, req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{"id": id, "role": req.Role})
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.accounts(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	response.NoContent(w)
}
