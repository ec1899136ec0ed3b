package handler

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/internal/middleware"
	"caseopener-rest-api/internal/service"
	"caseopener-rest-api/pkg/apierror"
	"caseopener-rest-api/pkg/response"
)

// StatsSource reports backend statistics.
type StatsSource interface {
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// PendingCounter reports how many records wait in a write buffer.
type PendingCounter interface {
	Count(ctx context.Context) (int64, error)
}

// CatalogSyncer runs one catalog sync.
type CatalogSyncer interface {
	RunNow(ctx context.Context) (service.IngestReport, error)
}

// AdminConfig holds the dependencies of AdminHandler. Optional ones may be nil.
type AdminConfig struct {
	Stats         StatsSource
	HistoryBuffer PendingCounter
	Economy       *service.EconomyService
	Catalog       CatalogSyncer
	DBType        string
	LoginKey      string
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	cfg       AdminConfig
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{cfg: cfg, startTime: time.Now()}
}

// LoginRequest is the body of POST /admin/login.
type LoginRequest struct {
	Key string `json:"key" validate:"required"`
}

// VerifyLogin handles POST /api/v1/admin/login
func (h *AdminHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req, "admin login") {
		return
	}

	if !middleware.ValidLoginKey(req.Key, h.cfg.LoginKey) {
		logger.FromContext(r.Context()).Warn("Rejected admin login", "remote_addr", r.RemoteAddr)
		response.Error(w, apierror.Unauthorized("Invalid login key"))
		return
	}

	response.OK(w, map[string]bool{"valid": true})
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.cfg.DBType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.cfg.HistoryBuffer != nil {
		count, err := h.cfg.HistoryBuffer.Count(ctx)
		if err == nil {
			stats["history_buffer"] = map[string]interface{}{
				"pending_records": count,
				"status":          "connected",
			}
		} else {
			stats["history_buffer"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["history_buffer"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	if h.cfg.Stats != nil {
		dbStats, err := h.cfg.Stats.GetStats(ctx)
		if err == nil {
			dbStats["status"] = "connected"
			stats["database"] = dbStats
		} else {
			stats["database"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// GrantRequest is the body of a money grant. Negative amounts are allowed.
type GrantRequest struct {
	Amount int64 `json:"amount" validate:"ne=0"`
}

// GrantMoney handles POST /api/v1/admin/users/{user_id}/grant
func (h *AdminHandler) GrantMoney(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(w, apierror.ValidationError("invalid user id",
			apierror.FieldError{Field: "user_id", Message: "Must be a positive integer"}))
		return
	}

	var req GrantRequest
	if !decodeAndValidate(w, r, &req, "grant") {
		return
	}

	user, err := h.cfg.Economy.GrantMoney(r.Context(), userID, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.OK(w, user)
}

// SyncCatalog handles POST /api/v1/admin/catalog/sync
func (h *AdminHandler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Catalog == nil {
		response.Error(w, apierror.ServiceUnavailable("Catalog sync is not configured"))
		return
	}

	report, err := h.cfg.Catalog.RunNow(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Catalog sync failed", "error", err)
		response.Error(w, apierror.InternalError("catalog sync failed"))
		return
	}
	response.OK(w, report)
}
