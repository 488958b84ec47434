package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	serviceName    = "openforge-backend"
	serviceVersion = "0.1.0"
)

// Pinger is satisfied by every repository.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleRoot answers GET /.
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OpenForge API is running",
		"status":  "healthy",
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// HandleHealth answers GET /api/health. It returns 503 when the database does
// not answer a ping within two seconds, so load balancers take the instance
// out of rotation.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Service: serviceName, Version: serviceVersion, Database: "connected"}
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check: database ping failed", slog.String("error", err.Error()))
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
