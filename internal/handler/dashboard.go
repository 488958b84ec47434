package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/openforge/openforge-api/internal/auth"
	"github.com/openforge/openforge-api/internal/service"
)

type DashboardHandler struct {
	svc           *service.DashboardService
	allowFallback bool
	logger        *slog.Logger
	now           func() time.Time
}

// NewDashboardHandler creates a DashboardHandler. allowFallback lets requests
// without a session token name the user with ?user_id=.
func NewDashboardHandler(svc *service.DashboardService, allowFallback bool, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, allowFallback: allowFallback, logger: logger, now: time.Now}
}

// HandleGet returns the caller's dashboard.
//
// HTTP: GET /api/dashboard?user_id=<clerk id>
func (h *DashboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.ResolveUserID(r.Context(), r.URL.Query().Get("user_id"), h.allowFallback)
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.svc.Get(r.Context(), userID, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
