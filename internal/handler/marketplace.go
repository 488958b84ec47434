package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openforge/openforge-api/internal/service"
)

// MarketplaceHandler serves /api/marketplace. It needs no user: the
// marketplace is public.
type MarketplaceHandler struct {
	svc    *service.MarketplaceService
	logger *slog.Logger
}

func NewMarketplaceHandler(svc *service.MarketplaceService, logger *slog.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{svc: svc, logger: logger}
}

// HandleList searches marketplace repositories.
//
// HTTP: GET /api/marketplace/repos?search=
func (h *MarketplaceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListRepositories(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleDetail returns one repository with its README.
//
// HTTP: GET /api/marketplace/repos/{owner}/{repo}
func (h *MarketplaceHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetRepository(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
