package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// API groups every handler the server mounts.
type API struct {
	Health      *HealthHandler
	Dashboard   *DashboardHandler
	Projects    *ProjectHandler
	Marketplace *MarketplaceHandler

	// CreateRepoLimit guards repository creation. Nil means unlimited.
	CreateRepoLimit func(http.Handler) http.Handler
}

// Routes registers the public API on r.
//
// ROUTE STRUCTURE:
// GET  /                                        → liveness message
// GET  /api/health                              → health incl. database
// GET  /api/dashboard                           → dashboard for user_id
// GET  /api/projects                            → projects, ?filter=
// POST /api/projects/{id}/star                  → toggle star
// POST /api/projects/{id}/join                  → join as contributor
// GET  /api/projects/github-status              → GitHub connection state
// POST /api/projects/connect-github             → store GitHub identity
// POST /api/projects/create-github-repo         → create repo + project
// GET  /api/marketplace/repos                   → search, ?search=
// GET  /api/marketplace/repos/{owner}/{repo}    → detail with README
func (a *API) Routes(r chi.Router) {
	r.Get("/", a.Health.HandleRoot)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.Health.HandleHealth)
		r.Get("/dashboard", a.Dashboard.HandleGet)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", a.Projects.HandleList)
			r.Get("/github-status", a.Projects.HandleGitHubStatus)
			r.Post("/connect-github", a.Projects.HandleConnectGitHub)
			r.Group(func(r chi.Router) {
				if a.CreateRepoLimit != nil {
					r.Use(a.CreateRepoLimit)
				}
				r.Post("/create-github-repo", a.Projects.HandleCreateRepo)
			})
			r.Post("/{id}/star", a.Projects.HandleStar)
			r.Post("/{id}/join", a.Projects.HandleJoin)
		})

		r.Route("/marketplace", func(r chi.Router) {
			r.Get("/repos", a.Marketplace.HandleList)
			r.Get("/repos/{owner}/{repo}", a.Marketplace.HandleDetail)
		})
	})
}
