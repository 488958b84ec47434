package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openforge/openforge-api/internal/auth"
	"github.com/openforge/openforge-api/internal/service"
)

// ProjectHandler serves /api/projects.
type ProjectHandler struct {
	projects      *service.ProjectService
	repos         *service.RepoService
	allowFallback bool
	logger        *slog.Logger
}

func NewProjectHandler(projects *service.ProjectService, repos *service.RepoService, allowFallback bool, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, repos: repos, allowFallback: allowFallback, logger: logger}
}

// userBody is the {"user_id": ...} body shared by the POST routes.
type userBody struct {
	UserID string `json:"user_id"`
}

// resolveFromBody decodes the body into v and resolves the acting user from
// it. v must embed or be a userBody.
func (h *ProjectHandler) resolveFromBody(w http.ResponseWriter, r *http.Request, v any, supplied func() string) (string, bool) {
	if err := decodeJSON(w, r, v); err != nil {
		writeError(w, err)
		return "", false
	}
	userID, err := auth.ResolveUserID(r.Context(), supplied(), h.allowFallback)
	if err != nil {
		writeError(w, err)
		return "", false
	}
	return userID, true
}

// HandleList returns the caller's projects.
//
// HTTP: GET /api/projects?user_id=&filter=all|owned|contributed|starred
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, err := auth.ResolveUserID(r.Context(), q.Get("user_id"), h.allowFallback)
	if err != nil {
		writeError(w, err)
		return
	}

	projects, err := h.projects.List(r.Context(), userID, q.Get("filter"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// HandleStar toggles the caller's star.
//
// HTTP: POST /api/projects/{id}/star
// REQUEST BODY: {"user_id": "user_..."}
// RESPONSE: {"starred": true}
func (h *ProjectHandler) HandleStar(w http.ResponseWriter, r *http.Request) {
	var body userBody
	userID, ok := h.resolveFromBody(w, r, &body, func() string { return body.UserID })
	if !ok {
		return
	}

	starred, err := h.projects.ToggleStar(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"starred": starred})
}

// HandleJoin adds the caller as a contributor.
//
// HTTP: POST /api/projects/{id}/join
func (h *ProjectHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var body userBody
	userID, ok := h.resolveFromBody(w, r, &body, func() string { return body.UserID })
	if !ok {
		return
	}

	res, err := h.projects.Join(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGitHubStatus reports the caller's GitHub connection.
//
// HTTP: GET /api/projects/github-status?user_id=
func (h *ProjectHandler) HandleGitHubStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.ResolveUserID(r.Context(), r.URL.Query().Get("user_id"), h.allowFallback)
	if err != nil {
		writeError(w, err)
		return
	}

	status, err := h.projects.GitHubStatus(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleConnectGitHub stores the GitHub identity from Clerk on the user.
//
// HTTP: POST /api/projects/connect-github
func (h *ProjectHandler) HandleConnectGitHub(w http.ResponseWriter, r *http.Request) {
	var body userBody
	userID, ok := h.resolveFromBody(w, r, &body, func() string { return body.UserID })
	if !ok {
		return
	}

	status, err := h.projects.ConnectGitHub(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type createRepoBody struct {
	userBody
	service.CreateRepoRequest
}

// HandleCreateRepo creates a GitHub repository and its project.
//
// HTTP: POST /api/projects/create-github-repo
// REQUEST BODY:
//
//	{"user_id": "...", "name": "my-repo", "description": "...", "private": false,
//	 "tech_stack": ["Go"], "setup_time_estimate_minutes": 10}
//
// RESPONSE: 201 with the repository, topics and files created.
func (h *ProjectHandler) HandleCreateRepo(w http.ResponseWriter, r *http.Request) {
	var body createRepoBody
	userID, ok := h.resolveFromBody(w, r, &body, func() string { return body.UserID })
	if !ok {
		return
	}

	res, err := h.repos.CreateRepository(r.Context(), userID, body.CreateRepoRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
