package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/github"
	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/repository"
)

// Project list filters accepted by ProjectService.List.
const (
	FilterAll         = "all"
	FilterOwned       = "owned"
	FilterContributed = "contributed"
	FilterStarred     = "starred"
)

// ProjectService handles starring, joining and listing projects, and the
// user's GitHub connection.
type ProjectService struct {
	store  repository.Store
	clerk  ClerkAPI
	github GitHubAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewProjectService(store repository.Store, clerk ClerkAPI, gh GitHubAPI, logger *slog.Logger) *ProjectService {
	return &ProjectService{store: store, clerk: clerk, github: gh, logger: logger, now: time.Now}
}

// userProjects is everything a user has done with projects.
type userProjects struct {
	owned   []model.Project
	joined  []model.Project
	starred []model.Project
	ctx     projectContext
}

// loadUserProjects reads owned, joined and starred projects. A project the
// user owns is never also listed as joined, even though the owner has a
// membership record for it.
func loadUserProjects(ctx context.Context, store repository.Store, userID string) (*userProjects, error) {
	owned, err := store.ListProjectsByOwner(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	ownedIDs := make(map[string]bool, len(owned))
	for _, p := range owned {
		ownedIDs[p.ID] = true
	}

	memberships, err := store.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	var joinedIDs []string
	for _, m := range memberships {
		if m.Role == model.MemberRoleOwner || ownedIDs[m.ProjectID] {
			continue
		}
		joinedIDs = append(joinedIDs, m.ProjectID)
	}
	joined, err := store.ListProjectsByIDs(ctx, joinedIDs)
	if err != nil {
		return nil, storeError(err)
	}

	stars, err := store.ListStarsByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	starredIDs := make([]string, 0, len(stars))
	for _, s := range stars {
		starredIDs = append(starredIDs, s.ProjectID)
	}
	starred, err := store.ListProjectsByIDs(ctx, starredIDs)
	if err != nil {
		return nil, storeError(err)
	}

	pc := projectContext{
		starred: make(map[string]bool, len(starredIDs)),
		joined:  make(map[string]bool, len(joined)),
	}
	for _, id := range starredIDs {
		pc.starred[id] = true
	}
	for _, p := range joined {
		pc.joined[p.ID] = true
	}

	return &userProjects{owned: owned, joined: joined, starred: starred, ctx: pc}, nil
}

// List returns the user's projects for one filter. "all" is owned followed
// by contributed projects.
func (s *ProjectService) List(ctx context.Context, userID, filter string) ([]ProjectView, error) {
	if filter == "" {
		filter = FilterAll
	}
	switch filter {
	case FilterAll, FilterOwned, FilterContributed, FilterStarred:
	default:
		return nil, apperror.ValidationFailed("filter", "filter must be one of all, owned, contributed, starred")
	}

	up, err := loadUserProjects(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	out := []ProjectView{}
	if filter == FilterAll || filter == FilterOwned {
		out = append(out, up.ctx.views(up.owned, FilterOwned)...)
	}
	if filter == FilterAll || filter == FilterContributed {
		out = append(out, up.ctx.views(up.joined, FilterContributed)...)
	}
	if filter == FilterStarred {
		out = append(out, up.ctx.views(up.starred, FilterStarred)...)
	}
	return out, nil
}

// getProject maps a missing project to the message the frontend shows.
func (s *ProjectService) getProject(ctx context.Context, projectID string) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "Project not found"}
		}
		return nil, storeError(err)
	}
	return p, nil
}

// ToggleStar flips the user's star on a project and returns the new state.
func (s *ProjectService) ToggleStar(ctx context.Context, projectID, userID string) (bool, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	if err := s.requireProjectAccess(ctx, project, userID); err != nil {
		return false, err
	}

	starred, err := s.store.ToggleStar(ctx, projectID, userID)
	if err != nil {
		return false, storeError(err)
	}

	s.logger.Info("project star toggled",
		slog.String("project_id", projectID),
		slog.String("user_id", userID),
		slog.Bool("starred", starred),
	)
	return starred, nil
}

var errNoProjectAccess = apperror.Forbidden("You don't have access to this project. Must be admin or project member with GitHub connected.")

// requireProjectAccess lets admins through, and otherwise the owner or a
// member whose GitHub account is connected.
func (s *ProjectService) requireProjectAccess(ctx context.Context, project *model.Project, userID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return errNoProjectAccess
		}
		return storeError(err)
	}
	if user.IsAdmin() {
		return nil
	}
	if !user.GitHubConnected {
		return errNoProjectAccess
	}
	if project.OwnerID == userID {
		return nil
	}
	if _, err := s.store.GetMembership(ctx, project.ID, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return errNoProjectAccess
		}
		return storeError(err)
	}
	return nil
}

// JoinResult is the POST /api/projects/{id}/join response.
type JoinResult struct {
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
}

var errAlreadyMember = apperror.ValidationFailed("project_id", "Already a member of this project")

// Join makes userID a contributor. The membership row is written first and
// its unique (project, user) index keeps it single. Retrying after a failed
// member-list update completes the join instead of reporting a duplicate.
func (s *ProjectService) Join(ctx context.Context, projectID, userID string) (*JoinResult, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID == userID || project.HasMember(userID) {
		return nil, errAlreadyMember
	}

	membership := &model.ProjectMembership{
		ProjectID: project.ID,
		UserID:    userID,
		Role:      model.MemberRoleContributor,
		JoinedAt:  s.now().UTC(),
	}
	if err := s.store.CreateMembership(ctx, membership); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, storeError(err)
		}
		// The membership exists but the member list does not name the user:
		// an earlier join failed halfway. Finish it.
		s.logger.Warn("repairing half-finished join",
			slog.String("project_id", project.ID),
			slog.String("user_id", userID),
		)
	}

	if err := s.store.AddJoinedMember(ctx, project.ID, userID); err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("project joined",
		slog.String("project_id", project.ID),
		slog.String("user_id", userID),
	)
	return &JoinResult{Message: "Successfully joined project", ProjectID: project.ID}, nil
}

// GitHubStatus is the GET /api/projects/github-status response.
type GitHubStatus struct {
	Connected    bool   `json:"github_connected"`
	Username     string `json:"github_username,omitempty"`
	HasRepoScope bool   `json:"has_repo_scope"`
}

// GitHubStatus reports whether the user's Clerk account carries a GitHub
// token and whether that token can create repositories. Without a Clerk
// token it falls back to what the user record says.
func (s *ProjectService) GitHubStatus(ctx context.Context, userID string) (*GitHubStatus, error) {
	token, err := s.clerk.GitHubOAuthToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	if token == "" {
		status := &GitHubStatus{}
		user, err := s.store.GetUser(ctx, userID)
		switch {
		case err == nil:
			status.Connected = user.GitHubConnected
			status.Username = user.GitHubUsername
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, storeError(err)
		}
		return status, nil
	}

	ghUser, err := s.github.AuthenticatedUser(ctx, token)
	if err != nil {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			return nil, err
		}
		// Clerk still holds a token GitHub no longer accepts. The account is
		// linked but cannot create repositories until the user signs in again.
		s.logger.Warn("stored GitHub token rejected", slog.String("user_id", userID))
		status := &GitHubStatus{Connected: true}
		if user, err := s.store.GetUser(ctx, userID); err == nil {
			status.Username = user.GitHubUsername
		}
		return status, nil
	}
	return &GitHubStatus{
		Connected:    true,
		Username:     ghUser.Login,
		HasRepoScope: github.HasRepoScope(ghUser.Scopes),
	}, nil
}

// ConnectGitHub copies the GitHub identity from Clerk onto the user record.
func (s *ProjectService) ConnectGitHub(ctx context.Context, userID string) (*GitHubStatus, error) {
	token, err := s.clerk.GitHubOAuthToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, apperror.ValidationFailed("github", "GitHub account is not connected in Clerk")
	}

	ghUser, err := s.github.AuthenticatedUser(ctx, token)
	if err != nil {
		return nil, err
	}

	conn := model.GitHubConnection{Connected: true, UserID: ghUser.ID, Username: ghUser.Login}
	err = s.store.UpdateGitHubConnection(ctx, userID, conn)
	if errors.Is(err, apperror.ErrNotFound) {
		// Connecting before ever opening the dashboard.
		user := model.NewDefaultUser(userID, s.now().UTC())
		user.GitHubConnected, user.GitHubUserID, user.GitHubUsername = true, ghUser.ID, ghUser.Login
		err = s.store.CreateUser(ctx, user)
	}
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("github connected",
		slog.String("user_id", userID),
		slog.String("github_username", ghUser.Login),
	)
	return &GitHubStatus{
		Connected:    true,
		Username:     ghUser.Login,
		HasRepoScope: github.HasRepoScope(ghUser.Scopes),
	}, nil
}
