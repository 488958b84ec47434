package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/github"
	"github.com/openforge/openforge-api/internal/metrics"
	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/repository"
)

// CreateRepoRequest is the POST /api/projects/create-github-repo body
// (without user_id, which the handler resolves).
type CreateRepoRequest struct {
	Name                     string   `json:"name"`
	Description              string   `json:"description"`
	Private                  bool     `json:"private"`
	TechStack                []string `json:"tech_stack"`
	SetupTimeEstimateMinutes *int     `json:"setup_time_estimate_minutes"`
}

type RepoSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Private  bool   `json:"private"`
}

type CreateRepoResult struct {
	ProjectID    string             `json:"project_id"`
	Repository   RepoSummary        `json:"repository"`
	Topics       []string           `json:"topics"`
	FilesCreated []string           `json:"files_created"`
	TokenSource  github.TokenSource `json:"token_source"`
}

// RepoService creates GitHub repositories and registers them as projects.
type RepoService struct {
	store    repository.Store
	clerk    ClerkAPI
	github   GitHubAPI
	selector TokenSelector
	metrics  metrics.Recorder
	topic    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewRepoService creates a RepoService. Every new repository is tagged with
// topic so it shows up in the marketplace.
func NewRepoService(store repository.Store, clerk ClerkAPI, gh GitHubAPI, selector TokenSelector, rec metrics.Recorder, topic string, logger *slog.Logger) *RepoService {
	return &RepoService{
		store:    store,
		clerk:    clerk,
		github:   gh,
		selector: selector,
		metrics:  rec,
		topic:    topic,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRepository runs the whole flow:
//
//  1. validate the name
//  2. pick a token with the repo scope (user's Clerk token, else static)
//  3. create the repository
//  4. tag it and commit README.md and .gitignore (failures only logged)
//  5. store the project and the owner's membership
//
// Every attempt, successful or not, is recorded with its error category.
func (s *RepoService) CreateRepository(ctx context.Context, userID string, req CreateRepoRequest) (result *CreateRepoResult, err error) {
	start := s.now()
	req.Name = strings.TrimSpace(req.Name)
	attempt := &model.RepoCreationMetric{UserID: userID, RepoName: req.Name}
	defer func() {
		s.record(ctx, attempt, start, err)
	}()

	if err := github.ValidateRepositoryName(req.Name); err != nil {
		attempt.ErrorType = model.RepoErrorValidation
		return nil, err
	}
	if req.SetupTimeEstimateMinutes != nil && *req.SetupTimeEstimateMinutes < 0 {
		attempt.ErrorType = model.RepoErrorValidation
		return nil, apperror.ValidationFailed("setup_time_estimate_minutes", "setup time estimate cannot be negative")
	}

	// Clerk being down should not rule out the static token.
	clerkToken, err := s.clerk.GitHubOAuthToken(ctx, userID)
	if err != nil {
		s.logger.Warn("fetching github token from clerk",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		clerkToken = ""
	}

	sel, err := s.selector.Select(ctx, clerkToken)
	if err != nil {
		attempt.ErrorType = model.RepoErrorAuth
		return nil, err
	}
	attempt.TokenSource = string(sel.Source)

	repo, err := s.github.CreateRepository(ctx, sel.Token, github.CreateRepositoryRequest{
		Name:        req.Name,
		Description: req.Description,
		Private:     req.Private,
	})
	if err != nil {
		attempt.ErrorType = model.RepoErrorGitHubAPI
		return nil, err
	}
	owner := repo.Owner.Login

	topics := s.tagRepository(ctx, sel.Token, owner, repo.Name)
	files := s.seedRepository(ctx, sel.Token, owner, repo.Name, req)

	now := s.now().UTC()
	estimate := req.SetupTimeEstimateMinutes
	if estimate == nil {
		estimate = model.IntPtr(model.DefaultSetupTimeMinutes)
	}
	project := &model.Project{
		OwnerID:                  userID,
		Name:                     repo.Name,
		Description:              req.Description,
		TechStack:                req.TechStack,
		GitHubRepoID:             repo.ID,
		GitHubFullName:           repo.FullName,
		GitHubURL:                repo.HTMLURL,
		SetupTimeEstimateMinutes: estimate,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		attempt.ErrorType = model.RepoErrorDatabase
		s.logger.Error("repository created on github but project not saved",
			slog.String("full_name", repo.FullName),
			slog.String("error", err.Error()),
		)
		return nil, storeError(err)
	}

	membership := &model.ProjectMembership{
		ProjectID: project.ID,
		UserID:    userID,
		Role:      model.MemberRoleOwner,
		JoinedAt:  now,
	}
	if err := s.store.CreateMembership(ctx, membership); err != nil && !errors.Is(err, apperror.ErrConflict) {
		attempt.ErrorType = model.RepoErrorDatabase
		return nil, storeError(err)
	}

	s.logger.Info("repository created",
		slog.String("user_id", userID),
		slog.String("full_name", repo.FullName),
		slog.String("project_id", project.ID),
		slog.String("token_source", string(sel.Source)),
	)

	return &CreateRepoResult{
		ProjectID: project.ID,
		Repository: RepoSummary{
			ID:       repo.ID,
			Name:     repo.Name,
			FullName: repo.FullName,
			HTMLURL:  repo.HTMLURL,
			Private:  repo.Private,
		},
		Topics:       topics,
		FilesCreated: files,
		TokenSource:  sel.Source,
	}, nil
}

func (s *RepoService) tagRepository(ctx context.Context, token, owner, repo string) []string {
	want := []string{s.topic}
	got, err := s.github.ReplaceTopics(ctx, token, owner, repo, want)
	if err != nil {
		s.logger.Warn("tagging repository",
			slog.String("repo", owner+"/"+repo),
			slog.String("error", err.Error()),
		)
		return want
	}
	return got
}

// seedRepository commits the starter files and returns the ones that made it.
func (s *RepoService) seedRepository(ctx context.Context, token, owner, repo string, req CreateRepoRequest) []string {
	files := []struct{ path, content string }{
		{"README.md", github.ReadmeTemplate(repo, req.Description, s.topic, req.TechStack)},
		{".gitignore", github.GitignoreTemplate(req.TechStack)},
	}

	created := []string{}
	for _, f := range files {
		err := s.github.CreateFile(ctx, token, owner, repo, f.path, "Add "+f.path, f.content)
		if err != nil {
			s.logger.Warn("creating starter file",
				slog.String("repo", owner+"/"+repo),
				slog.String("path", f.path),
				slog.String("error", err.Error()),
			)
			continue
		}
		created = append(created, f.path)
	}
	return created
}

// record stores the attempt and updates Prometheus. It runs even when the
// request context is already cancelled.
func (s *RepoService) record(ctx context.Context, attempt *model.RepoCreationMetric, start time.Time, err error) {
	elapsed := s.now().Sub(start)
	attempt.DurationMS = elapsed.Milliseconds()
	attempt.CreatedAt = s.now().UTC()
	attempt.Status = model.RepoCreationSuccess
	if err != nil {
		attempt.Status = model.RepoCreationFailure
		attempt.ErrorMessage = err.Error()
	}

	s.metrics.RecordRepoCreation(attempt.Status, attempt.ErrorType, elapsed)

	if recErr := s.store.RecordRepoCreation(context.WithoutCancel(ctx), attempt); recErr != nil {
		s.logger.Warn("recording repository creation metric",
			slog.String("error", recErr.Error()),
		)
	}
}
