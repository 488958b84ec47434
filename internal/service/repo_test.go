package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/github"
	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/repository"
)

type repoFixture struct {
	svc      *RepoService
	store    repository.Store
	clerk    *fakeClerk
	github   *fakeGitHub
	selector *fakeSelector
	metrics  *fakeMetrics
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()
	f := &repoFixture{
		store:    newTestStore(t),
		clerk:    &fakeClerk{tokens: map[string]string{"user_1": "gho_user"}},
		github:   newFakeGitHub(),
		selector: &fakeSelector{sel: github.Selection{Token: "gho_user", Source: github.SourceClerk}},
		metrics:  &fakeMetrics{},
	}
	f.svc = NewRepoService(f.store, f.clerk, f.github, f.selector, f.metrics, "openforge-demo", testLogger())
	return f
}

// =========================================================================
// SUCCESS
// =========================================================================

func TestCreateRepository_Success(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateRepository(ctx, "user_1", CreateRepoRequest{
		Name:        "  forge-demo ",
		Description: "A demo",
		Private:     true,
		TechStack:   []string{"Go", "React"},
	})
	if err != nil {
		t.Fatalf("CreateRepository() error = %v", err)
	}

	if res.Repository.FullName != "octocat/forge-demo" || !res.Repository.Private {
		t.Errorf("Repository = %+v", res.Repository)
	}
	if res.TokenSource != github.SourceClerk {
		t.Errorf("TokenSource = %q, want clerk", res.TokenSource)
	}
	if len(res.Topics) != 1 || res.Topics[0] != "openforge-demo" {
		t.Errorf("Topics = %v", res.Topics)
	}
	if strings.Join(res.FilesCreated, ",") != "README.md,.gitignore" {
		t.Errorf("FilesCreated = %v", res.FilesCreated)
	}
	if !strings.Contains(f.github.files["README.md"], "- Go\n- React") {
		t.Errorf("README = %q", f.github.files["README.md"])
	}
	if f.selector.gotClerks[0] != "gho_user" {
		t.Errorf("selector got clerk token %q", f.selector.gotClerks[0])
	}

	project, err := f.store.GetProject(ctx, res.ProjectID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if project.OwnerID != "user_1" || project.GitHubFullName != "octocat/forge-demo" {
		t.Errorf("project = %+v", project)
	}
	if project.SetupTime() != model.DefaultSetupTimeMinutes {
		t.Errorf("SetupTime() = %d, want default", project.SetupTime())
	}

	m, err := f.store.GetMembership(ctx, res.ProjectID, "user_1")
	if err != nil {
		t.Fatalf("GetMembership() error = %v", err)
	}
	if m.Role != model.MemberRoleOwner {
		t.Errorf("membership role = %q, want owner", m.Role)
	}

	if len(f.metrics.creations) != 1 || f.metrics.creations[0] != (repoCreation{"success", ""}) {
		t.Errorf("metrics = %+v", f.metrics.creations)
	}
}

func TestCreateRepository_SeedingFailuresAreNotFatal(t *testing.T) {
	f := newRepoFixture(t)
	f.github.topicsErr = errors.New("topics: 500")
	f.github.fileErrs[".gitignore"] = errors.New("contents: 409")

	res, err := f.svc.CreateRepository(context.Background(), "user_1", CreateRepoRequest{Name: "demo"})
	if err != nil {
		t.Fatalf("CreateRepository() error = %v", err)
	}
	if len(res.Topics) != 1 || res.Topics[0] != "openforge-demo" {
		t.Errorf("Topics = %v, want the requested topic", res.Topics)
	}
	if len(res.FilesCreated) != 1 || res.FilesCreated[0] != "README.md" {
		t.Errorf("FilesCreated = %v, want only README.md", res.FilesCreated)
	}
}

func TestCreateRepository_ClerkDownStillTriesStatic(t *testing.T) {
	f := newRepoFixture(t)
	f.clerk.err = errors.New("clerk down")
	f.selector.sel = github.Selection{Token: "ghp_static", Source: github.SourceStatic}

	res, err := f.svc.CreateRepository(context.Background(), "user_1", CreateRepoRequest{Name: "demo"})
	if err != nil {
		t.Fatalf("CreateRepository() error = %v", err)
	}
	if f.selector.gotClerks[0] != "" {
		t.Errorf("selector got clerk token %q, want empty", f.selector.gotClerks[0])
	}
	if res.TokenSource != github.SourceStatic {
		t.Errorf("TokenSource = %q, want static", res.TokenSource)
	}
}

// =========================================================================
// FAILURES
// =========================================================================

func TestCreateRepository_Failures(t *testing.T) {
	tests := []struct {
		name          string
		repoName      string
		setup         func(*repoFixture)
		wantErr       error
		wantErrorType string
	}{
		{
			name:          "invalid name",
			repoName:      "-bad name-",
			wantErr:       apperror.ErrValidation,
			wantErrorType: model.RepoErrorValidation,
		},
		{
			name:     "no token with repo scope",
			repoName: "demo",
			setup: func(f *repoFixture) {
				f.selector.err = apperror.Forbidden("No GitHub token with 'repo' scope is available.")
			},
			wantErr:       apperror.ErrForbidden,
			wantErrorType: model.RepoErrorAuth,
		},
		{
			name:     "name taken on github",
			repoName: "demo",
			setup: func(f *repoFixture) {
				f.github.createErr = &apperror.AppError{Err: apperror.ErrConflict, Message: "Repository name already exists"}
			},
			wantErr:       apperror.ErrConflict,
			wantErrorType: model.RepoErrorGitHubAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRepoFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.svc.CreateRepository(context.Background(), "user_1", CreateRepoRequest{Name: tt.repoName})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateRepository() error = %v, want %v", err, tt.wantErr)
			}

			want := repoCreation{model.RepoCreationFailure, tt.wantErrorType}
			if len(f.metrics.creations) != 1 || f.metrics.creations[0] != want {
				t.Errorf("metrics = %+v, want [%+v]", f.metrics.creations, want)
			}
			if len(f.github.created) != 0 {
				t.Errorf("github repos created = %d, want 0", len(f.github.created))
			}
		})
	}
}

func TestCreateRepository_NegativeEstimate(t *testing.T) {
	f := newRepoFixture(t)

	_, err := f.svc.CreateRepository(context.Background(), "user_1", CreateRepoRequest{
		Name:                     "demo",
		SetupTimeEstimateMinutes: model.IntPtr(-1),
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("CreateRepository() error = %v, want ErrValidation", err)
	}
}
