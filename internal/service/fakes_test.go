package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/clerk"
	"github.com/openforge/openforge-api/internal/github"
	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/repository"
	"github.com/openforge/openforge-api/internal/repository/sqlite"
)

// =========================================================================
// TEST HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore opens a fresh in-memory SQLite store. The real store is used
// instead of a hand-written mock so service tests also cover the queries.
func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// brokenStore fails every user read, standing in for a database that went
// away mid-flight.
type brokenStore struct {
	repository.Store
}

var errConnectionLost = errors.New("connection lost")

func (brokenStore) GetUser(context.Context, string) (*model.User, error) {
	return nil, errConnectionLost
}

// =========================================================================
// FAKE CLERK
// =========================================================================

type fakeClerk struct {
	tokens   map[string]string
	profiles map[string]*clerk.User
	err      error
}

func (f *fakeClerk) GitHubOAuthToken(_ context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.tokens[userID], nil
}

func (f *fakeClerk) GetUser(_ context.Context, userID string) (*clerk.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[userID], nil
}

// =========================================================================
// FAKE GITHUB
// =========================================================================

type fakeGitHub struct {
	mu sync.Mutex

	users      map[string]*github.User // by token
	createErr  error
	topicsErr  error
	fileErrs   map[string]error
	created    []github.CreateRepositoryRequest
	files      map[string]string
	search     *github.SearchResult
	repos      map[string]*github.Repository // by "owner/repo"
	readmes    map[string]*github.Readme
	searches   int
	repoLookup int
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		users:    map[string]*github.User{},
		fileErrs: map[string]error{},
		files:    map[string]string{},
		repos:    map[string]*github.Repository{},
		readmes:  map[string]*github.Readme{},
	}
}

func (f *fakeGitHub) AuthenticatedUser(_ context.Context, token string) (*github.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, apperror.Unauthorized("Invalid or expired GitHub token")
}

func (f *fakeGitHub) CreateRepository(_ context.Context, _ string, req github.CreateRepositoryRequest) (*github.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &github.Repository{
		ID:       int64(1000 + len(f.created)),
		Name:     req.Name,
		FullName: "octocat/" + req.Name,
		HTMLURL:  "https://github.com/octocat/" + req.Name,
		Private:  req.Private,
		Owner:    github.Owner{Login: "octocat"},
	}, nil
}

func (f *fakeGitHub) ReplaceTopics(_ context.Context, _, _, _ string, topics []string) ([]string, error) {
	if f.topicsErr != nil {
		return nil, f.topicsErr
	}
	return topics, nil
}

func (f *fakeGitHub) CreateFile(_ context.Context, _, _, _, path, _, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fileErrs[path]; err != nil {
		return err
	}
	f.files[path] = content
	return nil
}

func (f *fakeGitHub) SearchRepositories(context.Context, string, string) (*github.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.search == nil {
		return nil, apperror.Unavailable("GitHub API rate limit exceeded. Please try again later.", errors.New("403"))
	}
	return f.search, nil
}

func (f *fakeGitHub) GetRepository(_ context.Context, _, owner, repo string) (*github.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repoLookup++
	if r, ok := f.repos[owner+"/"+repo]; ok {
		return r, nil
	}
	return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "Repository not found"}
}

func (f *fakeGitHub) GetReadme(_ context.Context, _, owner, repo string) (*github.Readme, error) {
	return f.readmes[owner+"/"+repo], nil
}

// =========================================================================
// FAKE SELECTOR AND METRICS
// =========================================================================

type fakeSelector struct {
	sel       github.Selection
	err       error
	gotClerks []string
}

func (f *fakeSelector) Select(_ context.Context, clerkToken string) (github.Selection, error) {
	f.gotClerks = append(f.gotClerks, clerkToken)
	return f.sel, f.err
}

type repoCreation struct {
	status, errorType string
}

type fakeMetrics struct {
	mu        sync.Mutex
	creations []repoCreation
	hits      int
	misses    int
}

func (f *fakeMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (f *fakeMetrics) RecordGitHubRequest(string, int)                      {}

func (f *fakeMetrics) RecordRepoCreation(status, errorType string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creations = append(f.creations, repoCreation{status, errorType})
}

func (f *fakeMetrics) RecordCacheLookup(hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}
