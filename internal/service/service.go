// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes MongoDB or SQLite
//
// Services also own the calls to Clerk and GitHub. They depend on small
// interfaces (ClerkAPI, GitHubAPI, TokenSelector) rather than the concrete
// clients, so tests can substitute fakes or point the real clients at an
// httptest server.
//
// THE DEPENDENCY CHAIN:
//
//	main.go creates:  Store, Clerk, GitHub → Services → Handlers
//	At runtime:       Handler calls Service calls Store / upstream API
package service

import (
	"context"
	"errors"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/clerk"
	"github.com/openforge/openforge-api/internal/github"
)

// ClerkAPI is the part of the Clerk client the services use.
type ClerkAPI interface {
	GitHubOAuthToken(ctx context.Context, userID string) (string, error)
	GetUser(ctx context.Context, userID string) (*clerk.User, error)
}

// GitHubAPI is the part of the GitHub client the services use.
type GitHubAPI interface {
	AuthenticatedUser(ctx context.Context, token string) (*github.User, error)
	CreateRepository(ctx context.Context, token string, req github.CreateRepositoryRequest) (*github.Repository, error)
	ReplaceTopics(ctx context.Context, token, owner, repo string, topics []string) ([]string, error)
	CreateFile(ctx context.Context, token, owner, repo, path, message, content string) error
	SearchRepositories(ctx context.Context, token, query string) (*github.SearchResult, error)
	GetRepository(ctx context.Context, token, owner, repo string) (*github.Repository, error)
	GetReadme(ctx context.Context, token, owner, repo string) (*github.Readme, error)
}

// TokenSelector picks the GitHub token used for repository creation.
type TokenSelector interface {
	Select(ctx context.Context, clerkToken string) (github.Selection, error)
}

var (
	_ ClerkAPI      = (*clerk.Client)(nil)
	_ GitHubAPI     = (*github.Client)(nil)
	_ TokenSelector = (*github.TokenSelector)(nil)
)

const databaseUnavailable = "Database is not available. Please try again later."

// storeError passes application errors through unchanged and turns anything
// else from the store into a 503.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Unavailable(databaseUnavailable, err)
}
