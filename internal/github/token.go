package github

import (
	"context"
	"log/slog"

	"github.com/openforge/openforge-api/internal/apperror"
)

// TokenSource names where a selected token came from. It is stored on
// repository creation metrics and returned to the client.
type TokenSource string

const (
	SourceClerk  TokenSource = "clerk"
	SourceStatic TokenSource = "static"
)

type Selection struct {
	Token  string
	Source TokenSource
}

// ScopeChecker reports the scopes granted to a token. *Client implements it.
type ScopeChecker interface {
	Scopes(ctx context.Context, token string) ([]string, error)
}

// TokenSelector picks the token used to create repositories.
//
// Order of preference:
//  1. the user's own token from Clerk, if it carries "repo"
//  2. the server's static token, if it carries "repo"
//
// Scopes are checked on every call. Users grant and revoke scopes at any time
// and a cached answer would hand out a token that no longer works.
type TokenSelector struct {
	checker     ScopeChecker
	staticToken string
	logger      *slog.Logger
}

func NewTokenSelector(checker ScopeChecker, staticToken string, logger *slog.Logger) *TokenSelector {
	return &TokenSelector{checker: checker, staticToken: staticToken, logger: logger}
}

// Select returns the first candidate token with the repo scope. clerkToken
// may be empty.
func (s *TokenSelector) Select(ctx context.Context, clerkToken string) (Selection, error) {
	if clerkToken != "" {
		if s.hasRepoScope(ctx, SourceClerk, clerkToken) {
			return Selection{Token: clerkToken, Source: SourceClerk}, nil
		}
		s.logger.Warn("clerk github token lacks repo scope")
	}

	if s.staticToken != "" {
		if s.hasRepoScope(ctx, SourceStatic, s.staticToken) {
			return Selection{Token: s.staticToken, Source: SourceStatic}, nil
		}
		s.logger.Warn("static github token lacks repo scope")
	}

	return Selection{}, apperror.Forbidden(
		"No GitHub token with 'repo' scope is available. Reconnect GitHub with repository access or configure GITHUB_TOKEN.")
}

// hasRepoScope treats a failed scope lookup as "no scope" so the next
// candidate still gets a chance.
func (s *TokenSelector) hasRepoScope(ctx context.Context, source TokenSource, token string) bool {
	scopes, err := s.checker.Scopes(ctx, token)
	if err != nil {
		s.logger.Warn("checking github token scopes",
			slog.String("source", string(source)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return HasRepoScope(scopes)
}
