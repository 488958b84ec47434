package github

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/openforge/openforge-api/internal/apperror"
)

// fakeChecker answers Scopes from a map and counts lookups.
type fakeChecker struct {
	scopes map[string][]string
	errs   map[string]error
	calls  int
}

func (f *fakeChecker) Scopes(_ context.Context, token string) ([]string, error) {
	f.calls++
	if err := f.errs[token]; err != nil {
		return nil, err
	}
	return f.scopes[token], nil
}

func TestTokenSelector(t *testing.T) {
	checker := &fakeChecker{
		scopes: map[string][]string{
			"clerk-full":   {"read:user", "repo"},
			"clerk-narrow": {"read:user", "public_repo"},
			"static-full":  {"repo"},
			"static-none":  {},
		},
		errs: map[string]error{
			"clerk-broken": errors.New("connection refused"),
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		clerk      string
		static     string
		wantToken  string
		wantSource TokenSource
		wantErr    bool
	}{
		{"clerk token preferred", "clerk-full", "static-full", "clerk-full", SourceClerk, false},
		{"falls back to static", "clerk-narrow", "static-full", "static-full", SourceStatic, false},
		{"no clerk token", "", "static-full", "static-full", SourceStatic, false},
		{"scope check error falls through", "clerk-broken", "static-full", "static-full", SourceStatic, false},
		{"neither has repo", "clerk-narrow", "static-none", "", "", true},
		{"nothing configured", "", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := NewTokenSelector(checker, tt.static, logger).Select(context.Background(), tt.clerk)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrForbidden) {
					t.Fatalf("Select() error = %v, want ErrForbidden", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if sel.Token != tt.wantToken || sel.Source != tt.wantSource {
				t.Errorf("Select() = %+v, want token %q source %q", sel, tt.wantToken, tt.wantSource)
			}
		})
	}
}

func TestTokenSelector_ChecksEveryCall(t *testing.T) {
	checker := &fakeChecker{scopes: map[string][]string{"clerk": {"repo"}}}
	s := NewTokenSelector(checker, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		if _, err := s.Select(context.Background(), "clerk"); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
	}
	if checker.calls != 3 {
		t.Errorf("scope lookups = %d, want 3", checker.calls)
	}

	// A revoked scope is noticed on the next call.
	checker.scopes["clerk"] = []string{"read:user"}
	if _, err := s.Select(context.Background(), "clerk"); err == nil {
		t.Error("Select() after revocation: expected error, got nil")
	}
}

func TestHasRepoScope(t *testing.T) {
	tests := []struct {
		scopes []string
		want   bool
	}{
		{nil, false},
		{[]string{"repo"}, true},
		{[]string{"public_repo"}, false},
		{[]string{"repo:status", "repo_deployment"}, false},
		{[]string{"user", "repo", "gist"}, true},
	}
	for _, tt := range tests {
		if got := HasRepoScope(tt.scopes); got != tt.want {
			t.Errorf("HasRepoScope(%v) = %v, want %v", tt.scopes, got, tt.want)
		}
	}
}
