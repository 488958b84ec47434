package clerk

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforge/openforge-api/internal/apperror"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFakeClerk(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}/oauth_access_tokens/oauth_github", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.PathValue("id") {
		case "user_gh":
			io.WriteString(w, `[{"token":"gho_abc","scopes":["repo","read:user"]}]`)
		case "user_nogh":
			io.WriteString(w, `[]`)
		case "user_broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "user_gh" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{
			"id": "user_gh",
			"first_name": "Ada",
			"last_name": "Lovelace",
			"image_url": "https://img.clerk.com/ada.png",
			"primary_email_address_id": "idn_2",
			"email_addresses": [
				{"id": "idn_1", "email_address": "old@example.com"},
				{"id": "idn_2", "email_address": "ada@example.com"}
			]
		}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubOAuthToken(t *testing.T) {
	srv := newFakeClerk(t)
	c := New(srv.URL, "sk_test", nil, testLogger())
	ctx := context.Background()

	token, err := c.GitHubOAuthToken(ctx, "user_gh")
	require.NoError(t, err)
	assert.Equal(t, "gho_abc", token)

	token, err = c.GitHubOAuthToken(ctx, "user_nogh")
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = c.GitHubOAuthToken(ctx, "user_unknown")
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = c.GitHubOAuthToken(ctx, "user_broken")
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestGitHubOAuthToken_WrongSecret(t *testing.T) {
	srv := newFakeClerk(t)
	c := New(srv.URL, "sk_wrong", nil, testLogger())

	_, err := c.GitHubOAuthToken(context.Background(), "user_gh")
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestDisabledClient(t *testing.T) {
	c := New("http://127.0.0.1:1", "", nil, testLogger())
	assert.False(t, c.Enabled())

	token, err := c.GitHubOAuthToken(context.Background(), "user_gh")
	require.NoError(t, err)
	assert.Empty(t, token)

	u, err := c.GetUser(context.Background(), "user_gh")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestGetUser(t *testing.T) {
	srv := newFakeClerk(t)
	c := New(srv.URL, "sk_test", nil, testLogger())

	u, err := c.GetUser(context.Background(), "user_gh")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "https://img.clerk.com/ada.png", u.AvatarURL)

	missing, err := c.GetUser(context.Background(), "user_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
