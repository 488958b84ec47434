package github

import (
	"context"
	"net/http"
	"strings"
)

// User is the authenticated GitHub account behind a token.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`

	// Scopes granted to the token, from the X-OAuth-Scopes header.
	// Fine-grained tokens report none.
	Scopes []string `json:"-"`
}

// AuthenticatedUser returns the account the token belongs to.
func (c *Client) AuthenticatedUser(ctx context.Context, token string) (*User, error) {
	resp, err := c.do(ctx, "get_user", token, http.MethodGet, "/user", nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, readError("get_user", resp)
	}

	var u User
	if err := resp.decode(&u); err != nil {
		return nil, err
	}
	u.Scopes = parseScopes(resp.header.Get("X-OAuth-Scopes"))
	return &u, nil
}

// Scopes returns the OAuth scopes granted to token.
func (c *Client) Scopes(ctx context.Context, token string) ([]string, error) {
	u, err := c.AuthenticatedUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return u.Scopes, nil
}

func parseScopes(header string) []string {
	var scopes []string
	for _, s := range strings.Split(header, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// HasRepoScope reports whether scopes include the full "repo" scope.
// Narrower scopes such as "public_repo" or "repo:status" do not count.
func HasRepoScope(scopes []string) bool {
	for _, s := range scopes {
		if s == "repo" {
			return true
		}
	}
	return false
}
