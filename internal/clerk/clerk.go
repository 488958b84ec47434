// Package clerk talks to the Clerk Backend API.
//
// Two things are needed from Clerk: the GitHub OAuth access token a user
// granted when signing in with GitHub, and basic profile data for new users.
// Both calls authenticate with the instance secret key as a bearer token.
package clerk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/openforge/openforge-api/internal/apperror"
)

const DefaultBaseURL = "https://api.clerk.com/v1"

// githubProvider is Clerk's provider id for GitHub social connections.
const githubProvider = "oauth_github"

// User is the part of Clerk's user object OpenForge uses.
type User struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// Client is safe for concurrent use. A Client with no secret key is valid:
// every lookup then reports "nothing found".
type Client struct {
	baseURL string
	http    *http.Client
	enabled bool
	logger  *slog.Logger
}

// New builds a client for the Clerk instance identified by secretKey.
// base is the transport to wrap; nil means http.DefaultTransport.
func New(baseURL, secretKey string, base http.RoundTripper, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secretKey}),
				Base:   base,
			},
		},
		enabled: secretKey != "",
		logger:  logger,
	}
}

// Enabled reports whether a secret key was configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

type oauthTokenResponse struct {
	Token  string   `json:"token"`
	Scopes []string `json:"scopes"`
}

// GitHubOAuthToken returns the user's GitHub access token, or "" when the
// user has no GitHub connection (or Clerk is not configured).
func (c *Client) GitHubOAuthToken(ctx context.Context, userID string) (string, error) {
	if !c.enabled {
		return "", nil
	}

	var tokens []oauthTokenResponse
	path := "/users/" + url.PathEscape(userID) + "/oauth_access_tokens/" + githubProvider
	found, err := c.get(ctx, path, &tokens)
	if err != nil {
		return "", err
	}
	if !found || len(tokens) == 0 {
		return "", nil
	}
	return tokens[0].Token, nil
}

type userResponse struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Username              string `json:"username"`
	ImageURL              string `json:"image_url"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// GetUser fetches the user's profile. It returns (nil, nil) when Clerk is
// not configured or does not know the user.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	if !c.enabled {
		return nil, nil
	}

	var resp userResponse
	found, err := c.get(ctx, "/users/"+url.PathEscape(userID), &resp)
	if err != nil || !found {
		return nil, err
	}

	u := &User{ID: resp.ID, AvatarURL: resp.ImageURL}
	u.Name = strings.TrimSpace(resp.FirstName + " " + resp.LastName)
	if u.Name == "" {
		u.Name = resp.Username
	}
	for _, e := range resp.EmailAddresses {
		if e.ID == resp.PrimaryEmailAddressID || u.Email == "" {
			u.Email = e.EmailAddress
		}
	}
	return u, nil
}

// get decodes a 200 response into out. found is false on 404.
func (c *Client) get(ctx context.Context, path string, out any) (found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("clerk: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, apperror.Unavailable("Authentication service is unavailable", fmt.Errorf("clerk: GET %s: %w", path, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.Error("clerk rejected the secret key", slog.Int("status", resp.StatusCode))
		return false, apperror.Unavailable("Authentication service is unavailable", fmt.Errorf("clerk: GET %s: status %d", path, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return false, apperror.Unavailable("Authentication service is unavailable", fmt.Errorf("clerk: GET %s: status %d", path, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("clerk: decoding %s: %w", path, err)
	}
	return true, nil
}
