// Package client is a typed Go client for the OpenForge API, used by
// openforgectl and by anything else that talks to the server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openforge/openforge-api/internal/service"
)

// APIError is a non-2xx response. Detail is the server's "detail" field.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("openforge: HTTP %d", e.Status)
	}
	return fmt.Sprintf("openforge: HTTP %d: %s", e.Status, e.Detail)
}

// Client calls the API as one user. Token, when set, is sent as a Clerk
// session token; UserID is sent as user_id either way.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	UserID  string
	Token   string
}

// New returns a Client with a 30 second timeout.
func New(baseURL, userID string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		UserID:  userID,
	}
}

func (c *Client) Dashboard(ctx context.Context) (*service.Dashboard, error) {
	var out service.Dashboard
	q := url.Values{"user_id": {c.UserID}}
	if err := c.do(ctx, http.MethodGet, "/api/dashboard?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects lists the user's projects. filter may be empty for "all".
func (c *Client) ListProjects(ctx context.Context, filter string) ([]service.ProjectView, error) {
	q := url.Values{"user_id": {c.UserID}}
	if filter != "" {
		q.Set("filter", filter)
	}
	var out struct {
		Projects []service.ProjectView `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/projects?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// ToggleStar flips the star and returns the server's new state.
func (c *Client) ToggleStar(ctx context.Context, projectID string) (bool, error) {
	var out struct {
		Starred bool `json:"starred"`
	}
	path := "/api/projects/" + url.PathEscape(projectID) + "/star"
	if err := c.do(ctx, http.MethodPost, path, c.userBody(), &out); err != nil {
		return false, err
	}
	return out.Starred, nil
}

func (c *Client) Join(ctx context.Context, projectID string) (*service.JoinResult, error) {
	var out service.JoinResult
	path := "/api/projects/" + url.PathEscape(projectID) + "/join"
	if err := c.do(ctx, http.MethodPost, path, c.userBody(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GitHubStatus(ctx context.Context) (*service.GitHubStatus, error) {
	var out service.GitHubStatus
	q := url.Values{"user_id": {c.UserID}}
	if err := c.do(ctx, http.MethodGet, "/api/projects/github-status?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) userBody() any {
	return map[string]string{"user_id": c.UserID}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("openforge: encoding request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return fmt.Errorf("openforge: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openforge: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&e) == nil {
			apiErr.Code, apiErr.Detail = e.Error, e.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openforge: decoding %s response: %w", path, err)
	}
	return nil
}
