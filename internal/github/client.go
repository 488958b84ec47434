// Package github is a small client for the parts of the GitHub REST API
// OpenForge uses: reading the caller's identity and scopes, creating and
// seeding repositories, and searching the marketplace topic.
//
// Every request goes through one shared token bucket (golang.org/x/time/rate)
// so a burst of dashboard or marketplace traffic cannot exhaust the static
// token's hourly quota in seconds. Tokens are attached by an oauth2.Transport,
// one per call, because the token differs per user.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.github.com"
	userAgent      = "OpenForge/1.0"
	acceptHeader   = "application/vnd.github+json"
	apiVersion     = "2022-11-28"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Limiter   *rate.Limiter
	Transport http.RoundTripper
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	baseURL   string
	timeout   time.Duration
	limiter   *rate.Limiter
	transport http.RoundTripper
	metrics   metrics.Recorder
	logger    *slog.Logger
}

func New(opts Options) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		timeout:   opts.Timeout,
		limiter:   opts.Limiter,
		transport: opts.Transport,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// httpClient returns a client that authenticates as token. An empty token
// sends anonymous requests.
func (c *Client) httpClient(token string) *http.Client {
	if token == "" {
		return &http.Client{Timeout: c.timeout, Transport: c.transport}
	}
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   c.transport,
		},
	}
}

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) decode(out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("github: decoding response: %w", err)
	}
	return nil
}

// do sends one request. op names the call in metrics and logs. A non-2xx
// status is not an error here; callers map statuses themselves.
func (c *Client) do(ctx context.Context, op, token, method, path string, body any) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperror.Unavailable("GitHub API is unavailable", fmt.Errorf("github: %s: waiting for rate limiter: %w", op, err))
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("github: %s: encoding body: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("github: %s: building request: %w", op, err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient(token).Do(req)
	if err != nil {
		c.metrics.RecordGitHubRequest(op, 0)
		c.logger.Warn("github request failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("Failed to connect to GitHub API", fmt.Errorf("github: %s: %w", op, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.RecordGitHubRequest(op, resp.StatusCode)
	if err != nil {
		return nil, apperror.Unavailable("Failed to connect to GitHub API", fmt.Errorf("github: %s: reading body: %w", op, err))
	}

	c.logger.Debug("github request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// apiError is GitHub's error body.
type apiError struct {
	Message string `json:"message"`
	Errors  []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
		Message  string `json:"message"`
	} `json:"errors"`
}

func (r *response) apiError() apiError {
	var e apiError
	_ = json.Unmarshal(r.body, &e)
	return e
}

var errRateLimited = errors.New("github: rate limited")

// readError maps a failed read (GET) to an application error.
func readError(op string, r *response) error {
	switch r.status {
	case http.StatusNotFound:
		return &apperror.AppError{Err: apperror.ErrNotFound, Message: "Repository not found"}
	case http.StatusUnauthorized:
		return apperror.Unauthorized("Invalid or expired GitHub token")
	case http.StatusForbidden, http.StatusTooManyRequests:
		return apperror.Unavailable("GitHub API rate limit exceeded. Please try again later.", errRateLimited)
	default:
		return apperror.Unavailable("GitHub API is unavailable",
			fmt.Errorf("github: %s: status %d: %s", op, r.status, r.apiError().Message))
	}
}
