package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
)

type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url,omitempty"`
	Type      string `json:"type,omitempty"`
}

type License struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
	URL    string `json:"url"`
}

// Repository is the subset of GitHub's repository object OpenForge keeps.
type Repository struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Description     string     `json:"description"`
	HTMLURL         string     `json:"html_url"`
	CloneURL        string     `json:"clone_url"`
	Private         bool       `json:"private"`
	Topics          []string   `json:"topics"`
	StargazersCount int        `json:"stargazers_count"`
	ForksCount      int        `json:"forks_count"`
	WatchersCount   int        `json:"watchers_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	Language        string     `json:"language"`
	LanguagesURL    string     `json:"languages_url"`
	License         *License   `json:"license"`
	DefaultBranch   string     `json:"default_branch"`
	Owner           Owner      `json:"owner"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PushedAt        *time.Time `json:"pushed_at"`
}

type CreateRepositoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init"`
}

// CreateRepository creates a repository owned by the token's user.
//
// Status mapping:
//
//	201        -> created
//	422 (name) -> Conflict "Repository name already exists"
//	422        -> Validation with GitHub's message
//	401        -> Unauthorized
//	403        -> Forbidden
//	other      -> Unavailable
func (c *Client) CreateRepository(ctx context.Context, token string, req CreateRepositoryRequest) (*Repository, error) {
	resp, err := c.do(ctx, "create_repo", token, http.MethodPost, "/user/repos", req)
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusCreated:
		var repo Repository
		if err := resp.decode(&repo); err != nil {
			return nil, err
		}
		return &repo, nil
	case http.StatusUnprocessableEntity:
		e := resp.apiError()
		if nameTaken(e) {
			return nil, &apperror.AppError{Err: apperror.ErrConflict, Message: "Repository name already exists", Field: "name"}
		}
		msg := e.Message
		if msg == "" {
			msg = "Invalid repository data"
		}
		return nil, apperror.ValidationFailed("name", msg)
	case http.StatusUnauthorized:
		return nil, apperror.Unauthorized("Invalid or expired GitHub token")
	case http.StatusForbidden:
		return nil, apperror.Forbidden("Insufficient GitHub OAuth permissions. Please ensure your GitHub account has 'repo' scope.")
	default:
		return nil, apperror.Unavailable("GitHub API is unavailable",
			fmt.Errorf("github: create_repo: status %d: %s", resp.status, resp.apiError().Message))
	}
}

func nameTaken(e apiError) bool {
	for _, fe := range e.Errors {
		if fe.Field == "name" || strings.Contains(fe.Message, "name already exists") {
			return true
		}
	}
	return strings.Contains(e.Message, "name already exists")
}

// ReplaceTopics sets the repository's topics and returns what GitHub stored.
func (c *Client) ReplaceTopics(ctx context.Context, token, owner, repo string, topics []string) ([]string, error) {
	body := struct {
		Names []string `json:"names"`
	}{Names: topics}

	resp, err := c.do(ctx, "replace_topics", token, http.MethodPut, repoPath(owner, repo)+"/topics", body)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, fmt.Errorf("github: replace_topics: status %d: %s", resp.status, resp.apiError().Message)
	}

	var out struct {
		Names []string `json:"names"`
	}
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	return out.Names, nil
}

// CreateFile commits a new file on the default branch.
func (c *Client) CreateFile(ctx context.Context, token, owner, repo, path, message, content string) error {
	body := struct {
		Message string `json:"message"`
		Content string `json:"content"`
	}{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
	}

	resp, err := c.do(ctx, "create_file", token, http.MethodPut, repoPath(owner, repo)+"/contents/"+escapePath(path), body)
	if err != nil {
		return err
	}
	if resp.status != http.StatusCreated && resp.status != http.StatusOK {
		return fmt.Errorf("github: create_file %s: status %d: %s", path, resp.status, resp.apiError().Message)
	}
	return nil
}

type SearchResult struct {
	TotalCount int          `json:"total_count"`
	Items      []Repository `json:"items"`
}

// SearchRepositories runs a repository search, most recently updated first.
func (c *Client) SearchRepositories(ctx context.Context, token, query string) (*SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", "updated")
	q.Set("per_page", "30")

	resp, err := c.do(ctx, "search_repos", token, http.MethodGet, "/search/repositories?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, readError("search_repos", resp)
	}

	var out SearchResult
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRepository(ctx context.Context, token, owner, repo string) (*Repository, error) {
	resp, err := c.do(ctx, "get_repo", token, http.MethodGet, repoPath(owner, repo), nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, readError("get_repo", resp)
	}

	var out Repository
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

type Readme struct {
	Content string
	HTMLURL string
}

// GetReadme returns the decoded README, or nil when the repository has none.
func (c *Client) GetReadme(ctx context.Context, token, owner, repo string) (*Readme, error) {
	resp, err := c.do(ctx, "get_readme", token, http.MethodGet, repoPath(owner, repo)+"/readme", nil)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, nil
	}
	if resp.status != http.StatusOK {
		return nil, readError("get_readme", resp)
	}

	var out struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		HTMLURL  string `json:"html_url"`
	}
	if err := resp.decode(&out); err != nil {
		return nil, err
	}

	readme := &Readme{HTMLURL: out.HTMLURL, Content: out.Content}
	if out.Encoding == "base64" {
		// GitHub wraps the base64 payload at 60 columns.
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("github: get_readme: decoding content: %w", err)
		}
		readme.Content = string(raw)
	}
	return readme, nil
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
