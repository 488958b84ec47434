package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/github"
	"github.com/openforge/openforge-api/internal/metrics"
	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/render"
	"github.com/openforge/openforge-api/internal/repository"
)

// MarketplaceRepo is one search result.
type MarketplaceRepo struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	FullName        string       `json:"full_name"`
	Description     string       `json:"description"`
	HTMLURL         string       `json:"html_url"`
	Topics          []string     `json:"topics"`
	StargazersCount int          `json:"stargazers_count"`
	ForksCount      int          `json:"forks_count"`
	Language        string       `json:"language"`
	Owner           github.Owner `json:"owner"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type RepoList struct {
	TotalCount   int               `json:"total_count"`
	Repositories []MarketplaceRepo `json:"repositories"`
}

type ReadmeView struct {
	Content      *string `json:"content"`
	HTMLURL      *string `json:"html_url"`
	RenderedHTML string  `json:"rendered_html,omitempty"`
}

// RepoDetail is one repository with its README.
type RepoDetail struct {
	MarketplaceRepo
	WatchersCount   int             `json:"watchers_count"`
	OpenIssuesCount int             `json:"open_issues_count"`
	LanguagesURL    string          `json:"languages_url"`
	License         *github.License `json:"license"`
	DefaultBranch   string          `json:"default_branch"`
	PushedAt        *time.Time      `json:"pushed_at"`
	Readme          ReadmeView      `json:"readme"`
}

// MarketplaceService lists repositories carrying the OpenForge topic.
//
// GitHub responses are cached in the store for ttl. The cache is advisory:
// read or write failures are logged and the request goes to GitHub.
type MarketplaceService struct {
	cache   repository.CacheRepository
	github  GitHubAPI
	token   string
	topic   string
	ttl     time.Duration
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewMarketplaceService creates a MarketplaceService. token is the static
// GitHub token; an empty one makes anonymous (lower rate limit) calls.
func NewMarketplaceService(cache repository.CacheRepository, gh GitHubAPI, token, topic string, ttl time.Duration, rec metrics.Recorder, logger *slog.Logger) *MarketplaceService {
	return &MarketplaceService{
		cache:   cache,
		github:  gh,
		token:   token,
		topic:   topic,
		ttl:     ttl,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
	}
}

// ListRepositories searches the topic, optionally narrowed by name.
func (s *MarketplaceService) ListRepositories(ctx context.Context, search string) (*RepoList, error) {
	search = strings.TrimSpace(search)
	query := "topic:" + s.topic
	if search != "" {
		query += " " + search + " in:name"
	}

	return cached(ctx, s, "repo_list_"+search, func(ctx context.Context) (*RepoList, error) {
		res, err := s.github.SearchRepositories(ctx, s.token, query)
		if err != nil {
			return nil, err
		}
		list := &RepoList{TotalCount: res.TotalCount, Repositories: make([]MarketplaceRepo, 0, len(res.Items))}
		for _, r := range res.Items {
			list.Repositories = append(list.Repositories, marketplaceRepo(r))
		}
		return list, nil
	})
}

// GetRepository returns one repository with its README rendered to HTML.
func (s *MarketplaceService) GetRepository(ctx context.Context, owner, repo string) (*RepoDetail, error) {
	if owner == "" || repo == "" {
		return nil, apperror.ValidationFailed("repo", "owner and repository name are required")
	}

	return cached(ctx, s, "repo_detail_"+owner+"_"+repo, func(ctx context.Context) (*RepoDetail, error) {
		r, err := s.github.GetRepository(ctx, s.token, owner, repo)
		if err != nil {
			return nil, err
		}

		detail := &RepoDetail{
			MarketplaceRepo: marketplaceRepo(*r),
			WatchersCount:   r.WatchersCount,
			OpenIssuesCount: r.OpenIssuesCount,
			LanguagesURL:    r.LanguagesURL,
			License:         r.License,
			DefaultBranch:   r.DefaultBranch,
			PushedAt:        r.PushedAt,
		}

		// A missing or unreadable README does not fail the page.
		readme, err := s.github.GetReadme(ctx, s.token, owner, repo)
		if err != nil {
			s.logger.Warn("fetching readme",
				slog.String("repo", owner+"/"+repo),
				slog.String("error", err.Error()),
			)
		}
		if readme != nil {
			detail.Readme.Content = &readme.Content
			detail.Readme.HTMLURL = &readme.HTMLURL
			html, err := render.Markdown(readme.Content)
			if err != nil {
				s.logger.Warn("rendering readme",
					slog.String("repo", owner+"/"+repo),
					slog.String("error", err.Error()),
				)
			}
			detail.Readme.RenderedHTML = html
		}
		return detail, nil
	})
}

func marketplaceRepo(r github.Repository) MarketplaceRepo {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return MarketplaceRepo{
		ID:              r.ID,
		Name:            r.Name,
		FullName:        r.FullName,
		Description:     r.Description,
		HTMLURL:         r.HTMLURL,
		Topics:          topics,
		StargazersCount: r.StargazersCount,
		ForksCount:      r.ForksCount,
		Language:        r.Language,
		Owner:           r.Owner,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// cached serves key from the cache or calls fetch and stores the result.
func cached[T any](ctx context.Context, s *MarketplaceService, key string, fetch func(context.Context) (*T, error)) (*T, error) {
	now := s.now().UTC()

	entry, err := s.cache.GetCache(ctx, key, now)
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(entry.Data, &v); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &v, nil
		}
		s.logger.Warn("discarding unreadable cache entry", slog.String("key", key))
	case !errors.Is(err, apperror.ErrNotFound):
		s.logger.Warn("reading marketplace cache",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	s.metrics.RecordCacheLookup(false)

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := s.cache.SetCache(ctx, &model.CacheEntry{
		Key:       key,
		Data:      data,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}); err != nil {
		s.logger.Warn("writing marketplace cache",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return v, nil
}
