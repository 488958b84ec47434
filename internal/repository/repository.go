package repository

import (
	"context"
	"time"

	"github.com/openforge/openforge-api/internal/model"
)

type UserRepository interface {
	GetUser(ctx context.Context, clerkID string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateVisit(ctx context.Context, clerkID string, visitedAt time.Time, streak int) error
	UpdateXP(ctx context.Context, clerkID string, xp, level int) error
	UpdateGitHubConnection(ctx context.Context, clerkID string, conn model.GitHubConnection) error
}

type ProjectRepository interface {
	CreateProject(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]model.Project, error)
	ListProjectsByIDs(ctx context.Context, ids []string) ([]model.Project, error)
	// AddJoinedMember adds userID to joined_members (no duplicates) and sets
	// the setup estimate to the default when it is unset.
	AddJoinedMember(ctx context.Context, projectID, userID string) error
}

type MembershipRepository interface {
	CreateMembership(ctx context.Context, membership *model.ProjectMembership) error
	GetMembership(ctx context.Context, projectID, userID string) (*model.ProjectMembership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]model.ProjectMembership, error)
}

type StarRepository interface {
	// ToggleStar stars the project if the user has not, unstars it otherwise,
	// and returns the new state.
	ToggleStar(ctx context.Context, projectID, userID string) (bool, error)
	ListStarsByUser(ctx context.Context, userID string) ([]model.ProjectStar, error)
}

type ContributionRepository interface {
	CreateContribution(ctx context.Context, contribution *model.Contribution) error
	ListContributionsByUser(ctx context.Context, userID string) ([]model.Contribution, error)
}

type CacheRepository interface {
	// GetCache returns the entry for key if it is still fresh at now.
	GetCache(ctx context.Context, key string, now time.Time) (*model.CacheEntry, error)
	SetCache(ctx context.Context, entry *model.CacheEntry) error
}

type RepoMetricsRepository interface {
	RecordRepoCreation(ctx context.Context, metric *model.RepoCreationMetric) error
}

// Store is everything the services need from persistence. Both the MongoDB
// and the SQLite backends implement it.
type Store interface {
	UserRepository
	ProjectRepository
	MembershipRepository
	StarRepository
	ContributionRepository
	CacheRepository
	RepoMetricsRepository

	Ping(ctx context.Context) error
	Close() error
}
