package service

import (
	"time"

	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/stats"
)

// ProjectView is a project as the frontend sees it.
type ProjectView struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"`
	Description              string       `json:"description"`
	TechStack                []string     `json:"techStack"`
	Starred                  bool         `json:"starred"`
	Joined                   bool         `json:"joined"`
	Filter                   string       `json:"filter,omitempty"`
	Metadata                 MetadataView `json:"metadata"`
	SetupTimeEstimateMinutes int          `json:"setupTimeEstimateMinutes"`
	GitHubURL                string       `json:"githubUrl,omitempty"`
	CreatedAt                time.Time    `json:"createdAt"`
	UpdatedAt                time.Time    `json:"updatedAt"`
}

type MetadataView struct {
	Commits          int `json:"commits"`
	Contributors     int `json:"contributors"`
	OpenIssues       int `json:"openIssues"`
	TimeSavedMinutes int `json:"timeSavedMinutes"`
}

// projectContext is what the caller has done with each project.
type projectContext struct {
	starred map[string]bool
	joined  map[string]bool
}

func (pc projectContext) view(p model.Project, filter string) ProjectView {
	techStack := p.TechStack
	if techStack == nil {
		techStack = []string{}
	}
	return ProjectView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		TechStack:   techStack,
		Starred:     pc.starred[p.ID],
		Joined:      pc.joined[p.ID],
		Filter:      filter,
		Metadata: MetadataView{
			Commits:          p.Metadata.Commits,
			Contributors:     p.Metadata.Contributors,
			OpenIssues:       p.Metadata.OpenIssues,
			TimeSavedMinutes: p.Metadata.TimeSavedMinutes,
		},
		SetupTimeEstimateMinutes: p.SetupTime(),
		GitHubURL:                p.GitHubURL,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
	}
}

func (pc projectContext) views(projects []model.Project, filter string) []ProjectView {
	out := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, pc.view(p, filter))
	}
	return out
}

// UserView is the dashboard's user card.
type UserView struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	AvatarURL       *string        `json:"avatarUrl"`
	XP              int            `json:"xp"`
	Level           int            `json:"level"`
	Role            string         `json:"role"`
	GitHubConnected bool           `json:"githubConnected"`
	XPProgress      XPProgressView `json:"xpProgress"`
}

type XPProgressView struct {
	LevelMin    int     `json:"levelMin"`
	LevelMax    int     `json:"levelMax"`
	Percent     float64 `json:"percent"`
	ToNextLevel int     `json:"toNextLevel"`
}

func newUserView(u *model.User) UserView {
	lo, hi := stats.LevelBand(u.Level)
	v := UserView{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		XP:              u.XP,
		Level:           u.Level,
		Role:            u.Role,
		GitHubConnected: u.GitHubConnected,
		XPProgress: XPProgressView{
			LevelMin:    lo,
			LevelMax:    hi,
			Percent:     stats.LevelProgress(u.XP, u.Level),
			ToNextLevel: stats.XPToNextLevel(u.XP),
		},
	}
	if u.AvatarURL != "" {
		v.AvatarURL = &u.AvatarURL
	}
	return v
}

type StatsView struct {
	NewProjects      int `json:"newProjects"`
	JoinedProjects   int `json:"joinedProjects"`
	Commits          int `json:"commits"`
	PullRequests     int `json:"pullRequests"`
	IssuesClosed     int `json:"issuesClosed"`
	LinesOfCode      int `json:"linesOfCode"`
	TimeSavedMinutes int `json:"timeSavedMinutes"`
}

type ProjectsView struct {
	Owned       []ProjectView `json:"owned"`
	Contributed []ProjectView `json:"contributed"`
	Starred     []ProjectView `json:"starred"`
}

type AdditionalMetricsView struct {
	TotalContributions int `json:"totalContributions"`
	ActiveProjects     int `json:"activeProjects"`
	Streak             int `json:"streak"`
	// Always null until pull request merge times are tracked.
	AveragePRMergeTime *float64 `json:"averagePRMergeTime"`
}

// Dashboard is the GET /api/dashboard response.
type Dashboard struct {
	User              UserView              `json:"user"`
	Stats             StatsView             `json:"stats"`
	TimeBreakdown     stats.TimeBreakdown   `json:"timeBreakdown"`
	Projects          ProjectsView          `json:"projects"`
	AdditionalMetrics AdditionalMetricsView `json:"additionalMetrics"`
}
