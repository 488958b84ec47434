package model

import (
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
)

type ContributionType string

const (
	ContributionCommit      ContributionType = "commit"
	ContributionPullRequest ContributionType = "pull_request"
	ContributionIssue       ContributionType = "issue"
)

// Contribution is one unit of work a user did on a project. Records are
// written by the GitHub sync job; the API only reads them.
type Contribution struct {
	ID           string
	UserID       string
	ProjectID    string
	Type         ContributionType
	Title        string
	Description  string
	LinesAdded   int
	LinesRemoved int
	XPAwarded    int
	CreatedAt    time.Time
}

func (c *Contribution) Validate() error {
	if c.UserID == "" {
		return apperror.ValidationFailed("user_id", "user id is required")
	}
	if c.ProjectID == "" {
		return apperror.ValidationFailed("project_id", "project id is required")
	}
	switch c.Type {
	case ContributionCommit, ContributionPullRequest, ContributionIssue:
	default:
		return apperror.ValidationFailed("type", "contribution type must be commit, pull_request or issue")
	}
	if c.LinesAdded < 0 || c.LinesRemoved < 0 {
		return apperror.ValidationFailed("lines", "line counts cannot be negative")
	}
	return nil
}
