package model

import "time"

const (
	RepoCreationSuccess = "success"
	RepoCreationFailure = "failure"

	RepoErrorGitHubAPI  = "github_api"
	RepoErrorDatabase   = "database"
	RepoErrorValidation = "validation"
	RepoErrorAuth       = "auth"
)

// RepoCreationMetric is one create-github-repo attempt, kept for reporting.
type RepoCreationMetric struct {
	ID           string
	UserID       string
	RepoName     string
	Status       string
	ErrorType    string
	ErrorMessage string
	TokenSource  string
	DurationMS   int64
	CreatedAt    time.Time
}
