package model

import (
	"strings"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
)

// DefaultSetupTimeMinutes is used for any project without an estimate.
const DefaultSetupTimeMinutes = 7

// Project is a starter project owned by one user and joinable by others.
type Project struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	TechStack   []string

	GitHubRepoID   int64
	GitHubFullName string
	GitHubURL      string

	Metadata      ProjectMetadata
	JoinedMembers []string

	// nil means the author never set one.
	SetupTimeEstimateMinutes *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectMetadata holds counters synced from GitHub.
type ProjectMetadata struct {
	Commits          int
	Contributors     int
	OpenIssues       int
	TimeSavedMinutes int
}

// SetupTime returns the estimate or DefaultSetupTimeMinutes.
func (p *Project) SetupTime() int {
	if p.SetupTimeEstimateMinutes == nil {
		return DefaultSetupTimeMinutes
	}
	return *p.SetupTimeEstimateMinutes
}

// HasMember reports whether userID is listed in JoinedMembers.
func (p *Project) HasMember(userID string) bool {
	for _, m := range p.JoinedMembers {
		if m == userID {
			return true
		}
	}
	return false
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.ValidationFailed("name", "project name is required")
	}
	if len(p.Name) > 100 {
		return apperror.ValidationFailed("name", "project name must be at most 100 characters")
	}
	if p.OwnerID == "" {
		return apperror.ValidationFailed("owner_id", "project owner is required")
	}
	if p.SetupTimeEstimateMinutes != nil && *p.SetupTimeEstimateMinutes < 0 {
		return apperror.ValidationFailed("setup_time_estimate_minutes", "setup time estimate cannot be negative")
	}
	return nil
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int {
	return &v
}
