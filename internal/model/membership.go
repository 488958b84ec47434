package model

import (
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
)

const (
	MemberRoleOwner       = "owner"
	MemberRoleContributor = "contributor"
)

// ProjectMembership links a user to a project.
// Invariant: for every membership the project's JoinedMembers contains UserID.
type ProjectMembership struct {
	ID        string
	ProjectID string
	UserID    string
	Role      string
	JoinedAt  time.Time
}

func (m *ProjectMembership) Validate() error {
	if m.ProjectID == "" {
		return apperror.ValidationFailed("project_id", "project id is required")
	}
	if m.UserID == "" {
		return apperror.ValidationFailed("user_id", "user id is required")
	}
	if m.Role != MemberRoleOwner && m.Role != MemberRoleContributor {
		return apperror.ValidationFailed("role", "membership role must be owner or contributor")
	}
	return nil
}

// ProjectStar records that a user starred a project.
type ProjectStar struct {
	ID        string
	ProjectID string
	UserID    string
	CreatedAt time.Time
}
