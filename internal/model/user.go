// Package model defines the domain types shared by the store, service and
// handler layers.
//
// These structs are the internal representation. Stores decode their own
// document/row shapes and convert into them, and handlers build response
// views from them, so neither the database layout nor the JSON surface leaks
// into the other.
package model

import (
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an OpenForge account keyed by its Clerk user id.
//
// LastVisitDate is nil until the first dashboard visit.
type User struct {
	ID        string // Clerk user id, e.g. "user_2abc..."
	Name      string
	Email     string
	AvatarURL string
	Role      string
	XP        int
	Level     int

	GitHubConnected bool
	GitHubUserID    int64
	GitHubUsername  string

	LastVisitDate *time.Time
	CurrentStreak int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDefaultUser is the record created the first time an unknown Clerk user
// opens the dashboard.
func NewDefaultUser(clerkID string, now time.Time) *User {
	return &User{
		ID:        clerkID,
		Name:      "User",
		Role:      RoleUser,
		XP:        0,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (u *User) Validate() error {
	if u.ID == "" {
		return apperror.ValidationFailed("clerk_user_id", "user id is required")
	}
	if u.Role != RoleUser && u.Role != RoleAdmin {
		return apperror.ValidationFailed("role", "role must be user or admin")
	}
	if u.XP < 0 {
		return apperror.ValidationFailed("xp", "xp cannot be negative")
	}
	if u.Level < 1 {
		return apperror.ValidationFailed("level", "level must be at least 1")
	}
	if u.CurrentStreak < 0 {
		return apperror.ValidationFailed("current_streak", "streak cannot be negative")
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// GitHubConnection is the subset of User written by connect-github.
type GitHubConnection struct {
	Connected bool
	UserID    int64
	Username  string
}
