package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/model"
)

const userColumns = `id, name, email, avatar_url, role, xp, level,
	github_connected, github_user_id, github_username,
	last_visit_date, current_streak, created_at, updated_at`

// GetUser looks a user up by Clerk id.
// Returns apperror.ErrNotFound if there is no such user.
func (db *DB) GetUser(ctx context.Context, clerkID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, clerkID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", clerkID)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", clerkID, err)
	}
	return user, nil
}

// CreateUser inserts a new user. A second insert for the same Clerk id is a
// conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.AvatarURL,
		user.Role,
		user.XP,
		user.Level,
		user.GitHubConnected,
		user.GitHubUserID,
		user.GitHubUsername,
		formatVisit(user.LastVisitDate),
		user.CurrentStreak,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.ID)
		}
		return fmt.Errorf("sqlite: creating user %s: %w", user.ID, err)
	}
	return nil
}

func (db *DB) UpdateVisit(ctx context.Context, clerkID string, visitedAt time.Time, streak int) error {
	return db.updateUser(ctx, clerkID,
		`UPDATE users SET last_visit_date = ?, current_streak = ?, updated_at = ? WHERE id = ?`,
		visitedAt.UTC().Format(time.RFC3339Nano), streak, time.Now().UTC(), clerkID)
}

func (db *DB) UpdateXP(ctx context.Context, clerkID string, xp, level int) error {
	return db.updateUser(ctx, clerkID,
		`UPDATE users SET xp = ?, level = ?, updated_at = ? WHERE id = ?`,
		xp, level, time.Now().UTC(), clerkID)
}

func (db *DB) UpdateGitHubConnection(ctx context.Context, clerkID string, conn model.GitHubConnection) error {
	return db.updateUser(ctx, clerkID,
		`UPDATE users SET github_connected = ?, github_user_id = ?, github_username = ?, updated_at = ?
		 WHERE id = ?`,
		conn.Connected, conn.UserID, conn.Username, time.Now().UTC(), clerkID)
}

// updateUser runs a single-row UPDATE and maps "no row touched" to NotFound.
func (db *DB) updateUser(ctx context.Context, clerkID, query string, args ...any) error {
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", clerkID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", clerkID)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		lastVisit sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.AvatarURL,
		&u.Role,
		&u.XP,
		&u.Level,
		&u.GitHubConnected,
		&u.GitHubUserID,
		&u.GitHubUsername,
		&lastVisit,
		&u.CurrentStreak,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Unparsable values read as "never visited".
	if lastVisit.Valid {
		if t, ok := model.ParseVisitDate(lastVisit.String); ok {
			u.LastVisitDate = &t
		}
	}
	return &u, nil
}

func formatVisit(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
