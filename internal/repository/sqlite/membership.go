package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/model"
)

// CreateMembership inserts a membership. The UNIQUE(project_id, user_id)
// constraint turns a second join into apperror.ErrConflict.
func (db *DB) CreateMembership(ctx context.Context, m *model.ProjectMembership) error {
	if err := m.Validate(); err != nil {
		return err
	}

	m.ID = xid.New().String()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO project_memberships (id, project_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.UserID, m.Role, m.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("membership", m.ProjectID)
		}
		return fmt.Errorf("sqlite: creating membership: %w", err)
	}
	return nil
}

func (db *DB) GetMembership(ctx context.Context, projectID, userID string) (*model.ProjectMembership, error) {
	var m model.ProjectMembership
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, project_id, user_id, role, joined_at
		 FROM project_memberships WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("membership", projectID)
		}
		return nil, fmt.Errorf("sqlite: getting membership: %w", err)
	}
	return &m, nil
}

func (db *DB) ListMembershipsByUser(ctx context.Context, userID string) ([]model.ProjectMembership, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, project_id, user_id, role, joined_at
		 FROM project_memberships WHERE user_id = ? ORDER BY joined_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing memberships: %w", err)
	}
	defer rows.Close()

	memberships := []model.ProjectMembership{}
	for rows.Next() {
		var m model.ProjectMembership
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}
