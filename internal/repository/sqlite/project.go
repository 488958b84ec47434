package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/model"
)

const projectColumns = `id, owner_id, name, description, tech_stack,
	github_repo_id, github_full_name, github_url,
	commits, contributors, open_issues, time_saved_minutes,
	joined_members, setup_time_estimate_minutes, created_at, updated_at`

// CreateProject inserts a project. ID and timestamps are set on the
// caller's struct.
//
// IDs are xids: 20 URL-safe characters that sort by creation time.
func (db *DB) CreateProject(ctx context.Context, project *model.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}

	project.ID = xid.New().String()
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	techStack, err := marshalList(project.TechStack)
	if err != nil {
		return err
	}
	members, err := marshalList(project.JoinedMembers)
	if err != nil {
		return err
	}

	var estimate sql.NullInt64
	if project.SetupTimeEstimateMinutes != nil {
		estimate = sql.NullInt64{Int64: int64(*project.SetupTimeEstimateMinutes), Valid: true}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.OwnerID,
		project.Name,
		project.Description,
		techStack,
		project.GitHubRepoID,
		project.GitHubFullName,
		project.GitHubURL,
		project.Metadata.Commits,
		project.Metadata.Contributors,
		project.Metadata.OpenIssues,
		project.Metadata.TimeSavedMinutes,
		members,
		estimate,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating project: %w", err)
	}
	return nil
}

// GetProject returns apperror.ErrNotFound for an unknown id.
func (db *DB) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("project", id)
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}
	return project, nil
}

// ListProjectsByOwner returns the owner's projects, newest first.
func (db *DB) ListProjectsByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	return db.queryProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID)
}

// ListProjectsByIDs returns the projects that exist among ids, newest first.
// Unknown ids are skipped.
func (db *DB) ListProjectsByIDs(ctx context.Context, ids []string) ([]model.Project, error) {
	if len(ids) == 0 {
		return []model.Project{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return db.queryProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id IN (`+placeholders(len(ids))+`) ORDER BY created_at DESC`,
		args...)
}

// AddJoinedMember appends userID to joined_members and fills in the default
// setup estimate, in one transaction.
func (db *DB) AddJoinedMember(ctx context.Context, projectID, userID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT joined_members FROM projects WHERE id = ?`, projectID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("project", projectID)
		}
		return fmt.Errorf("sqlite: reading members of %s: %w", projectID, err)
	}

	members, err := unmarshalList(raw)
	if err != nil {
		return err
	}
	present := false
	for _, m := range members {
		if m == userID {
			present = true
			break
		}
	}
	if !present {
		members = append(members, userID)
	}
	encoded, err := marshalList(members)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE projects
		 SET joined_members = ?,
		     setup_time_estimate_minutes = COALESCE(setup_time_estimate_minutes, ?),
		     updated_at = ?
		 WHERE id = ?`,
		encoded, model.DefaultSetupTimeMinutes, time.Now().UTC(), projectID)
	if err != nil {
		return fmt.Errorf("sqlite: adding member to %s: %w", projectID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing member add: %w", err)
	}
	return nil
}

// queryProjects reads every row before returning so the connection is free
// again for the caller's next query.
func (db *DB) queryProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating projects: %w", err)
	}
	return projects, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	var (
		p         model.Project
		techStack string
		members   string
		estimate  sql.NullInt64
	)
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Description,
		&techStack,
		&p.GitHubRepoID,
		&p.GitHubFullName,
		&p.GitHubURL,
		&p.Metadata.Commits,
		&p.Metadata.Contributors,
		&p.Metadata.OpenIssues,
		&p.Metadata.TimeSavedMinutes,
		&members,
		&estimate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.TechStack, err = unmarshalList(techStack); err != nil {
		return nil, err
	}
	if p.JoinedMembers, err = unmarshalList(members); err != nil {
		return nil, err
	}
	if estimate.Valid {
		p.SetupTimeEstimateMinutes = model.IntPtr(int(estimate.Int64))
	}
	return &p, nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding list: %w", err)
	}
	return string(b), nil
}

func unmarshalList(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("sqlite: decoding list: %w", err)
	}
	return list, nil
}
