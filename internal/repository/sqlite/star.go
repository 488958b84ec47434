package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/openforge/openforge-api/internal/model"
)

// ToggleStar flips the star inside a transaction: delete if present,
// insert otherwise.
func (db *DB) ToggleStar(ctx context.Context, projectID, userID string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM project_stars WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing star: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	starred := removed == 0
	if starred {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO project_stars (id, project_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
			xid.New().String(), projectID, userID, time.Now().UTC())
		if err != nil {
			return false, fmt.Errorf("sqlite: adding star: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing star toggle: %w", err)
	}
	return starred, nil
}

func (db *DB) ListStarsByUser(ctx context.Context, userID string) ([]model.ProjectStar, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, project_id, user_id, created_at
		 FROM project_stars WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing stars: %w", err)
	}
	defer rows.Close()

	stars := []model.ProjectStar{}
	for rows.Next() {
		var s model.ProjectStar
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.UserID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning star: %w", err)
		}
		stars = append(stars, s)
	}
	return stars, rows.Err()
}
