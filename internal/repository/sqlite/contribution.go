package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/stats"
)

func (db *DB) CreateContribution(ctx context.Context, c *model.Contribution) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.XPAwarded == 0 {
		c.XPAwarded = stats.XPForContribution(c.Type)
	}

	c.ID = xid.New().String()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO contributions
		 (id, user_id, project_id, type, title, description, lines_added, lines_removed, xp_awarded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.ProjectID, string(c.Type), c.Title, c.Description,
		c.LinesAdded, c.LinesRemoved, c.XPAwarded, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating contribution: %w", err)
	}
	return nil
}

func (db *DB) ListContributionsByUser(ctx context.Context, userID string) ([]model.Contribution, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, project_id, type, title, description, lines_added, lines_removed, xp_awarded, created_at
		 FROM contributions WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing contributions: %w", err)
	}
	defer rows.Close()

	contributions := []model.Contribution{}
	for rows.Next() {
		var (
			c     model.Contribution
			ctype string
		)
		err := rows.Scan(&c.ID, &c.UserID, &c.ProjectID, &ctype, &c.Title, &c.Description,
			&c.LinesAdded, &c.LinesRemoved, &c.XPAwarded, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning contribution: %w", err)
		}
		c.Type = model.ContributionType(ctype)
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
