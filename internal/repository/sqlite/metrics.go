package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/openforge/openforge-api/internal/model"
)

func (db *DB) RecordRepoCreation(ctx context.Context, m *model.RepoCreationMetric) error {
	m.ID = xid.New().String()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO repo_creation_metrics
		 (id, user_id, repo_name, status, error_type, error_message, token_source, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.RepoName, m.Status, m.ErrorType, m.ErrorMessage, m.TokenSource, m.DurationMS, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording repo creation: %w", err)
	}
	return nil
}
