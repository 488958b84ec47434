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

// GetCache returns apperror.ErrNotFound when the key is missing or expired.
// Expired rows are left for SetCache to overwrite.
func (db *DB) GetCache(ctx context.Context, key string, now time.Time) (*model.CacheEntry, error) {
	var (
		entry model.CacheEntry
		data  string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT cache_key, data, expires_at, created_at FROM github_cache WHERE cache_key = ?`, key,
	).Scan(&entry.Key, &data, &entry.ExpiresAt, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("cache entry", key)
		}
		return nil, fmt.Errorf("sqlite: reading cache %s: %w", key, err)
	}

	entry.Data = []byte(data)
	if !entry.Fresh(now) {
		return nil, apperror.NotFound("cache entry", key)
	}
	return &entry, nil
}

// SetCache inserts or replaces the entry for entry.Key.
func (db *DB) SetCache(ctx context.Context, entry *model.CacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO github_cache (cache_key, data, expires_at, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		     data = excluded.data,
		     expires_at = excluded.expires_at,
		     created_at = excluded.created_at`,
		entry.Key, string(entry.Data), entry.ExpiresAt.UTC(), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing cache %s: %w", entry.Key, err)
	}
	return nil
}
