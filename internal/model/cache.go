package model

import "time"

// CacheEntry is a cached GitHub API response, stored as raw JSON.
type CacheEntry struct {
	Key       string
	Data      []byte
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Fresh reports whether the entry can still be served at now.
func (e *CacheEntry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
