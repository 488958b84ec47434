package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/model"
)

type cacheDoc struct {
	Key       string    `bson:"cache_key"`
	Data      string    `bson:"data"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// GetCache filters on expires_at as well: the TTL monitor only runs once a
// minute, so expired documents can still be present.
func (s *Store) GetCache(ctx context.Context, key string, now time.Time) (*model.CacheEntry, error) {
	var doc cacheDoc
	err := s.cache.FindOne(ctx, bson.D{
		{Key: "cache_key", Value: key},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now.UTC()}}},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("cache entry", key)
		}
		return nil, translate("reading cache", err)
	}
	return &model.CacheEntry{
		Key:       doc.Key,
		Data:      []byte(doc.Data),
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *Store) SetCache(ctx context.Context, entry *model.CacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.cache.UpdateOne(ctx,
		bson.D{{Key: "cache_key", Value: entry.Key}},
		bson.D{{Key: "$set", Value: cacheDoc{
			Key:       entry.Key,
			Data:      string(entry.Data),
			ExpiresAt: entry.ExpiresAt.UTC(),
			CreatedAt: entry.CreatedAt,
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	return translate("writing cache", err)
}
