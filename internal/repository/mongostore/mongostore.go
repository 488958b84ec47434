// Package mongostore implements repository.Store on MongoDB.
//
// DOCUMENT SHAPES:
// Each collection has a private *Doc struct with bson tags. Documents are
// decoded into those structs and converted to model types here, so the
// services never see bson.ObjectID, field names, or the loose typing of
// documents written by older versions of the app (for example a
// last_visit_date stored as a string instead of a date).
//
// Project documents use ObjectID _ids; every other reference (owner_id,
// project_id, user_id) is a string: the project's hex id or the Clerk user id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/repository"
)

const (
	collUsers         = "users"
	collProjects      = "projects"
	collMemberships   = "project_memberships"
	collStars         = "project_stars"
	collContributions = "contributions"
	collCache         = "github_cache"
	collRepoMetrics   = "repo_creation_metrics"

	unavailableMessage = "Database is not available. Please try again later."
)

var _ repository.Store = (*Store)(nil)

// Store owns the client; Close disconnects it.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger

	users         *mongo.Collection
	projects      *mongo.Collection
	memberships   *mongo.Collection
	stars         *mongo.Collection
	contributions *mongo.Collection
	cache         *mongo.Collection
	repoMetrics   *mongo.Collection
}

// New connects to uri, verifies the connection with a ping, and makes sure
// the indexes exist. An unreachable server is reported as
// apperror.ErrUnavailable.
func New(ctx context.Context, uri, dbName string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetAppName("openforge-api").
		SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperror.Unavailable(unavailableMessage, fmt.Errorf("mongo: ping: %w", err))
	}

	s := newStore(client, dbName, logger)
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("connected to MongoDB", slog.String("database", dbName))
	return s, nil
}

func newStore(client *mongo.Client, dbName string, logger *slog.Logger) *Store {
	db := client.Database(dbName)
	return &Store{
		client:        client,
		db:            db,
		logger:        logger,
		users:         db.Collection(collUsers),
		projects:      db.Collection(collProjects),
		memberships:   db.Collection(collMemberships),
		stars:         db.Collection(collStars),
		contributions: db.Collection(collContributions),
		cache:         db.Collection(collCache),
		repoMetrics:   db.Collection(collRepoMetrics),
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d, Options: options.Index().SetUnique(true)}
	}
	plain := func(key string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: key, Value: 1}}}
	}

	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{unique("clerk_user_id")}},
		{s.projects, []mongo.IndexModel{plain("owner_id")}},
		{s.memberships, []mongo.IndexModel{unique("project_id", "user_id"), plain("user_id")}},
		{s.stars, []mongo.IndexModel{unique("project_id", "user_id"), plain("user_id")}},
		{s.contributions, []mongo.IndexModel{plain("user_id")}},
		{s.cache, []mongo.IndexModel{
			unique("cache_key"),
			// Expired entries are removed by MongoDB's TTL monitor.
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		}},
	}

	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateMany(ctx, ix.models); err != nil {
			return translate("creating indexes on "+ix.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return apperror.Unavailable(unavailableMessage, fmt.Errorf("mongo: ping: %w", err))
	}
	return nil
}

// Close disconnects the client, waiting at most ten seconds for in-flight
// operations.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// translate wraps a driver error with the operation name. Connectivity
// failures become apperror.ErrUnavailable so handlers answer 503.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("mongo: %s: %w", op, err)
	if isConnectivityError(err) {
		return apperror.Unavailable(unavailableMessage, wrapped)
	}
	return wrapped
}

func isConnectivityError(err error) bool {
	return mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		strings.Contains(err.Error(), "server selection")
}

// parseObjectID converts a project id from the URL. Malformed ids are a
// client error, not a missing project.
func parseObjectID(field, id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, apperror.ValidationFailed(field, "Invalid project ID")
	}
	return oid, nil
}

// asTime reads a value that older writers stored either as a BSON date or
// as a string. ok is false for nil and for anything unparsable.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case bson.DateTime:
		return t.Time().UTC(), true
	case time.Time:
		return t.UTC(), true
	case string:
		return model.ParseVisitDate(t)
	default:
		return time.Time{}, false
	}
}

// asInt64 reads a numeric id that may have been stored as a number or a
// decimal string.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
