package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/openforge/openforge-api/internal/model"
)

type starDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	ProjectID string        `bson:"project_id"`
	UserID    string        `bson:"user_id"`
	CreatedAt time.Time     `bson:"created_at"`
}

// ToggleStar deletes the star if one exists, otherwise inserts it. Two
// concurrent stars by the same user collide on the unique index; the loser
// reports the project as starred, which is the state the store ends up in.
func (s *Store) ToggleStar(ctx context.Context, projectID, userID string) (bool, error) {
	filter := bson.D{{Key: "project_id", Value: projectID}, {Key: "user_id", Value: userID}}

	deleted, err := s.stars.DeleteOne(ctx, filter)
	if err != nil {
		return false, translate("removing star", err)
	}
	if deleted.DeletedCount > 0 {
		return false, nil
	}

	_, err = s.stars.InsertOne(ctx, starDoc{
		ID:        bson.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return false, translate("adding star", err)
	}
	return true, nil
}

func (s *Store) ListStarsByUser(ctx context.Context, userID string) ([]model.ProjectStar, error) {
	cursor, err := s.stars.Find(ctx,
		bson.D{{Key: "user_id", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate("listing stars", err)
	}
	var docs []starDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, translate("decoding stars", err)
	}

	out := make([]model.ProjectStar, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.ProjectStar{
			ID:        d.ID.Hex(),
			ProjectID: d.ProjectID,
			UserID:    d.UserID,
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}
