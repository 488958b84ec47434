package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/stats"
)

type contributionDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	UserID       string        `bson:"user_id"`
	ProjectID    string        `bson:"project_id"`
	Type         string        `bson:"type"`
	Title        string        `bson:"title"`
	Description  string        `bson:"description"`
	LinesAdded   int           `bson:"lines_added"`
	LinesRemoved int           `bson:"lines_removed"`
	XPAwarded    int           `bson:"xp_awarded"`
	CreatedAt    time.Time     `bson:"created_at"`
}

func (s *Store) CreateContribution(ctx context.Context, c *model.Contribution) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.XPAwarded == 0 {
		c.XPAwarded = stats.XPForContribution(c.Type)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	doc := contributionDoc{
		ID:           bson.NewObjectID(),
		UserID:       c.UserID,
		ProjectID:    c.ProjectID,
		Type:         string(c.Type),
		Title:        c.Title,
		Description:  c.Description,
		LinesAdded:   c.LinesAdded,
		LinesRemoved: c.LinesRemoved,
		XPAwarded:    c.XPAwarded,
		CreatedAt:    c.CreatedAt,
	}
	if _, err := s.contributions.InsertOne(ctx, doc); err != nil {
		return translate("creating contribution", err)
	}
	c.ID = doc.ID.Hex()
	return nil
}

func (s *Store) ListContributionsByUser(ctx context.Context, userID string) ([]model.Contribution, error) {
	cursor, err := s.contributions.Find(ctx,
		bson.D{{Key: "user_id", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate("listing contributions", err)
	}
	var docs []contributionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, translate("decoding contributions", err)
	}

	out := make([]model.Contribution, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.Contribution{
			ID:           d.ID.Hex(),
			UserID:       d.UserID,
			ProjectID:    d.ProjectID,
			Type:         model.ContributionType(d.Type),
			Title:        d.Title,
			Description:  d.Description,
			LinesAdded:   d.LinesAdded,
			LinesRemoved: d.LinesRemoved,
			XPAwarded:    d.XPAwarded,
			CreatedAt:    d.CreatedAt,
		})
	}
	return out, nil
}
