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

type membershipDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	ProjectID string        `bson:"project_id"`
	UserID    string        `bson:"user_id"`
	Role      string        `bson:"role"`
	JoinedAt  time.Time     `bson:"joined_at"`
}

func (d *membershipDoc) toModel() model.ProjectMembership {
	return model.ProjectMembership{
		ID:        d.ID.Hex(),
		ProjectID: d.ProjectID,
		UserID:    d.UserID,
		Role:      d.Role,
		JoinedAt:  d.JoinedAt,
	}
}

func (s *Store) CreateMembership(ctx context.Context, m *model.ProjectMembership) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	doc := membershipDoc{
		ID:        bson.NewObjectID(),
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Role:      m.Role,
		JoinedAt:  m.JoinedAt,
	}
	if _, err := s.memberships.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("membership", m.ProjectID)
		}
		return translate("creating membership", err)
	}
	m.ID = doc.ID.Hex()
	return nil
}

func (s *Store) GetMembership(ctx context.Context, projectID, userID string) (*model.ProjectMembership, error) {
	var doc membershipDoc
	err := s.memberships.FindOne(ctx, bson.D{
		{Key: "project_id", Value: projectID},
		{Key: "user_id", Value: userID},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("membership", projectID)
		}
		return nil, translate("getting membership", err)
	}
	m := doc.toModel()
	return &m, nil
}

func (s *Store) ListMembershipsByUser(ctx context.Context, userID string) ([]model.ProjectMembership, error) {
	cursor, err := s.memberships.Find(ctx,
		bson.D{{Key: "user_id", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, translate("listing memberships", err)
	}
	var docs []membershipDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, translate("decoding memberships", err)
	}

	out := make([]model.ProjectMembership, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}
