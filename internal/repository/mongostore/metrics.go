package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/openforge/openforge-api/internal/model"
)

type repoMetricDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	UserID       string        `bson:"user_id"`
	RepoName     string        `bson:"repo_name"`
	Status       string        `bson:"status"`
	ErrorType    string        `bson:"error_type,omitempty"`
	ErrorMessage string        `bson:"error_message,omitempty"`
	TokenSource  string        `bson:"token_source,omitempty"`
	DurationMS   int64         `bson:"duration_ms"`
	CreatedAt    time.Time     `bson:"created_at"`
}

func (s *Store) RecordRepoCreation(ctx context.Context, m *model.RepoCreationMetric) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	doc := repoMetricDoc{
		ID:           bson.NewObjectID(),
		UserID:       m.UserID,
		RepoName:     m.RepoName,
		Status:       m.Status,
		ErrorType:    m.ErrorType,
		ErrorMessage: m.ErrorMessage,
		TokenSource:  m.TokenSource,
		DurationMS:   m.DurationMS,
		CreatedAt:    m.CreatedAt,
	}
	if _, err := s.repoMetrics.InsertOne(ctx, doc); err != nil {
		return translate("recording repo creation", err)
	}
	m.ID = doc.ID.Hex()
	return nil
}
