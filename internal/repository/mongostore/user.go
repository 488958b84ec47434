package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/model"
)

type userDoc struct {
	ID              bson.ObjectID `bson:"_id,omitempty"`
	ClerkUserID     string        `bson:"clerk_user_id"`
	Name            string        `bson:"name"`
	Email           string        `bson:"email"`
	AvatarURL       string        `bson:"avatar_url"`
	Role            string        `bson:"role"`
	XP              int           `bson:"xp"`
	Level           int           `bson:"level"`
	GitHubConnected bool          `bson:"github_connected"`
	GitHubUserID    any           `bson:"github_user_id"`
	GitHubUsername  string        `bson:"github_username"`
	LastVisitDate   any           `bson:"last_visit_date"`
	CurrentStreak   int           `bson:"current_streak"`
	CreatedAt       time.Time     `bson:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at"`
}

func (d *userDoc) toModel() *model.User {
	u := &model.User{
		ID:              d.ClerkUserID,
		Name:            d.Name,
		Email:           d.Email,
		AvatarURL:       d.AvatarURL,
		Role:            d.Role,
		XP:              d.XP,
		Level:           d.Level,
		GitHubConnected: d.GitHubConnected,
		GitHubUserID:    asInt64(d.GitHubUserID),
		GitHubUsername:  d.GitHubUsername,
		CurrentStreak:   d.CurrentStreak,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.Level < 1 {
		u.Level = 1
	}
	if t, ok := asTime(d.LastVisitDate); ok {
		u.LastVisitDate = &t
	}
	return u
}

func userFromModel(u *model.User) *userDoc {
	d := &userDoc{
		ID:              bson.NewObjectID(),
		ClerkUserID:     u.ID,
		Name:            u.Name,
		Email:           u.Email,
		AvatarURL:       u.AvatarURL,
		Role:            u.Role,
		XP:              u.XP,
		Level:           u.Level,
		GitHubConnected: u.GitHubConnected,
		GitHubUsername:  u.GitHubUsername,
		CurrentStreak:   u.CurrentStreak,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if u.GitHubUserID != 0 {
		d.GitHubUserID = u.GitHubUserID
	}
	if u.LastVisitDate != nil {
		d.LastVisitDate = u.LastVisitDate.UTC()
	}
	return d
}

func (s *Store) GetUser(ctx context.Context, clerkID string) (*model.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "clerk_user_id", Value: clerkID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", clerkID)
		}
		return nil, translate("getting user", err)
	}
	return doc.toModel(), nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if _, err := s.users.InsertOne(ctx, userFromModel(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("user", user.ID)
		}
		return translate("creating user", err)
	}
	return nil
}

func (s *Store) UpdateVisit(ctx context.Context, clerkID string, visitedAt time.Time, streak int) error {
	return s.setUserFields(ctx, clerkID, bson.D{
		{Key: "last_visit_date", Value: visitedAt.UTC()},
		{Key: "current_streak", Value: streak},
	})
}

func (s *Store) UpdateXP(ctx context.Context, clerkID string, xp, level int) error {
	return s.setUserFields(ctx, clerkID, bson.D{
		{Key: "xp", Value: xp},
		{Key: "level", Value: level},
	})
}

func (s *Store) UpdateGitHubConnection(ctx context.Context, clerkID string, conn model.GitHubConnection) error {
	return s.setUserFields(ctx, clerkID, bson.D{
		{Key: "github_connected", Value: conn.Connected},
		{Key: "github_user_id", Value: conn.UserID},
		{Key: "github_username", Value: conn.Username},
	})
}

func (s *Store) setUserFields(ctx context.Context, clerkID string, fields bson.D) error {
	fields = append(fields, bson.E{Key: "updated_at", Value: time.Now().UTC()})
	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "clerk_user_id", Value: clerkID}},
		bson.D{{Key: "$set", Value: fields}},
	)
	if err != nil {
		return translate("updating user", err)
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("user", clerkID)
	}
	return nil
}
