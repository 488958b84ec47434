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

type projectDoc struct {
	ID                       bson.ObjectID      `bson:"_id,omitempty"`
	Name                     string             `bson:"name"`
	Description              string             `bson:"description"`
	TechStack                []string           `bson:"tech_stack"`
	OwnerID                  string             `bson:"owner_id"`
	GitHubRepoID             any                `bson:"github_repo_id,omitempty"`
	GitHubFullName           string             `bson:"github_full_name,omitempty"`
	GitHubURL                string             `bson:"github_url,omitempty"`
	Metadata                 projectMetadataDoc `bson:"metadata"`
	JoinedMembers            []string           `bson:"joined_members"`
	SetupTimeEstimateMinutes *int               `bson:"setup_time_estimate_minutes"`
	CreatedAt                time.Time          `bson:"created_at"`
	UpdatedAt                time.Time          `bson:"updated_at"`
}

type projectMetadataDoc struct {
	Commits          int `bson:"commits"`
	Contributors     int `bson:"contributors"`
	OpenIssues       int `bson:"open_issues"`
	TimeSavedMinutes int `bson:"time_saved_minutes"`
}

func (d *projectDoc) toModel() model.Project {
	p := model.Project{
		ID:             d.ID.Hex(),
		OwnerID:        d.OwnerID,
		Name:           d.Name,
		Description:    d.Description,
		TechStack:      d.TechStack,
		GitHubRepoID:   asInt64(d.GitHubRepoID),
		GitHubFullName: d.GitHubFullName,
		GitHubURL:      d.GitHubURL,
		Metadata: model.ProjectMetadata{
			Commits:          d.Metadata.Commits,
			Contributors:     d.Metadata.Contributors,
			OpenIssues:       d.Metadata.OpenIssues,
			TimeSavedMinutes: d.Metadata.TimeSavedMinutes,
		},
		JoinedMembers:            d.JoinedMembers,
		SetupTimeEstimateMinutes: d.SetupTimeEstimateMinutes,
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
	}
	if p.TechStack == nil {
		p.TechStack = []string{}
	}
	if p.JoinedMembers == nil {
		p.JoinedMembers = []string{}
	}
	return p
}

func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	doc := projectDoc{
		ID:             bson.NewObjectID(),
		Name:           project.Name,
		Description:    project.Description,
		TechStack:      project.TechStack,
		OwnerID:        project.OwnerID,
		GitHubFullName: project.GitHubFullName,
		GitHubURL:      project.GitHubURL,
		Metadata: projectMetadataDoc{
			Commits:          project.Metadata.Commits,
			Contributors:     project.Metadata.Contributors,
			OpenIssues:       project.Metadata.OpenIssues,
			TimeSavedMinutes: project.Metadata.TimeSavedMinutes,
		},
		JoinedMembers:            project.JoinedMembers,
		SetupTimeEstimateMinutes: project.SetupTimeEstimateMinutes,
		CreatedAt:                project.CreatedAt,
		UpdatedAt:                project.UpdatedAt,
	}
	if doc.TechStack == nil {
		doc.TechStack = []string{}
	}
	if doc.JoinedMembers == nil {
		doc.JoinedMembers = []string{}
	}
	if project.GitHubRepoID != 0 {
		doc.GitHubRepoID = project.GitHubRepoID
	}

	if _, err := s.projects.InsertOne(ctx, doc); err != nil {
		return translate("creating project", err)
	}
	project.ID = doc.ID.Hex()
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	oid, err := parseObjectID("project_id", id)
	if err != nil {
		return nil, err
	}

	var doc projectDoc
	if err := s.projects.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("project", id)
		}
		return nil, translate("getting project", err)
	}
	p := doc.toModel()
	return &p, nil
}

func (s *Store) ListProjectsByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	return s.findProjects(ctx, bson.D{{Key: "owner_id", Value: ownerID}})
}

// ListProjectsByIDs skips ids that are not valid ObjectIDs; they cannot
// match any document.
func (s *Store) ListProjectsByIDs(ctx context.Context, ids []string) ([]model.Project, error) {
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []model.Project{}, nil
	}
	return s.findProjects(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}})
}

// AddJoinedMember uses $addToSet so concurrent joins by different users
// never lose each other's entry. The default estimate is only written
// where the field is null or missing.
func (s *Store) AddJoinedMember(ctx context.Context, projectID, userID string) error {
	oid, err := parseObjectID("project_id", projectID)
	if err != nil {
		return err
	}

	result, err := s.projects.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{
			{Key: "$addToSet", Value: bson.D{{Key: "joined_members", Value: userID}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
		},
	)
	if err != nil {
		return translate("adding project member", err)
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("project", projectID)
	}

	_, err = s.projects.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "setup_time_estimate_minutes", Value: nil}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "setup_time_estimate_minutes", Value: model.DefaultSetupTimeMinutes}}}},
	)
	return translate("setting default setup estimate", err)
}

func (s *Store) findProjects(ctx context.Context, filter bson.D) ([]model.Project, error) {
	cursor, err := s.projects.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate("listing projects", err)
	}
	var docs []projectDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, translate("decoding projects", err)
	}

	projects := make([]model.Project, 0, len(docs))
	for i := range docs {
		projects = append(projects, docs[i].toModel())
	}
	return projects, nil
}
