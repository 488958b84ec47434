package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/model"
)

// newTestDB opens a fresh in-memory database with migrations applied.
// t.Cleanup closes it when the test (or subtest) finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestProject(t *testing.T, db *DB, ownerID, name string) *model.Project {
	t.Helper()
	p := &model.Project{OwnerID: ownerID, Name: name, TechStack: []string{"go", "react"}}
	if err := db.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// =========================================================================
// SETUP
// =========================================================================

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	// A second run against the same database must be a no-op.
	if err := db.migrate(); err != nil {
		t.Fatalf("migrate() second run error = %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestNew_FileDatabase(t *testing.T) {
	path := t.TempDir() + "/openforge-test.db"

	db, err := New(path)
	if err != nil {
		t.Fatalf("New(%q) error = %v", path, err)
	}
	createTestProject(t, db, "user_1", "persisted")
	db.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopening error = %v", err)
	}
	defer reopened.Close()

	projects, err := reopened.ListProjectsByOwner(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("ListProjectsByOwner() error = %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("got %d projects after reopen, want 1", len(projects))
	}
}

// =========================================================================
// USERS
// =========================================================================

func TestCreateAndGetUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := model.NewDefaultUser("user_abc", time.Now())
	user.Email = "dev@example.com"
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := db.GetUser(ctx, "user_abc")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Email != "dev@example.com" || got.Level != 1 || got.Role != model.RoleUser {
		t.Errorf("GetUser() = %+v", got)
	}
	if got.LastVisitDate != nil {
		t.Errorf("LastVisitDate = %v, want nil", got.LastVisitDate)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateUser(ctx, model.NewDefaultUser("user_dup", time.Now())); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	err := db.CreateUser(ctx, model.NewDefaultUser("user_dup", time.Now()))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestCreateUser_Invalid(t *testing.T) {
	db := newTestDB(t)
	err := db.CreateUser(context.Background(), &model.User{ID: "x", Role: "root", Level: 1})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("CreateUser() error = %v, want ErrValidation", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetUser(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUser() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateVisit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.CreateUser(ctx, model.NewDefaultUser("user_v", time.Now())); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	visited := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := db.UpdateVisit(ctx, "user_v", visited, 4); err != nil {
		t.Fatalf("UpdateVisit() error = %v", err)
	}

	got, err := db.GetUser(ctx, "user_v")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.LastVisitDate == nil || !got.LastVisitDate.Equal(visited) {
		t.Errorf("LastVisitDate = %v, want %v", got.LastVisitDate, visited)
	}
	if got.CurrentStreak != 4 {
		t.Errorf("CurrentStreak = %d, want 4", got.CurrentStreak)
	}
}

func TestUpdateVisit_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateVisit(context.Background(), "ghost", time.Now(), 1)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateVisit() error = %v, want ErrNotFound", err)
	}
}

func TestGetUser_LegacyVisitFormats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.CreateUser(ctx, model.NewDefaultUser("user_legacy", time.Now())); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	tests := []struct {
		stored  string
		wantNil bool
	}{
		{"2025-01-02", false},
		{"2025-01-02 03:04:05", false},
		{"not a date", true},
	}
	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			if _, err := db.conn.ExecContext(ctx, `UPDATE users SET last_visit_date = ? WHERE id = ?`, tt.stored, "user_legacy"); err != nil {
				t.Fatalf("seeding last_visit_date: %v", err)
			}
			got, err := db.GetUser(ctx, "user_legacy")
			if err != nil {
				t.Fatalf("GetUser() error = %v", err)
			}
			if (got.LastVisitDate == nil) != tt.wantNil {
				t.Errorf("LastVisitDate = %v, wantNil %v", got.LastVisitDate, tt.wantNil)
			}
		})
	}
}

func TestUpdateXPAndGitHubConnection(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.CreateUser(ctx, model.NewDefaultUser("user_x", time.Now())); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if err := db.UpdateXP(ctx, "user_x", 1200, 2); err != nil {
		t.Fatalf("UpdateXP() error = %v", err)
	}
	conn := model.GitHubConnection{Connected: true, UserID: 99, Username: "octocat"}
	if err := db.UpdateGitHubConnection(ctx, "user_x", conn); err != nil {
		t.Fatalf("UpdateGitHubConnection() error = %v", err)
	}

	got, err := db.GetUser(ctx, "user_x")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.XP != 1200 || got.Level != 2 {
		t.Errorf("XP/Level = %d/%d, want 1200/2", got.XP, got.Level)
	}
	if !got.GitHubConnected || got.GitHubUserID != 99 || got.GitHubUsername != "octocat" {
		t.Errorf("GitHub connection = %v/%d/%q", got.GitHubConnected, got.GitHubUserID, got.GitHubUsername)
	}
}

// =========================================================================
// PROJECTS
// =========================================================================

func TestCreateAndGetProject(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &model.Project{
		OwnerID:                  "user_1",
		Name:                     "starter",
		Description:              "a starter kit",
		TechStack:                []string{"python", "fastapi"},
		GitHubRepoID:             42,
		GitHubFullName:           "octo/starter",
		SetupTimeEstimateMinutes: model.IntPtr(12),
	}
	if err := db.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("CreateProject() did not set ID")
	}

	got, err := db.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Name != "starter" || got.GitHubFullName != "octo/starter" || got.GitHubRepoID != 42 {
		t.Errorf("GetProject() = %+v", got)
	}
	if len(got.TechStack) != 2 || got.TechStack[0] != "python" {
		t.Errorf("TechStack = %v", got.TechStack)
	}
	if got.SetupTimeEstimateMinutes == nil || *got.SetupTimeEstimateMinutes != 12 {
		t.Errorf("SetupTimeEstimateMinutes = %v, want 12", got.SetupTimeEstimateMinutes)
	}
	if len(got.JoinedMembers) != 0 {
		t.Errorf("JoinedMembers = %v, want empty", got.JoinedMembers)
	}
}

func TestCreateProject_KeepsMissingEstimateNil(t *testing.T) {
	db := newTestDB(t)
	p := createTestProject(t, db, "user_1", "no-estimate")

	got, err := db.GetProject(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.SetupTimeEstimateMinutes != nil {
		t.Errorf("SetupTimeEstimateMinutes = %v, want nil", *got.SetupTimeEstimateMinutes)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetProject(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProject() error = %v, want ErrNotFound", err)
	}
}

func TestListProjects(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := createTestProject(t, db, "owner_a", "one")
	b := createTestProject(t, db, "owner_a", "two")
	c := createTestProject(t, db, "owner_b", "three")

	owned, err := db.ListProjectsByOwner(ctx, "owner_a")
	if err != nil {
		t.Fatalf("ListProjectsByOwner() error = %v", err)
	}
	if len(owned) != 2 {
		t.Errorf("ListProjectsByOwner() returned %d, want 2", len(owned))
	}

	byID, err := db.ListProjectsByIDs(ctx, []string{a.ID, c.ID, "unknown"})
	if err != nil {
		t.Fatalf("ListProjectsByIDs() error = %v", err)
	}
	if len(byID) != 2 {
		t.Errorf("ListProjectsByIDs() returned %d, want 2", len(byID))
	}
	for _, p := range byID {
		if p.ID == b.ID {
			t.Errorf("ListProjectsByIDs() returned unrequested project %s", b.ID)
		}
	}

	empty, err := db.ListProjectsByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListProjectsByIDs(nil) = %v, %v", empty, err)
	}
}

func TestAddJoinedMember(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProject(t, db, "owner", "joinable")

	for i := 0; i < 2; i++ {
		if err := db.AddJoinedMember(ctx, p.ID, "user_j"); err != nil {
			t.Fatalf("AddJoinedMember() #%d error = %v", i+1, err)
		}
	}

	got, err := db.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if len(got.JoinedMembers) != 1 || got.JoinedMembers[0] != "user_j" {
		t.Errorf("JoinedMembers = %v, want [user_j]", got.JoinedMembers)
	}
	if got.SetupTimeEstimateMinutes == nil || *got.SetupTimeEstimateMinutes != model.DefaultSetupTimeMinutes {
		t.Errorf("SetupTimeEstimateMinutes = %v, want default", got.SetupTimeEstimateMinutes)
	}
}

func TestAddJoinedMember_KeepsExistingEstimate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := &model.Project{OwnerID: "o", Name: "estimated", SetupTimeEstimateMinutes: model.IntPtr(30)}
	if err := db.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if err := db.AddJoinedMember(ctx, p.ID, "u"); err != nil {
		t.Fatalf("AddJoinedMember() error = %v", err)
	}
	got, _ := db.GetProject(ctx, p.ID)
	if *got.SetupTimeEstimateMinutes != 30 {
		t.Errorf("SetupTimeEstimateMinutes = %d, want 30", *got.SetupTimeEstimateMinutes)
	}
}

func TestAddJoinedMember_UnknownProject(t *testing.T) {
	db := newTestDB(t)
	err := db.AddJoinedMember(context.Background(), "missing", "u")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AddJoinedMember() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// MEMBERSHIPS & STARS
// =========================================================================

func TestMemberships(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProject(t, db, "owner", "team")

	m := &model.ProjectMembership{ProjectID: p.ID, UserID: "u1", Role: model.MemberRoleContributor}
	if err := db.CreateMembership(ctx, m); err != nil {
		t.Fatalf("CreateMembership() error = %v", err)
	}

	dup := &model.ProjectMembership{ProjectID: p.ID, UserID: "u1", Role: model.MemberRoleContributor}
	if err := db.CreateMembership(ctx, dup); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate CreateMembership() error = %v, want ErrConflict", err)
	}

	got, err := db.GetMembership(ctx, p.ID, "u1")
	if err != nil {
		t.Fatalf("GetMembership() error = %v", err)
	}
	if got.Role != model.MemberRoleContributor {
		t.Errorf("Role = %q", got.Role)
	}

	if _, err := db.GetMembership(ctx, p.ID, "u2"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetMembership(u2) error = %v, want ErrNotFound", err)
	}

	list, err := db.ListMembershipsByUser(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Errorf("ListMembershipsByUser() = %v, %v", list, err)
	}
}

func TestToggleStar(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProject(t, db, "owner", "shiny")

	want := []bool{true, false, true}
	for i, w := range want {
		got, err := db.ToggleStar(ctx, p.ID, "fan")
		if err != nil {
			t.Fatalf("ToggleStar() #%d error = %v", i+1, err)
		}
		if got != w {
			t.Errorf("ToggleStar() #%d = %v, want %v", i+1, got, w)
		}
	}

	stars, err := db.ListStarsByUser(ctx, "fan")
	if err != nil {
		t.Fatalf("ListStarsByUser() error = %v", err)
	}
	if len(stars) != 1 || stars[0].ProjectID != p.ID {
		t.Errorf("ListStarsByUser() = %+v", stars)
	}
}

// =========================================================================
// CONTRIBUTIONS, CACHE, METRICS
// =========================================================================

func TestContributions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, typ := range []model.ContributionType{model.ContributionCommit, model.ContributionIssue} {
		c := &model.Contribution{UserID: "u", ProjectID: "p", Type: typ, LinesAdded: 5, XPAwarded: 10}
		if err := db.CreateContribution(ctx, c); err != nil {
			t.Fatalf("CreateContribution() error = %v", err)
		}
	}
	if err := db.CreateContribution(ctx, &model.Contribution{UserID: "u", ProjectID: "p", Type: "bogus"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("CreateContribution(bogus) error = %v, want ErrValidation", err)
	}

	list, err := db.ListContributionsByUser(ctx, "u")
	if err != nil {
		t.Fatalf("ListContributionsByUser() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("got %d contributions, want 2", len(list))
	}

	// Without an explicit award the type's standard XP is stored.
	pr := &model.Contribution{UserID: "v", ProjectID: "p", Type: model.ContributionPullRequest}
	if err := db.CreateContribution(ctx, pr); err != nil {
		t.Fatalf("CreateContribution(pr) error = %v", err)
	}
	stored, err := db.ListContributionsByUser(ctx, "v")
	if err != nil {
		t.Fatalf("ListContributionsByUser(v) error = %v", err)
	}
	if len(stored) != 1 || stored[0].XPAwarded != 50 {
		t.Errorf("stored = %+v, want one contribution worth 50 XP", stored)
	}
}

func TestCache(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if _, err := db.GetCache(ctx, "repo_list_", now); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetCache() on empty error = %v, want ErrNotFound", err)
	}

	entry := &model.CacheEntry{Key: "repo_list_", Data: []byte(`{"total_count":1}`), ExpiresAt: now.Add(time.Hour)}
	if err := db.SetCache(ctx, entry); err != nil {
		t.Fatalf("SetCache() error = %v", err)
	}

	got, err := db.GetCache(ctx, "repo_list_", now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("GetCache() error = %v", err)
	}
	if string(got.Data) != `{"total_count":1}` {
		t.Errorf("Data = %s", got.Data)
	}

	if _, err := db.GetCache(ctx, "repo_list_", now.Add(2*time.Hour)); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetCache() after expiry error = %v, want ErrNotFound", err)
	}

	// Overwrite refreshes the entry.
	entry.Data = []byte(`{"total_count":2}`)
	entry.ExpiresAt = now.Add(3 * time.Hour)
	if err := db.SetCache(ctx, entry); err != nil {
		t.Fatalf("SetCache() overwrite error = %v", err)
	}
	got, err = db.GetCache(ctx, "repo_list_", now.Add(2*time.Hour))
	if err != nil || string(got.Data) != `{"total_count":2}` {
		t.Errorf("GetCache() after overwrite = %v, %v", got, err)
	}
}

func TestRecordRepoCreation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	metrics := []*model.RepoCreationMetric{
		{UserID: "u", RepoName: "a", Status: model.RepoCreationSuccess, DurationMS: 120},
		{UserID: "u", RepoName: "b", Status: model.RepoCreationFailure, ErrorType: model.RepoErrorGitHubAPI},
	}
	for _, m := range metrics {
		if err := db.RecordRepoCreation(ctx, m); err != nil {
			t.Fatalf("RecordRepoCreation() error = %v", err)
		}
	}

	var failures int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM repo_creation_metrics WHERE status = ?`, model.RepoCreationFailure,
	).Scan(&failures); err != nil {
		t.Fatalf("counting metrics: %v", err)
	}
	if failures != 1 {
		t.Errorf("failure rows = %d, want 1", failures)
	}
}
