package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/clerk"
	"github.com/openforge/openforge-api/internal/model"
)

// seedProject stores a project and returns it with its new id.
func seedProject(t *testing.T, store interface {
	CreateProject(context.Context, *model.Project) error
}, owner, name string, created time.Time, estimate *int) *model.Project {
	t.Helper()
	p := &model.Project{OwnerID: owner, Name: name, CreatedAt: created, SetupTimeEstimateMinutes: estimate}
	if err := store.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject(%s) error = %v", name, err)
	}
	return p
}

func seedContribution(t *testing.T, store interface {
	CreateContribution(context.Context, *model.Contribution) error
}, user, project string, typ model.ContributionType, added, removed, xp int) {
	t.Helper()
	c := &model.Contribution{UserID: user, ProjectID: project, Type: typ, LinesAdded: added, LinesRemoved: removed, XPAwarded: xp}
	if err := store.CreateContribution(context.Background(), c); err != nil {
		t.Fatalf("CreateContribution() error = %v", err)
	}
}

// =========================================================================
// FIRST VISIT
// =========================================================================

func TestDashboard_FirstVisitCreatesUser(t *testing.T) {
	store := newTestStore(t)
	cl := &fakeClerk{profiles: map[string]*clerk.User{
		"user_1": {ID: "user_1", Name: "Ada Lovelace", Email: "ada@example.com", AvatarURL: "https://img/ada.png"},
	}}
	svc := NewDashboardService(store, cl, testLogger())
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	d, err := svc.Get(context.Background(), "user_1", now)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if d.User.Name != "Ada Lovelace" || d.User.Email != "ada@example.com" {
		t.Errorf("user = %+v, want Clerk profile", d.User)
	}
	if d.User.AvatarURL == nil || *d.User.AvatarURL != "https://img/ada.png" {
		t.Errorf("AvatarURL = %v", d.User.AvatarURL)
	}
	if d.User.Level != 1 || d.User.XP != 0 || d.User.Role != model.RoleUser {
		t.Errorf("new user xp/level/role = %d/%d/%s", d.User.XP, d.User.Level, d.User.Role)
	}
	if d.AdditionalMetrics.Streak != 1 {
		t.Errorf("Streak = %d, want 1", d.AdditionalMetrics.Streak)
	}
	if d.AdditionalMetrics.AveragePRMergeTime != nil {
		t.Error("AveragePRMergeTime should be null")
	}
	if d.Projects.Owned == nil || d.Projects.Contributed == nil || d.Projects.Starred == nil {
		t.Error("project lists must be empty slices, not nil")
	}

	stored, err := store.GetUser(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if stored.LastVisitDate == nil || !stored.LastVisitDate.Equal(now) {
		t.Errorf("LastVisitDate = %v, want %v", stored.LastVisitDate, now)
	}
}

func TestDashboard_ClerkFailureKeepsDefaults(t *testing.T) {
	store := newTestStore(t)
	svc := NewDashboardService(store, &fakeClerk{err: errors.New("clerk down")}, testLogger())

	d, err := svc.Get(context.Background(), "user_1", time.Now())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.User.Name != "User" {
		t.Errorf("Name = %q, want default %q", d.User.Name, "User")
	}
	if d.User.AvatarURL != nil {
		t.Errorf("AvatarURL = %v, want nil", *d.User.AvatarURL)
	}
}

// =========================================================================
// STREAK
// =========================================================================

func TestDashboard_Streak(t *testing.T) {
	store := newTestStore(t)
	svc := NewDashboardService(store, nil, testLogger())
	ctx := context.Background()
	day := time.Date(2026, 5, 10, 22, 0, 0, 0, time.UTC)

	visits := []struct {
		at   time.Time
		want int
	}{
		{day, 1},
		{day.Add(time.Hour), 1},          // same day
		{day.Add(3 * time.Hour), 2},      // next calendar day
		{day.Add(27 * time.Hour), 3},     // the day after
		{day.Add(4 * 24 * time.Hour), 1}, // gap resets
	}

	for i, v := range visits {
		d, err := svc.Get(ctx, "user_1", v.at)
		if err != nil {
			t.Fatalf("visit %d: Get() error = %v", i, err)
		}
		if d.AdditionalMetrics.Streak != v.want {
			t.Errorf("visit %d at %s: streak = %d, want %d", i, v.at, d.AdditionalMetrics.Streak, v.want)
		}
	}
}

// =========================================================================
// STATS
// =========================================================================

func TestDashboard_Stats(t *testing.T) {
	store := newTestStore(t)
	svc := NewDashboardService(store, nil, testLogger())
	ctx := context.Background()
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	// Owned: one this month, one last month.
	seedProject(t, store, "me", "fresh", now.AddDate(0, 0, -5), nil)
	seedProject(t, store, "me", "old", now.AddDate(0, -1, 0), nil)

	// Joined: one without an estimate (counts 7), one with 20.
	noEstimate := seedProject(t, store, "other", "joined-a", now.AddDate(0, -2, 0), nil)
	withEstimate := seedProject(t, store, "other", "joined-b", now.AddDate(0, -2, 0), model.IntPtr(20))
	notJoined := seedProject(t, store, "other", "elsewhere", now.AddDate(0, -2, 0), nil)

	projects := NewProjectService(store, &fakeClerk{}, newFakeGitHub(), testLogger())
	for _, p := range []*model.Project{noEstimate, withEstimate} {
		if _, err := projects.Join(ctx, p.ID, "me"); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
	}
	if _, err := store.ToggleStar(ctx, notJoined.ID, "me"); err != nil {
		t.Fatalf("ToggleStar() error = %v", err)
	}

	seedContribution(t, store, "me", noEstimate.ID, model.ContributionCommit, 100, 20, 10)
	seedContribution(t, store, "me", withEstimate.ID, model.ContributionPullRequest, 50, 10, 50)
	seedContribution(t, store, "me", withEstimate.ID, model.ContributionIssue, 0, 0, 25)
	// Not a joined project: ignored by the counts, still earns XP.
	seedContribution(t, store, "me", notJoined.ID, model.ContributionCommit, 500, 0, 1000)

	d, err := svc.Get(ctx, "me", now)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	s := d.Stats
	if s.NewProjects != 1 {
		t.Errorf("NewProjects = %d, want 1", s.NewProjects)
	}
	if s.JoinedProjects != 2 {
		t.Errorf("JoinedProjects = %d, want 2", s.JoinedProjects)
	}
	if s.Commits != 1 || s.PullRequests != 1 || s.IssuesClosed != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", s.Commits, s.PullRequests, s.IssuesClosed)
	}
	if s.LinesOfCode != 120 {
		t.Errorf("LinesOfCode = %d, want 120", s.LinesOfCode)
	}
	if s.TimeSavedMinutes != 27 {
		t.Errorf("TimeSavedMinutes = %d, want 27", s.TimeSavedMinutes)
	}

	// 10 + 50 + 25 + 1000 = 1085 -> level 2.
	if d.User.XP != 1085 || d.User.Level != 2 {
		t.Errorf("xp/level = %d/%d, want 1085/2", d.User.XP, d.User.Level)
	}
	if d.User.XPProgress.LevelMin != 1000 || d.User.XPProgress.LevelMax != 2500 {
		t.Errorf("XPProgress band = %+v", d.User.XPProgress)
	}
	stored, _ := store.GetUser(ctx, "me")
	if stored.XP != 1085 || stored.Level != 2 {
		t.Errorf("stored xp/level = %d/%d, want 1085/2", stored.XP, stored.Level)
	}

	if d.AdditionalMetrics.TotalContributions != 4 {
		t.Errorf("TotalContributions = %d, want 4", d.AdditionalMetrics.TotalContributions)
	}
	if d.AdditionalMetrics.ActiveProjects != 4 {
		t.Errorf("ActiveProjects = %d, want 4", d.AdditionalMetrics.ActiveProjects)
	}
	if d.TimeBreakdown.ContributingToOSS != 2 || d.TimeBreakdown.WorkingOnOwnProjects != 4 {
		t.Errorf("TimeBreakdown = %+v", d.TimeBreakdown)
	}

	if len(d.Projects.Owned) != 2 || len(d.Projects.Contributed) != 2 || len(d.Projects.Starred) != 1 {
		t.Fatalf("projects = %d/%d/%d, want 2/2/1",
			len(d.Projects.Owned), len(d.Projects.Contributed), len(d.Projects.Starred))
	}
	if !d.Projects.Starred[0].Starred || d.Projects.Starred[0].Joined {
		t.Errorf("starred project view = %+v", d.Projects.Starred[0])
	}
	for _, p := range d.Projects.Contributed {
		if !p.Joined {
			t.Errorf("contributed project %s not marked joined", p.Name)
		}
	}
}

// =========================================================================
// FAILURES
// =========================================================================

func TestDashboard_StoreFailureIsUnavailable(t *testing.T) {
	svc := NewDashboardService(brokenStore{newTestStore(t)}, nil, testLogger())

	_, err := svc.Get(context.Background(), "user_1", time.Now())
	if !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("Get() error = %v, want ErrUnavailable", err)
	}
	if !errors.Is(err, errConnectionLost) {
		t.Error("cause should be kept for logging")
	}
}
