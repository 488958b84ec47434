package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openforge/openforge-api/internal/apperror"
	"github.com/openforge/openforge-api/internal/model"
	"github.com/openforge/openforge-api/internal/repository"
	"github.com/openforge/openforge-api/internal/stats"
)

// DashboardService assembles the dashboard from the store.
//
// Loading the dashboard is also what records a visit: the streak is advanced
// and written back before anything else is read.
type DashboardService struct {
	store  repository.Store
	clerk  ClerkAPI
	logger *slog.Logger
}

// NewDashboardService creates a DashboardService. clerk may be nil, in which
// case new users start with the default profile.
func NewDashboardService(store repository.Store, clerk ClerkAPI, logger *slog.Logger) *DashboardService {
	return &DashboardService{store: store, clerk: clerk, logger: logger}
}

// Get builds userID's dashboard as of now.
func (s *DashboardService) Get(ctx context.Context, userID string, now time.Time) (*Dashboard, error) {
	now = now.UTC()

	user, err := s.loadOrCreateUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	streak := stats.NextStreak(user.LastVisitDate, user.CurrentStreak, now)
	if err := s.store.UpdateVisit(ctx, user.ID, now, streak); err != nil {
		return nil, storeError(err)
	}
	user.LastVisitDate = &now
	user.CurrentStreak = streak

	up, err := loadUserProjects(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	contributions, err := s.store.ListContributionsByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	counts := stats.CountJoinedContributions(userID, contributions, up.joined)

	if err := s.syncXP(ctx, user, contributions); err != nil {
		return nil, err
	}

	return &Dashboard{
		User: newUserView(user),
		Stats: StatsView{
			NewProjects:      len(stats.ProjectsCreatedThisMonth(up.owned, now)),
			JoinedProjects:   len(up.joined),
			Commits:          counts.Commits,
			PullRequests:     counts.PullRequests,
			IssuesClosed:     counts.Issues,
			LinesOfCode:      counts.LinesOfCode,
			TimeSavedMinutes: stats.TimeSavedMinutes(up.joined),
		},
		TimeBreakdown: stats.EstimateTimeBreakdown(len(contributions), len(up.owned)),
		Projects: ProjectsView{
			Owned:       up.ctx.views(up.owned, ""),
			Contributed: up.ctx.views(up.joined, ""),
			Starred:     up.ctx.views(up.starred, ""),
		},
		AdditionalMetrics: AdditionalMetricsView{
			TotalContributions: len(contributions),
			ActiveProjects:     stats.ActiveProjects(up.owned, up.joined),
			Streak:             streak,
		},
	}, nil
}

// loadOrCreateUser returns the stored user, creating the default record on
// first visit. The profile is filled from Clerk when it answers.
func (s *DashboardService) loadOrCreateUser(ctx context.Context, userID string, now time.Time) (*model.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, storeError(err)
	}

	user = model.NewDefaultUser(userID, now)
	if s.clerk != nil {
		profile, err := s.clerk.GetUser(ctx, userID)
		switch {
		case err != nil:
			s.logger.Warn("fetching clerk profile for new user",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		case profile != nil:
			if profile.Name != "" {
				user.Name = profile.Name
			}
			user.Email = profile.Email
			user.AvatarURL = profile.AvatarURL
		}
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		// Two first visits raced; the other request created the record.
		if errors.Is(err, apperror.ErrConflict) {
			existing, getErr := s.store.GetUser(ctx, userID)
			return existing, storeError(getErr)
		}
		return nil, storeError(err)
	}

	s.logger.Info("created user", slog.String("user_id", userID))
	return user, nil
}

// syncXP stores the XP earned from contributions when it drifted from the
// user record.
func (s *DashboardService) syncXP(ctx context.Context, user *model.User, contributions []model.Contribution) error {
	total := stats.TotalXP(contributions)
	if total == user.XP {
		return nil
	}

	level := stats.LevelForXP(total)
	if err := s.store.UpdateXP(ctx, user.ID, total, level); err != nil {
		return storeError(err)
	}
	user.XP = total
	user.Level = level
	return nil
}
