package stats

import (
	"time"

	"github.com/openforge/openforge-api/internal/model"
)

// ProjectsCreatedThisMonth keeps projects created in now's UTC calendar month:
// from the first instant of the month up to, not including, the next month.
func ProjectsCreatedThisMonth(projects []model.Project, now time.Time) []model.Project {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		created := p.CreatedAt.UTC()
		if !created.Before(start) && created.Before(end) {
			out = append(out, p)
		}
	}
	return out
}

// TimeSavedMinutes sums the setup estimate of each joined project; projects
// without one count as model.DefaultSetupTimeMinutes.
func TimeSavedMinutes(joined []model.Project) int {
	total := 0
	for i := range joined {
		total += joined[i].SetupTime()
	}
	return total
}

// TimeBreakdown is an estimate of hours spent, shown on the dashboard chart.
// There is no time tracking yet, so it is derived from activity counts:
// half an hour per contribution and two hours per owned project.
type TimeBreakdown struct {
	ContributingToOSS    float64 `json:"contributingToOSS"`
	WorkingOnOwnProjects float64 `json:"workingOnOwnProjects"`
}

func EstimateTimeBreakdown(contributions, ownedProjects int) TimeBreakdown {
	return TimeBreakdown{
		ContributingToOSS:    float64(contributions) * 0.5,
		WorkingOnOwnProjects: float64(ownedProjects) * 2.0,
	}
}

// ActiveProjects is the number of distinct owned or joined projects.
// Like TimeBreakdown it stands in for a real activity measure.
func ActiveProjects(owned, joined []model.Project) int {
	seen := make(map[string]struct{}, len(owned)+len(joined))
	for _, p := range owned {
		seen[p.ID] = struct{}{}
	}
	for _, p := range joined {
		seen[p.ID] = struct{}{}
	}
	return len(seen)
}
