package stats

import "github.com/openforge/openforge-api/internal/model"

// ContributionCounts is the per-type tally shown on the dashboard.
type ContributionCounts struct {
	Commits      int
	PullRequests int
	Issues       int
	LinesOfCode  int
	Total        int
}

// CountJoinedContributions counts userID's contributions to the projects in
// joined. Contributions to any other project are ignored, including ones the
// user authored on projects they have not joined.
//
// LinesOfCode is the net (added - removed) over the counted contributions,
// floored at zero.
func CountJoinedContributions(userID string, contributions []model.Contribution, joined []model.Project) ContributionCounts {
	joinedIDs := make(map[string]struct{}, len(joined))
	for _, p := range joined {
		joinedIDs[p.ID] = struct{}{}
	}

	var counts ContributionCounts
	for _, c := range contributions {
		if c.UserID != userID {
			continue
		}
		if _, ok := joinedIDs[c.ProjectID]; !ok {
			continue
		}
		switch c.Type {
		case model.ContributionCommit:
			counts.Commits++
		case model.ContributionPullRequest:
			counts.PullRequests++
		case model.ContributionIssue:
			counts.Issues++
		default:
			continue
		}
		counts.Total++
		counts.LinesOfCode += c.LinesAdded - c.LinesRemoved
	}
	counts.LinesOfCode = max(counts.LinesOfCode, 0)
	return counts
}
