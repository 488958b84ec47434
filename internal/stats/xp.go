package stats

import (
	"math"

	"github.com/openforge/openforge-api/internal/model"
)

var xpValues = map[model.ContributionType]int{
	model.ContributionCommit:      10,
	model.ContributionPullRequest: 50,
	model.ContributionIssue:       25,
}

// XPForContribution is the standard award for a contribution type, 0 for
// types that earn nothing.
func XPForContribution(t model.ContributionType) int {
	return xpValues[t]
}

const MaxLevel = 100

// fixedBands are the hand-picked bands for levels 1-5.
var fixedBands = [...][2]int{
	{0, 1000},
	{1000, 2500},
	{2500, 5000},
	{5000, 10000},
	{10000, 20000},
}

// LevelBand returns the XP range [min, max) of level. Past level 5 each band
// ends at 1.5x the previous band's end. Levels below 1 are treated as 1.
func LevelBand(level int) (lo, hi int) {
	if level < 1 {
		level = 1
	}
	if level <= len(fixedBands) {
		b := fixedBands[level-1]
		return b[0], b[1]
	}

	hi = fixedBands[len(fixedBands)-1][1]
	for l := len(fixedBands) + 1; l <= level; l++ {
		lo = hi
		next := float64(hi) * 1.5
		if next >= math.MaxInt {
			return lo, math.MaxInt
		}
		hi = int(next)
	}
	return lo, hi
}

// LevelForXP returns the level whose band contains xp, capped at MaxLevel.
func LevelForXP(xp int) int {
	level := 1
	for level < MaxLevel {
		_, hi := LevelBand(level)
		if xp < hi {
			break
		}
		level++
	}
	return level
}

// LevelProgress is how far xp is through level's band, in percent, clamped to [0, 100].
func LevelProgress(xp, level int) float64 {
	lo, hi := LevelBand(level)
	if hi <= lo {
		return 100
	}
	pct := float64(xp-lo) / float64(hi-lo) * 100
	return min(max(pct, 0), 100)
}

// XPToNextLevel is the XP still needed to leave the level xp is in.
func XPToNextLevel(xp int) int {
	_, hi := LevelBand(LevelForXP(xp))
	return max(hi-xp, 0)
}

// TotalXP sums the XP awarded across contributions.
func TotalXP(contributions []model.Contribution) int {
	total := 0
	for _, c := range contributions {
		total += c.XPAwarded
	}
	return total
}
