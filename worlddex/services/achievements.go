package services

import (
	"fmt"

	"github.com/worlddex/worlddex/worlddex/database/models"
)

// Achievement is a one-time milestone flag derived from cumulative stats.
type Achievement struct {
	ID          string
	Title       string
	Description string
}

// Milestone tables are fixed; callers cannot reconfigure them.
var (
	discoveryMilestones = []int64{1, 5, 10, 25, 50, 100}
	questMilestones     = []int64{1, 5, 10, 25}
)

const (
	categoryDiversityThreshold = 3
	streakThreshold            = 7

	achievementMultiCategory = "multi_category"
	achievementWeekStreak    = "week_streak"
)

// EvaluateAchievements returns the achievements earned by the given stats
// snapshot that have not been granted yet. It never mutates stats, so
// re-evaluating unchanged stats after the caller records the grants yields
// nothing new.
func EvaluateAchievements(stats *models.Stats) []Achievement {
	var earned []Achievement

	for _, milestone := range discoveryMilestones {
		id := fmt.Sprintf("discover_%d", milestone)
		if stats.ObjectsDiscovered >= milestone && !stats.HasAchievement(id) {
			earned = append(earned, mustAchievement(id))
		}
	}

	if int64(len(stats.CategoriesExplored)) >= categoryDiversityThreshold &&
		!stats.HasAchievement(achievementMultiCategory) {
		earned = append(earned, mustAchievement(achievementMultiCategory))
	}

	for _, milestone := range questMilestones {
		id := fmt.Sprintf("quest_%d", milestone)
		if stats.QuestsCompleted >= milestone && !stats.HasAchievement(id) {
			earned = append(earned, mustAchievement(id))
		}
	}

	if stats.DiscoveryStreak >= streakThreshold && !stats.HasAchievement(achievementWeekStreak) {
		earned = append(earned, mustAchievement(achievementWeekStreak))
	}

	return earned
}

// AllAchievements lists every achievement the engine can grant.
func AllAchievements() []Achievement {
	out := make([]Achievement, len(achievementCatalog))
	copy(out, achievementCatalog)
	return out
}

// AchievementByID resolves an achievement id to its display entry.
func AchievementByID(id string) (Achievement, bool) {
	for _, a := range achievementCatalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

func mustAchievement(id string) Achievement {
	a, ok := AchievementByID(id)
	if !ok {
		// The catalog covers every id the milestone tables can produce.
		return Achievement{ID: id, Title: id}
	}
	return a
}

var achievementCatalog = []Achievement{
	{ID: "discover_1", Title: "First Discovery", Description: "Discovered your first object"},
	{ID: "discover_5", Title: "Explorer 5", Description: "Discovered 5 objects"},
	{ID: "discover_10", Title: "Explorer 10", Description: "Discovered 10 objects"},
	{ID: "discover_25", Title: "Explorer 25", Description: "Discovered 25 objects"},
	{ID: "discover_50", Title: "Explorer 50", Description: "Discovered 50 objects"},
	{ID: "discover_100", Title: "Explorer 100", Description: "Discovered 100 objects"},
	{ID: achievementMultiCategory, Title: "Diverse Explorer", Description: "Explored 3+ different categories"},
	{ID: "quest_1", Title: "First Quest", Description: "Completed your first quest"},
	{ID: "quest_5", Title: "Questmaster 5", Description: "Completed 5 quests"},
	{ID: "quest_10", Title: "Questmaster 10", Description: "Completed 10 quests"},
	{ID: "quest_25", Title: "Questmaster 25", Description: "Completed 25 quests"},
	{ID: achievementWeekStreak, Title: "Consistent Explorer", Description: "Discovered objects on 7 different days"},
}
