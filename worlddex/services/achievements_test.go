package services

import (
	"testing"

	"github.com/worlddex/worlddex/worlddex/database/models"
)

func TestEvaluateAchievements(t *testing.T) {
	tests := []struct {
		name    string
		stats   func() *models.Stats
		wantIDs []string
	}{
		{
			name:    "fresh stats earn nothing",
			stats:   models.NewStats,
			wantIDs: nil,
		},
		{
			name: "first discovery",
			stats: func() *models.Stats {
				s := models.NewStats()
				s.ObjectsDiscovered = 1
				return s
			},
			wantIDs: []string{"discover_1"},
		},
		{
			name: "crossing several milestones at once",
			stats: func() *models.Stats {
				s := models.NewStats()
				s.ObjectsDiscovered = 12
				return s
			},
			wantIDs: []string{"discover_1", "discover_5", "discover_10"},
		},
		{
			name: "already granted milestones are skipped",
			stats: func() *models.Stats {
				s := models.NewStats()
				s.ObjectsDiscovered = 12
				s.Achievements = []string{"discover_1", "discover_5"}
				return s
			},
			wantIDs: []string{"discover_10"},
		},
		{
			name: "category diversity",
			stats: func() *models.Stats {
				s := models.NewStats()
				s.CategoriesExplored = []string{"birds", "trees", "rocks"}
				return s
			},
			wantIDs: []string{"multi_category"},
		},
		{
			name: "two categories not enough",
			stats: func() *models.Stats {
				s := models.NewStats()
				s.CategoriesExplored = []string{"birds", "trees"}
				return s
			},
			wantIDs: nil,
		},
		{
			name: "quest milestones",
			stats: func() *models.Stats {
				s := models.NewStats()
				s.QuestsCompleted = 5
				return s
			},
			wantIDs: []string{"quest_1", "quest_5"},
		},
		{
			name: "week streak",
			stats: func() *models.Stats {
				s := models.NewStats()
				s.DiscoveryStreak = 7
				return s
			},
			wantIDs: []string{"week_streak"},
		},
		{
			name: "six day streak not enough",
			stats: func() *models.Stats {
				s := models.NewStats()
				s.DiscoveryStreak = 6
				return s
			},
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := tt.stats()
			earned := EvaluateAchievements(stats)

			var got []string
			for _, a := range earned {
				got = append(got, a.ID)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("earned = %v, want %v", got, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i] != id {
					t.Errorf("earned[%d] = %s, want %s", i, got[i], id)
				}
			}
		})
	}
}

func TestEvaluateAchievementsDoesNotMutate(t *testing.T) {
	stats := models.NewStats()
	stats.ObjectsDiscovered = 5

	EvaluateAchievements(stats)
	if len(stats.Achievements) != 0 {
		t.Errorf("evaluation mutated stats: %v", stats.Achievements)
	}

	// Re-evaluating after the caller records the grants yields nothing new.
	for _, a := range EvaluateAchievements(stats) {
		stats.Achievements = append(stats.Achievements, a.ID)
	}
	if again := EvaluateAchievements(stats); len(again) != 0 {
		t.Errorf("second evaluation earned %v, want none", again)
	}
}

func TestAchievementCatalogCoversMilestones(t *testing.T) {
	// Every id the milestone tables can produce must resolve to a display
	// entry, otherwise users see raw ids.
	stats := models.NewStats()
	stats.ObjectsDiscovered = 1000
	stats.QuestsCompleted = 1000
	stats.DiscoveryStreak = 1000
	stats.CategoriesExplored = []string{"a", "b", "c", "d"}

	for _, a := range EvaluateAchievements(stats) {
		if _, ok := AchievementByID(a.ID); !ok {
			t.Errorf("achievement %s has no catalog entry", a.ID)
		}
		if a.Title == "" || a.Description == "" {
			t.Errorf("achievement %s missing display text", a.ID)
		}
	}
}
