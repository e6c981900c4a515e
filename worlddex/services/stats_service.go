package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/worlddex/worlddex/worlddex/catalog"
	"github.com/worlddex/worlddex/worlddex/database/models"
	"github.com/worlddex/worlddex/worlddex/database/repositories"
)

const dateLayout = "2006-01-02"

// StatsService owns the per-user cumulative statistics aggregate and grants
// achievements on every mutation.
type StatsService struct {
	mu    sync.Mutex
	repo  repositories.StatsRepository
	stats *models.Stats
}

func NewStatsService(repo repositories.StatsRepository) *StatsService {
	return &StatsService{
		repo:  repo,
		stats: models.NewStats(),
	}
}

// Load restores persisted stats, keeping a fresh aggregate when none exist.
func (s *StatsService) Load(ctx context.Context) error {
	stats, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if stats == nil {
		return nil
	}

	if stats.CategoriesExplored == nil {
		stats.CategoriesExplored = []string{}
	}
	if stats.CategoryProgress == nil {
		stats.CategoryProgress = map[string]*models.CategoryProgress{}
	}
	if stats.Achievements == nil {
		stats.Achievements = []string{}
	}

	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return nil
}

// RecordDiscovery folds one discovery event into the aggregate and returns
// any achievements it unlocked.
func (s *StatsService) RecordDiscovery(ctx context.Context, objectName, categoryID string) []Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.stats.ObjectsDiscovered++

	if !s.stats.HasExploredCategory(categoryID) {
		s.stats.CategoriesExplored = append(s.stats.CategoriesExplored, categoryID)
	}

	progress, ok := s.stats.CategoryProgress[categoryID]
	if !ok {
		progress = &models.CategoryProgress{
			Discovered:     []string{},
			FirstDiscovery: now,
		}
		s.stats.CategoryProgress[categoryID] = progress
	}
	if !containsString(progress.Discovered, objectName) {
		progress.Discovered = append(progress.Discovered, objectName)
	}

	if s.stats.FirstDiscoveryDate == nil {
		s.stats.FirstDiscoveryDate = &now
	}

	// Distinct-day streak: increments whenever the calendar date changed
	// since the last discovery, and never resets after a gap.
	today := now.Format(dateLayout)
	if s.stats.LastDiscoveryDate != today {
		s.stats.DiscoveryStreak++
		s.stats.LastDiscoveryDate = today
	}

	earned := s.grantAchievementsLocked()
	s.persistLocked(ctx)
	return earned
}

// RecordQuestCompletion folds a quest completion into the aggregate. The
// tracker calls this once per completed quest; the count is never re-derived
// from the quest list.
func (s *StatsService) RecordQuestCompletion(ctx context.Context, points int) []Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.QuestsCompleted++
	s.stats.TotalQuestPoints += int64(points)

	earned := s.grantAchievementsLocked()
	s.persistLocked(ctx)
	return earned
}

// Snapshot returns a deep copy of the stats aggregate.
func (s *StatsService) Snapshot() *models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Clone()
}

// SummaryStats is the condensed view used by display surfaces.
type SummaryStats struct {
	ObjectsDiscovered  int64 `json:"objects_discovered"`
	CategoriesExplored int   `json:"categories_explored"`
	TotalQuestPoints   int64 `json:"total_quest_points"`
	QuestsCompleted    int64 `json:"quests_completed"`
	AchievementsEarned int   `json:"achievements_earned"`
	DiscoveryStreak    int64 `json:"discovery_streak"`
	TotalAchievements  int   `json:"total_achievements"`
}

func (s *StatsService) Summary() SummaryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SummaryStats{
		ObjectsDiscovered:  s.stats.ObjectsDiscovered,
		CategoriesExplored: len(s.stats.CategoriesExplored),
		TotalQuestPoints:   s.stats.TotalQuestPoints,
		QuestsCompleted:    s.stats.QuestsCompleted,
		AchievementsEarned: len(s.stats.Achievements),
		DiscoveryStreak:    s.stats.DiscoveryStreak,
		TotalAchievements:  len(AllAchievements()),
	}
}

// CategoryCompletion describes discovery coverage for one category.
type CategoryCompletion struct {
	Name       string  `json:"name"`
	Discovered int     `json:"discovered"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// CategoryCompletionReport computes per-category coverage against the
// current catalog.
func (s *StatsService) CategoryCompletionReport(categories []catalog.Category, objects []catalog.Object) map[string]CategoryCompletion {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := make(map[string]CategoryCompletion, len(categories))
	for _, c := range categories {
		total := len(catalog.ObjectsInCategory(objects, c.ID))
		discovered := 0
		if progress, ok := s.stats.CategoryProgress[c.ID]; ok {
			discovered = len(progress.Discovered)
		}

		entry := CategoryCompletion{
			Name:       c.Name,
			Discovered: discovered,
			Total:      total,
		}
		if total > 0 {
			entry.Percentage = float64(discovered) / float64(total) * 100
		}
		report[c.ID] = entry
	}
	return report
}

// RecentAchievements returns the most recently granted achievements, newest
// last, up to limit.
func (s *StatsService) RecentAchievements(limit int) []Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.stats.Achievements
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}

	out := make([]Achievement, 0, len(ids))
	for _, id := range ids {
		if a, ok := AchievementByID(id); ok {
			out = append(out, a)
		}
	}
	return out
}

// Reset wipes the aggregate back to a fresh state.
func (s *StatsService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats = models.NewStats()
	s.persistLocked(ctx)
}

func (s *StatsService) grantAchievementsLocked() []Achievement {
	earned := EvaluateAchievements(s.stats)
	for _, a := range earned {
		s.stats.Achievements = append(s.stats.Achievements, a.ID)
		slog.Info("Achievement unlocked",
			slog.String("type", "eng"),
			slog.String("achievement", a.ID),
			slog.String("title", a.Title))
	}
	return earned
}

// persistLocked writes the aggregate back, keeping the in-memory state on
// failure so the next mutation retries the write.
func (s *StatsService) persistLocked(ctx context.Context) {
	if err := s.repo.Save(ctx, s.stats); err != nil {
		slog.Error("Failed to persist stats",
			slog.String("type", "db"),
			slog.Any("error", err))
	}
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
