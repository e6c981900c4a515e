package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/worlddex/worlddex/worlddex/database/models"
)

// StatsRepository persists the single per-user statistics aggregate.
type StatsRepository interface {
	Load(ctx context.Context) (*models.Stats, error)
	Save(ctx context.Context, stats *models.Stats) error
}

type statsRepository struct {
	db *bun.DB
}

func NewStatsRepository(db *bun.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Load(ctx context.Context) (*models.Stats, error) {
	stats := new(models.Stats)
	err := r.db.NewSelect().
		Model(stats).
		Where("id = ?", 1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return stats, nil
}

func (r *statsRepository) Save(ctx context.Context, stats *models.Stats) error {
	stats.ID = 1
	stats.LastActivityDate = time.Now()

	_, err := r.db.NewInsert().
		Model(stats).
		On("CONFLICT (id) DO UPDATE").
		Set("objects_discovered = EXCLUDED.objects_discovered").
		Set("categories_explored = EXCLUDED.categories_explored").
		Set("category_progress = EXCLUDED.category_progress").
		Set("quests_completed = EXCLUDED.quests_completed").
		Set("total_quest_points = EXCLUDED.total_quest_points").
		Set("discovery_streak = EXCLUDED.discovery_streak").
		Set("last_discovery_date = EXCLUDED.last_discovery_date").
		Set("first_discovery_date = EXCLUDED.first_discovery_date").
		Set("last_activity_date = EXCLUDED.last_activity_date").
		Set("achievements = EXCLUDED.achievements").
		Exec(ctx)
	return err
}
