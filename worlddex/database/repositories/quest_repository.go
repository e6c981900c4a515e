package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/worlddex/worlddex/worlddex/database/models"
)

// QuestRepository persists the quest collection and the user's reward
// progress as whole aggregates. The engine mutates in memory and writes the
// full state back after every mutating operation, so implementations only
// need load/replace semantics.
type QuestRepository interface {
	LoadQuests(ctx context.Context) ([]*models.Quest, error)
	SaveQuests(ctx context.Context, quests []*models.Quest) error
	LoadUserProgress(ctx context.Context) (*models.UserProgress, error)
	SaveUserProgress(ctx context.Context, progress *models.UserProgress) error
}

type questRepository struct {
	db *bun.DB
}

func NewQuestRepository(db *bun.DB) QuestRepository {
	return &questRepository{db: db}
}

func (r *questRepository) LoadQuests(ctx context.Context) ([]*models.Quest, error) {
	var quests []*models.Quest
	err := r.db.NewSelect().
		Model(&quests).
		Order("created_at ASC", "quest_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return quests, nil
}

func (r *questRepository) SaveQuests(ctx context.Context, quests []*models.Quest) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Quest)(nil)).
			Where("TRUE").
			Exec(ctx); err != nil {
			return err
		}
		if len(quests) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&quests).Exec(ctx)
		return err
	})
}

func (r *questRepository) LoadUserProgress(ctx context.Context) (*models.UserProgress, error) {
	progress := new(models.UserProgress)
	err := r.db.NewSelect().
		Model(progress).
		Where("id = ?", 1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return progress, nil
}

func (r *questRepository) SaveUserProgress(ctx context.Context, progress *models.UserProgress) error {
	progress.ID = 1
	progress.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(progress).
		On("CONFLICT (id) DO UPDATE").
		Set("total_points = EXCLUDED.total_points").
		Set("completed_quest_ids = EXCLUDED.completed_quest_ids").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
