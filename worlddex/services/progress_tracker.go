package services

import (
	"context"
	"log/slog"

	"github.com/worlddex/worlddex/worlddex/database/models"
)

// Notifier announces quest completions and achievements to an outside
// channel. Implementations must not block the engine for long.
type Notifier interface {
	QuestCompleted(ctx context.Context, quest *models.Quest)
	AchievementUnlocked(ctx context.Context, achievement Achievement)
}

// ProgressTracker routes discovery events to the quest pool and the stats
// aggregate. It is the only writer of quest progress.
type ProgressTracker struct {
	store    *QuestStore
	stats    *StatsService
	notifier Notifier
}

func NewProgressTracker(store *QuestStore, stats *StatsService, notifier Notifier) *ProgressTracker {
	return &ProgressTracker{
		store:    store,
		stats:    stats,
		notifier: notifier,
	}
}

// OnDiscovery applies one discovery event: advance matching active quests,
// complete and reward the ones that reach their target, backfill the pool,
// then record the event in the stats aggregate.
func (t *ProgressTracker) OnDiscovery(ctx context.Context, objectName, categoryID string) {
	completed := t.store.UpdateActive(ctx, func(q *models.Quest) bool {
		return advanceQuest(q, objectName, categoryID)
	})

	var earned []Achievement
	for _, quest := range completed {
		slog.Info("Quest completed",
			slog.String("type", "eng"),
			slog.String("quest_id", quest.QuestID),
			slog.String("title", quest.Title),
			slog.Int("reward", quest.RewardPoints))

		earned = append(earned, t.stats.RecordQuestCompletion(ctx, quest.RewardPoints)...)
		if t.notifier != nil {
			t.notifier.QuestCompleted(ctx, quest)
		}
	}

	if len(completed) > 0 {
		// Self-heal the active pool right after completions.
		t.store.Maintain(ctx)
	}

	earned = append(earned, t.stats.RecordDiscovery(ctx, objectName, categoryID)...)
	if t.notifier != nil {
		for _, a := range earned {
			t.notifier.AchievementUnlocked(ctx, a)
		}
	}
}

// advanceQuest applies the type-specific progress rule for one event and
// reports whether the quest changed. A quest matching no rule is untouched.
func advanceQuest(q *models.Quest, objectName, categoryID string) bool {
	switch q.Type {
	case models.QuestTypeDiscovery:
		if q.TargetCategory != categoryID {
			return false
		}
		q.Progress = capProgress(q.Progress+1, q.TargetCount)
		return true

	case models.QuestTypeCollection:
		// Progress counts matching events, not distinct objects: rediscovering
		// the same item before completion advances the quest again.
		if q.TargetCategory != categoryID || !q.HasTargetItem(objectName) {
			return false
		}
		q.Progress = capProgress(q.Progress+1, q.TargetCount)
		return true

	case models.QuestTypeExplorer:
		if !q.HasTargetItem(categoryID) {
			return false
		}
		return q.MarkCategoryDiscovered(categoryID)

	case models.QuestTypeKnowledge:
		if !q.HasTargetItem(objectName) {
			return false
		}
		q.Progress = 1
		return true

	default:
		return false
	}
}

func capProgress(progress, target int) int {
	if progress > target {
		return target
	}
	return progress
}
