package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/worlddex/worlddex/worlddex/database/models"
	"github.com/worlddex/worlddex/worlddex/database/repositories"
)

const (
	// ActiveQuestTarget is the invariant pool size: the store keeps exactly
	// this many non-completed quests whenever the catalog can supply them.
	ActiveQuestTarget = 3

	// maxGenerationAttempts bounds backfill per maintenance pass so a
	// too-small catalog terminates instead of spinning.
	maxGenerationAttempts = 8
)

// QuestStore owns the full quest collection and the user's reward progress.
// All state lives in memory and is written back whole after every mutating
// operation; a failed write keeps the state and retries on the next one.
type QuestStore struct {
	mu       sync.Mutex
	repo     repositories.QuestRepository
	gen      *QuestGenerator
	quests   []*models.Quest
	progress *models.UserProgress
}

func NewQuestStore(repo repositories.QuestRepository, gen *QuestGenerator) *QuestStore {
	return &QuestStore{
		repo: repo,
		gen:  gen,
		progress: &models.UserProgress{
			ID:                1,
			CompletedQuestIDs: []string{},
		},
	}
}

// Load restores persisted state. Called once at startup, before Maintain.
func (s *QuestStore) Load(ctx context.Context) error {
	quests, err := s.repo.LoadQuests(ctx)
	if err != nil {
		return err
	}
	progress, err := s.repo.LoadUserProgress(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quests = quests
	if progress != nil {
		if progress.CompletedQuestIDs == nil {
			progress.CompletedQuestIDs = []string{}
		}
		s.progress = progress
	}
	return nil
}

// Maintain restores the store invariant: unique ids and ActiveQuestTarget
// active quests. Excess actives are retired oldest-first without reward;
// deficits are backfilled from the generator. A catalog too small to fill
// the pool leaves it short, which is acceptable.
func (s *QuestStore) Maintain(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dedupeLocked()
	s.retireExcessLocked()
	s.backfillLocked(ctx)
	s.persistLocked(ctx)
}

func (s *QuestStore) dedupeLocked() {
	seen := make(map[string]bool, len(s.quests))
	deduped := s.quests[:0]
	for _, q := range s.quests {
		if seen[q.QuestID] {
			continue
		}
		seen[q.QuestID] = true
		deduped = append(deduped, q)
	}
	if len(deduped) < len(s.quests) {
		slog.Info("Removed duplicate quests",
			slog.String("type", "eng"),
			slog.Int("removed", len(s.quests)-len(deduped)))
	}
	s.quests = deduped
}

func (s *QuestStore) retireExcessLocked() {
	active := s.activeLocked()
	excess := len(active) - ActiveQuestTarget
	if excess <= 0 {
		return
	}

	sortByCreation(active)
	now := time.Now()
	for _, q := range active[:excess] {
		// Retired quests complete without reward and without joining the
		// user's completed-quest ledger.
		q.Complete(now)
		slog.Info("Retired excess quest",
			slog.String("type", "eng"),
			slog.String("quest_id", q.QuestID))
	}
}

func (s *QuestStore) backfillLocked(ctx context.Context) {
	if s.gen == nil {
		return
	}

	attempts := 0
	for len(s.activeLocked()) < ActiveQuestTarget && attempts < maxGenerationAttempts {
		attempts++

		quest := s.gen.Generate(ctx)
		if quest == nil {
			continue
		}
		if s.hasQuestLocked(quest.QuestID) {
			// Id collision against an existing quest: discard and retry.
			continue
		}

		s.quests = append(s.quests, quest)
		slog.Info("Generated quest",
			slog.String("type", "eng"),
			slog.String("quest_id", quest.QuestID),
			slog.String("quest_type", string(quest.Type)),
			slog.Int("reward", quest.RewardPoints))
	}

	if remaining := ActiveQuestTarget - len(s.activeLocked()); remaining > 0 {
		slog.Warn("Quest pool below target, catalog exhausted",
			slog.String("type", "eng"),
			slog.Int("missing", remaining))
	}
}

// Add inserts an externally built quest, ignoring id collisions.
func (s *QuestStore) Add(ctx context.Context, quest *models.Quest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasQuestLocked(quest.QuestID) {
		return
	}
	s.quests = append(s.quests, quest)
	s.persistLocked(ctx)
}

// UpdateActive applies fn to every active quest under the store lock. A
// quest whose progress reaches its target is completed: stamped, rewarded
// and appended to the user's completed ledger. Returns copies of the quests
// completed by this call.
func (s *QuestStore) UpdateActive(ctx context.Context, fn func(*models.Quest) bool) []*models.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed []*models.Quest
	changed := false
	now := time.Now()

	for _, q := range s.quests {
		if q.Completed {
			continue
		}
		if !fn(q) {
			continue
		}
		changed = true

		if q.Progress >= q.TargetCount && q.Complete(now) {
			s.progress.TotalPoints += int64(q.RewardPoints)
			s.progress.CompletedQuestIDs = append(s.progress.CompletedQuestIDs, q.QuestID)
			completed = append(completed, q.Clone())
		}
	}

	if changed {
		s.persistLocked(ctx)
	}
	return completed
}

// Active returns the non-completed quests in ascending creation order.
func (s *QuestStore) Active() []*models.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := cloneQuests(s.activeLocked())
	sortByCreation(out)
	return out
}

// Completed returns the completed quests in ascending creation order.
func (s *QuestStore) Completed() []*models.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed []*models.Quest
	for _, q := range s.quests {
		if q.Completed {
			completed = append(completed, q)
		}
	}
	out := cloneQuests(completed)
	sortByCreation(out)
	return out
}

// UserStatsSummary is the display summary exposed to callers.
type UserStatsSummary struct {
	TotalPoints     int64   `json:"total_points"`
	ActiveQuests    int     `json:"active_quests"`
	CompletedQuests int     `json:"completed_quests"`
	CompletionRate  float64 `json:"completion_rate"`
}

// UserStats summarizes the quest collection and reward progress.
func (s *QuestStore) UserStats() UserStatsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := 0
	for _, q := range s.quests {
		if q.Completed {
			completed++
		}
	}

	summary := UserStatsSummary{
		TotalPoints:     s.progress.TotalPoints,
		ActiveQuests:    len(s.quests) - completed,
		CompletedQuests: completed,
	}
	if len(s.quests) > 0 {
		summary.CompletionRate = float64(completed) / float64(len(s.quests)) * 100
	}
	return summary
}

// Progress returns a copy of the user's reward progress.
func (s *QuestStore) Progress() models.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *s.progress
	out.CompletedQuestIDs = append([]string(nil), s.progress.CompletedQuestIDs...)
	return out
}

// PruneCompleted drops quests completed longer than maxAge ago. Active
// quests are never pruned.
func (s *QuestStore) PruneCompleted(ctx context.Context, maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := s.quests[:0]
	for _, q := range s.quests {
		if q.Completed && q.CompletedAt != nil && q.CompletedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, q)
	}

	if len(kept) < len(s.quests) {
		slog.Info("Pruned old completed quests",
			slog.String("type", "eng"),
			slog.Int("pruned", len(s.quests)-len(kept)))
		s.quests = kept
		s.persistLocked(ctx)
	}
}

func (s *QuestStore) activeLocked() []*models.Quest {
	var active []*models.Quest
	for _, q := range s.quests {
		if !q.Completed {
			active = append(active, q)
		}
	}
	return active
}

func (s *QuestStore) hasQuestLocked(id string) bool {
	for _, q := range s.quests {
		if q.QuestID == id {
			return true
		}
	}
	return false
}

// persistLocked writes the whole aggregate back. Failures are logged and the
// in-memory state retained; the next mutating call rewrites everything, so
// nothing is lost from the caller's perspective.
func (s *QuestStore) persistLocked(ctx context.Context) {
	if err := s.repo.SaveQuests(ctx, s.quests); err != nil {
		slog.Error("Failed to persist quests",
			slog.String("type", "db"),
			slog.Any("error", err))
	}
	if err := s.repo.SaveUserProgress(ctx, s.progress); err != nil {
		slog.Error("Failed to persist user progress",
			slog.String("type", "db"),
			slog.Any("error", err))
	}
}

func cloneQuests(quests []*models.Quest) []*models.Quest {
	out := make([]*models.Quest, len(quests))
	for i, q := range quests {
		out[i] = q.Clone()
	}
	return out
}

func sortByCreation(quests []*models.Quest) {
	sort.SliceStable(quests, func(i, j int) bool {
		if quests[i].CreatedAt.Equal(quests[j].CreatedAt) {
			return quests[i].QuestID < quests[j].QuestID
		}
		return quests[i].CreatedAt.Before(quests[j].CreatedAt)
	})
}
