package worlddex

import (
	"context"
	"log/slog"
	"time"

	"github.com/worlddex/worlddex/worlddex/catalog"
	"github.com/worlddex/worlddex/worlddex/database/models"
	"github.com/worlddex/worlddex/worlddex/logger"
	"github.com/worlddex/worlddex/worlddex/services"
	"golang.org/x/sync/errgroup"
)

const (
	defaultQueueSize  = 256
	defaultPruneAfter = 7 * 24 * time.Hour
	pruneInterval     = time.Hour
)

type discoveryEvent struct {
	objectName string
	categoryID string
}

// Engine wires the quest and stats stores behind a single owning goroutine.
// Discovery events are queued and applied in order by that goroutine, so
// interactive callers never wait on an LLM round trip; read accessors
// snapshot under the store locks and are safe from any goroutine.
type Engine struct {
	catalog catalog.Provider
	quests  *services.QuestStore
	stats   *services.StatsService
	tracker *services.ProgressTracker

	pruneAfter time.Duration
	events     chan discoveryEvent
	cancel     context.CancelFunc
	group      *errgroup.Group
}

func NewEngine(provider catalog.Provider, quests *services.QuestStore, stats *services.StatsService, tracker *services.ProgressTracker, cfg EngineConfig) *Engine {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	pruneAfter := defaultPruneAfter
	if cfg.PruneAfterDays > 0 {
		pruneAfter = time.Duration(cfg.PruneAfterDays) * 24 * time.Hour
	}

	return &Engine{
		catalog:    provider,
		quests:     quests,
		stats:      stats,
		tracker:    tracker,
		pruneAfter: pruneAfter,
		events:     make(chan discoveryEvent, queueSize),
	}
}

// Start loads persisted state, restores the quest-pool invariant and spawns
// the worker goroutines.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.quests.Load(ctx); err != nil {
		return err
	}
	if err := e.stats.Load(ctx); err != nil {
		return err
	}

	// Startup maintenance: dedupe whatever was persisted, then fill the pool.
	e.quests.Maintain(ctx)

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.group, runCtx = errgroup.WithContext(runCtx)

	e.group.Go(func() error { return e.run(runCtx) })
	e.group.Go(func() error { return e.prune(runCtx) })

	logger.LogSystem("Quest engine started",
		slog.Int("active_quests", len(e.quests.Active())))
	return nil
}

// OnDiscovery queues a discovery event for the worker. The object name is
// resolved against the catalog first, so slightly misspelled events still
// land on the canonical entry. Fire and forget: the caller must not assume
// the update is visible on return.
func (e *Engine) OnDiscovery(objectName, categoryID string) {
	if obj, ok := e.catalog.FindObject(objectName); ok {
		objectName = obj.Name
	}
	// A full queue applies backpressure rather than dropping the event.
	e.events <- discoveryEvent{objectName: objectName, categoryID: categoryID}
}

func (e *Engine) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before shutting down.
			for {
				select {
				case ev := <-e.events:
					e.tracker.OnDiscovery(context.Background(), ev.objectName, ev.categoryID)
				default:
					return nil
				}
			}
		case ev := <-e.events:
			start := time.Now()
			e.tracker.OnDiscovery(ctx, ev.objectName, ev.categoryID)
			logger.LogDiscovery(ev.objectName, ev.categoryID, time.Since(start))
		}
	}
}

func (e *Engine) prune(ctx context.Context) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.quests.PruneCompleted(ctx, e.pruneAfter)
		}
	}
}

// GetActiveQuests returns the active quests in ascending creation order.
func (e *Engine) GetActiveQuests() []*models.Quest {
	return e.quests.Active()
}

// GetCompletedQuests returns the completed quests in ascending creation order.
func (e *Engine) GetCompletedQuests() []*models.Quest {
	return e.quests.Completed()
}

// GetUserStats summarizes quest progress for display.
func (e *Engine) GetUserStats() services.UserStatsSummary {
	return e.quests.UserStats()
}

// StatsSnapshot returns a deep copy of the full statistics aggregate.
func (e *Engine) StatsSnapshot() *models.Stats {
	return e.stats.Snapshot()
}

// SummaryStats returns the condensed statistics view.
func (e *Engine) SummaryStats() services.SummaryStats {
	return e.stats.Summary()
}

// CategoryCompletion reports per-category discovery coverage.
func (e *Engine) CategoryCompletion() map[string]services.CategoryCompletion {
	return e.stats.CategoryCompletionReport(e.catalog.Categories(), e.catalog.Objects())
}

// RecentAchievements returns the latest granted achievements.
func (e *Engine) RecentAchievements(limit int) []services.Achievement {
	return e.stats.RecentAchievements(limit)
}

// ResetStats wipes the cumulative statistics back to a fresh aggregate. Quests
// and reward progress are untouched.
func (e *Engine) ResetStats(ctx context.Context) {
	e.stats.Reset(ctx)
}

// Close stops the workers after draining queued events.
func (e *Engine) Close() error {
	if e.cancel != nil {
		e.cancel()
	}
	if e.group != nil {
		return e.group.Wait()
	}
	return nil
}
