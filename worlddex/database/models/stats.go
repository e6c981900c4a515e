package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CategoryProgress tracks which objects of one category the user has seen.
type CategoryProgress struct {
	Discovered     []string  `json:"discovered" bson:"discovered"`
	FirstDiscovery time.Time `json:"first_discovery" bson:"first_discovery"`
}

// Stats is the per-user cumulative statistics aggregate. It is created once
// per session, mutated on every discovery event and never deleted except by
// an explicit reset.
type Stats struct {
	bun.BaseModel `bun:"table:user_stats,alias:st" bson:"-"`

	ID                 int64                        `bun:"id,pk" json:"id" bson:"_id"`
	ObjectsDiscovered  int64                        `bun:"objects_discovered,notnull,default:0" json:"objects_discovered" bson:"objects_discovered"`
	CategoriesExplored []string                     `bun:"categories_explored,type:jsonb" json:"categories_explored" bson:"categories_explored"`
	CategoryProgress   map[string]*CategoryProgress `bun:"category_progress,type:jsonb" json:"category_progress" bson:"category_progress"`
	QuestsCompleted    int64                        `bun:"quests_completed,notnull,default:0" json:"quests_completed" bson:"quests_completed"`
	TotalQuestPoints   int64                        `bun:"total_quest_points,notnull,default:0" json:"total_quest_points" bson:"total_quest_points"`

	// DiscoveryStreak counts distinct days with at least one discovery. It
	// only ever increments: a multi-day gap does not reset it.
	DiscoveryStreak   int64  `bun:"discovery_streak,notnull,default:0" json:"discovery_streak" bson:"discovery_streak"`
	LastDiscoveryDate string `bun:"last_discovery_date" json:"last_discovery_date" bson:"last_discovery_date"`

	FirstDiscoveryDate *time.Time `bun:"first_discovery_date" json:"first_discovery_date,omitempty" bson:"first_discovery_date,omitempty"`
	LastActivityDate   time.Time  `bun:"last_activity_date,notnull" json:"last_activity_date" bson:"last_activity_date"`
	Achievements       []string   `bun:"achievements,type:jsonb" json:"achievements" bson:"achievements"`
}

// NewStats returns an empty stats aggregate with every collection
// initialized, so callers never see nil maps after a fresh start.
func NewStats() *Stats {
	return &Stats{
		ID:                 1,
		CategoriesExplored: []string{},
		CategoryProgress:   map[string]*CategoryProgress{},
		Achievements:       []string{},
	}
}

// HasAchievement reports whether the achievement id was already granted.
func (s *Stats) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// HasExploredCategory reports whether the category was seen before.
func (s *Stats) HasExploredCategory(categoryID string) bool {
	for _, c := range s.CategoriesExplored {
		if c == categoryID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to readers on other goroutines.
func (s *Stats) Clone() *Stats {
	out := *s
	out.CategoriesExplored = append([]string(nil), s.CategoriesExplored...)
	out.Achievements = append([]string(nil), s.Achievements...)
	out.CategoryProgress = make(map[string]*CategoryProgress, len(s.CategoryProgress))
	for id, cp := range s.CategoryProgress {
		cpCopy := *cp
		cpCopy.Discovered = append([]string(nil), cp.Discovered...)
		out.CategoryProgress[id] = &cpCopy
	}
	if s.FirstDiscoveryDate != nil {
		t := *s.FirstDiscoveryDate
		out.FirstDiscoveryDate = &t
	}
	return &out
}
