package models

import (
	"time"

	"github.com/uptrace/bun"
)

// QuestType is the closed set of quest variants. Generation and progress
// rules both dispatch on it.
type QuestType string

const (
	QuestTypeDiscovery  QuestType = "discovery"
	QuestTypeCollection QuestType = "collection"
	QuestTypeExplorer   QuestType = "explorer"
	QuestTypeKnowledge  QuestType = "knowledge"
)

// QuestTypes lists every quest type in generation order.
var QuestTypes = []QuestType{
	QuestTypeDiscovery,
	QuestTypeCollection,
	QuestTypeExplorer,
	QuestTypeKnowledge,
}

type Quest struct {
	bun.BaseModel `bun:"table:quests,alias:q" bson:"-"`

	QuestID        string    `bun:"quest_id,pk" json:"id" bson:"_id"`
	Title          string    `bun:"title,notnull" json:"title" bson:"title"`
	Description    string    `bun:"description,notnull" json:"description" bson:"description"`
	Type           QuestType `bun:"type,notnull" json:"type" bson:"type"`
	TargetCategory string    `bun:"target_category" json:"target_category" bson:"target_category"`
	TargetCount    int       `bun:"target_count,notnull" json:"target_count" bson:"target_count"`
	TargetItems    []string  `bun:"target_items,type:jsonb" json:"target_items" bson:"target_items"`
	Progress       int       `bun:"progress,notnull,default:0" json:"progress" bson:"progress"`
	Completed      bool      `bun:"completed,notnull,default:false" json:"completed" bson:"completed"`

	// Only meaningful for explorer quests; always present so progress code
	// never has to probe for the field.
	DiscoveredCategories []string `bun:"discovered_categories,type:jsonb" json:"discovered_categories" bson:"discovered_categories"`

	RewardPoints int        `bun:"reward_points,notnull" json:"reward_points" bson:"reward_points"`
	CreatedAt    time.Time  `bun:"created_at,notnull" json:"created_at" bson:"created_at"`
	CompletedAt  *time.Time `bun:"completed_at" json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// HasTargetItem reports whether name is one of the quest's target items.
func (q *Quest) HasTargetItem(name string) bool {
	for _, item := range q.TargetItems {
		if item == name {
			return true
		}
	}
	return false
}

// MarkCategoryDiscovered records a category hit for an explorer quest and
// reports whether it was new. Progress tracks the size of the set, so order
// of discovery does not matter.
func (q *Quest) MarkCategoryDiscovered(categoryID string) bool {
	for _, c := range q.DiscoveredCategories {
		if c == categoryID {
			return false
		}
	}
	q.DiscoveredCategories = append(q.DiscoveredCategories, categoryID)
	q.Progress = len(q.DiscoveredCategories)
	return true
}

// Clone returns a deep copy safe to hand to readers on other goroutines.
func (q *Quest) Clone() *Quest {
	out := *q
	out.TargetItems = append([]string(nil), q.TargetItems...)
	out.DiscoveredCategories = append([]string(nil), q.DiscoveredCategories...)
	if q.CompletedAt != nil {
		t := *q.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Complete moves the quest into its terminal state. CompletedAt is stamped
// exactly once; calling Complete on a completed quest is a no-op.
func (q *Quest) Complete(now time.Time) bool {
	if q.Completed {
		return false
	}
	q.Completed = true
	q.Progress = q.TargetCount
	q.CompletedAt = &now
	return true
}
