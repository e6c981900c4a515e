package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserProgress accumulates quest rewards for the session user. A single row
// per user; the engine currently runs one user per session.
type UserProgress struct {
	bun.BaseModel `bun:"table:user_progress,alias:up" bson:"-"`

	ID                int64     `bun:"id,pk" json:"id" bson:"_id"`
	TotalPoints       int64     `bun:"total_points,notnull,default:0" json:"total_points" bson:"total_points"`
	CompletedQuestIDs []string  `bun:"completed_quest_ids,type:jsonb" json:"completed_quest_ids" bson:"completed_quest_ids"`
	UpdatedAt         time.Time `bun:"updated_at,notnull" json:"updated_at" bson:"updated_at"`
}
