package models

import (
	"time"

	"github.com/uptrace/bun"
)

type QuestDefinition struct {
	bun.BaseModel `bun:"table:quest_definitions,alias:qd"`

	ID      int64  `bun:"id,pk,autoincrement"`
	GuildID string `bun:"guild_id,notnull"`
	Type    string `bun:"type,notnull"` // daily, weekly
	Active  bool   `bun:"active,notnull,default:true"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	// Relations
	Objectives []*ObjectiveDefinition `bun:"rel:has-many,join:id=quest_id"`
}

// ObjectiveDefinition is one countable sub-goal of a quest. Exactly one of
// MessageTarget/SuccessMessageTarget is nonzero: an objective tracks a single
// counter dimension. Ord is display/claim sequencing only and never gates
// completion.
type ObjectiveDefinition struct {
	bun.BaseModel `bun:"table:objective_definitions,alias:od"`

	ID          int64  `bun:"id,pk,autoincrement"`
	QuestID     int64  `bun:"quest_id,notnull"`
	ObjectiveID string `bun:"objective_id,notnull"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description,notnull"`

	MessageTarget        int `bun:"message_target,notnull,default:0"`
	SuccessMessageTarget int `bun:"success_message_target,notnull,default:0"`

	XPReward int64 `bun:"xp_reward,notnull,default:0"`
	Ord      int   `bun:"ord,notnull,default:0"`
	Active   bool  `bun:"active,notnull,default:true"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Quest type constants
const (
	QuestTypeDaily  = "daily"
	QuestTypeWeekly = "weekly"
)

// QuestTypes lists the supported reset cadences in display order.
var QuestTypes = []string{QuestTypeDaily, QuestTypeWeekly}
