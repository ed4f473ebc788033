package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ObjectiveProgress is one member's counters for one objective within one
// period. The definition fields (targets, reward, ord) are a cached copy of
// the catalog as of the last reconciliation; the migrator is the only writer
// allowed to change them. Completed is monotonic within a period and
// Claimed implies Completed.
//
// Both counters are always stored even though only one is ever incremented
// per objective; projection reads both unconditionally.
type ObjectiveProgress struct {
	bun.BaseModel `bun:"table:objective_progress,alias:op"`

	ID          int64  `bun:"id,pk,autoincrement"`
	GuildID     string `bun:"guild_id,notnull"`
	UserID      string `bun:"user_id,notnull"`
	QuestType   string `bun:"quest_type,notnull"`
	PeriodKey   string `bun:"period_key,notnull"`
	ObjectiveID string `bun:"objective_id,notnull"`

	Title                string `bun:"title,notnull"`
	Description          string `bun:"description,notnull"`
	MessageTarget        int    `bun:"message_target,notnull,default:0"`
	SuccessMessageTarget int    `bun:"success_message_target,notnull,default:0"`
	XPReward             int64  `bun:"xp_reward,notnull,default:0"`
	Ord                  int    `bun:"ord,notnull,default:0"`

	CurrentMessages        int `bun:"current_messages,notnull,default:0"`
	CurrentSuccessMessages int `bun:"current_success_messages,notnull,default:0"`

	Completed bool `bun:"completed,notnull,default:false"`
	Claimed   bool `bun:"claimed,notnull,default:false"`

	CompletedAt *time.Time `bun:"completed_at"`
	ClaimedAt   *time.Time `bun:"claimed_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

// Target returns the objective's single counted target.
func (p *ObjectiveProgress) Target() int {
	if p.MessageTarget > 0 {
		return p.MessageTarget
	}
	return p.SuccessMessageTarget
}

// Current returns the counter for the objective's counted dimension.
func (p *ObjectiveProgress) Current() int {
	if p.MessageTarget > 0 {
		return p.CurrentMessages
	}
	return p.CurrentSuccessMessages
}

// QuestPeriodState carries the per-period unread marker for one quest type.
// Seen flips to false whenever an objective newly completes and back to true
// when the member views that quest tab.
type QuestPeriodState struct {
	bun.BaseModel `bun:"table:quest_period_state,alias:qps"`

	ID        int64  `bun:"id,pk,autoincrement"`
	GuildID   string `bun:"guild_id,notnull"`
	UserID    string `bun:"user_id,notnull"`
	QuestType string `bun:"quest_type,notnull"`
	PeriodKey string `bun:"period_key,notnull"`
	Seen      bool   `bun:"seen,notnull,default:true"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
