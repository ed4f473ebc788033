package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LevelNotification is an append-only record of a single level-up transition.
// Unlike UserProgress.LevelUpPending (a one-slot flag), the log lets several
// historical unseen transitions be listed and acknowledged individually.
type LevelNotification struct {
	bun.BaseModel `bun:"table:level_notifications,alias:ln"`

	ID      int64  `bun:"id,pk,autoincrement"`
	GuildID string `bun:"guild_id,notnull"`
	UserID  string `bun:"user_id,notnull"`
	Level   int    `bun:"level,notnull"`
	XP      int64  `bun:"xp,notnull"`
	Seen    bool   `bun:"seen,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull"`
}
