package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserProgress is the per-guild, per-member progression state. Level is a
// cached projection of TotalXP; no write path may move it except recomputation
// through the level curve.
type UserProgress struct {
	bun.BaseModel `bun:"table:user_progress,alias:up"`

	ID      int64  `bun:"id,pk,autoincrement"`
	GuildID string `bun:"guild_id,notnull"`
	UserID  string `bun:"user_id,notnull"`

	// Cached identity from the gateway, refreshed when placeholder/missing.
	Username  string `bun:"username,notnull,default:''"`
	AvatarURL string `bun:"avatar_url,notnull,default:''"`

	TotalXP int64 `bun:"total_xp,notnull,default:0"`
	Level   int   `bun:"level,notnull,default:0"`

	// Activity counters
	MessagesSent        int64 `bun:"messages_sent,notnull,default:0"`
	SuccessMessagesSent int64 `bun:"success_messages_sent,notnull,default:0"`
	VoiceMinutes        int64 `bun:"voice_minutes,notnull,default:0"`

	// Badges are five independent flags, not an enum; external readers consume
	// each column directly.
	BadgeBronze   bool `bun:"badge_bronze,notnull,default:false"`
	BadgeSilver   bool `bun:"badge_silver,notnull,default:false"`
	BadgeGold     bool `bun:"badge_gold,notnull,default:false"`
	BadgePlatinum bool `bun:"badge_platinum,notnull,default:false"`
	BadgeApex     bool `bun:"badge_apex,notnull,default:false"`

	Roles []string `bun:"roles,type:jsonb"`

	// True from the most recent level-up until the member views their profile.
	LevelUpPending bool `bun:"level_up_pending,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Badge column keys
const (
	BadgeBronze   = "bronze"
	BadgeSilver   = "silver"
	BadgeGold     = "gold"
	BadgePlatinum = "platinum"
	BadgeApex     = "apex"
)

// Badges returns the current badge flags keyed by badge name.
func (u *UserProgress) Badges() map[string]bool {
	return map[string]bool{
		BadgeBronze:   u.BadgeBronze,
		BadgeSilver:   u.BadgeSilver,
		BadgeGold:     u.BadgeGold,
		BadgePlatinum: u.BadgePlatinum,
		BadgeApex:     u.BadgeApex,
	}
}

// HasRole reports whether the cached role set contains roleID.
func (u *UserProgress) HasRole(roleID string) bool {
	for _, r := range u.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}
