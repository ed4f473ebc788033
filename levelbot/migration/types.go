package migration

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Legacy document shapes from the original Mongo deployment. Field names
// follow the source collections verbatim, including companyId for what this
// system calls a guild.

// LegacyBadges is the per-user badge flag block.
type LegacyBadges struct {
	Bronze   bool `bson:"bronze"`
	Silver   bool `bson:"silver"`
	Gold     bool `bson:"gold"`
	Platinum bool `bson:"platinum"`
	Apex     bool `bson:"apex"`
}

// LegacyUser is one document of the users collection.
type LegacyUser struct {
	ID        primitive.ObjectID `bson:"_id"`
	CompanyID string             `bson:"companyId"`
	UserID    string             `bson:"userId"`
	Username  string             `bson:"username"`
	AvatarURL string             `bson:"avatarUrl"`

	// Mongo stores numbers as doubles; convert on read.
	XP                  float64 `bson:"xp"`
	Level               float64 `bson:"level"`
	MessagesSent        float64 `bson:"messagesSent"`
	SuccessMessagesSent float64 `bson:"successMessagesSent"`
	VoiceMinutes        float64 `bson:"voiceMinutes"`

	Badges LegacyBadges `bson:"badges"`
	Roles  []string     `bson:"roles"`

	LevelUpPending bool      `bson:"levelUpPending"`
	CreatedAt      time.Time `bson:"createdAt"`
}

// LegacyObjective is one objective entry inside a progress document.
type LegacyObjective struct {
	ID              string  `bson:"id"`
	CurrentMessages float64 `bson:"currentMessages"`
	CurrentSuccess  float64 `bson:"currentSuccess"`
	Completed       bool    `bson:"completed"`
	Claimed         bool    `bson:"claimed"`
}

// LegacyWeeklyBlock is the weekly state the old system nested inside each
// daily document.
type LegacyWeeklyBlock struct {
	Week       string            `bson:"week"`
	Objectives []LegacyObjective `bson:"objectives"`
	Seen       bool              `bson:"seen"`
}

// LegacyQuestProgress is one document of the questprogress collection: one
// member's state for one calendar date, with the surrounding week's state
// nested inside it.
type LegacyQuestProgress struct {
	ID        primitive.ObjectID `bson:"_id"`
	CompanyID string             `bson:"companyId"`
	UserID    string             `bson:"userId"`
	Date      string             `bson:"date"`

	Objectives []LegacyObjective  `bson:"objectives"`
	Seen       bool               `bson:"seen"`
	Weekly     *LegacyWeeklyBlock `bson:"weekly,omitempty"`

	UpdatedAt time.Time `bson:"updatedAt"`
}

// TableStats tracks per-table migration counters.
type TableStats struct {
	Read     int
	Inserted int
	Skipped  int
	Failed   int
}

// MigrationStats aggregates the whole run.
type MigrationStats struct {
	Tables    map[string]*TableStats
	StartTime time.Time
}

func (s *MigrationStats) table(name string) *TableStats {
	t, ok := s.Tables[name]
	if !ok {
		t = &TableStats{}
		s.Tables[name] = t
	}
	return t
}
