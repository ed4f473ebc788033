package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildxp/levelbot/levelbot/database/models"
)

func TestConvertUser(t *testing.T) {
	lu := LegacyUser{
		CompanyID:           "guild-1",
		UserID:              "user-1",
		Username:            "alice",
		XP:                  1234,
		Level:               4,
		MessagesSent:        500,
		SuccessMessagesSent: 42,
		VoiceMinutes:        90,
		Badges:              LegacyBadges{Bronze: true, Silver: true},
		Roles:               []string{"role-a"},
		LevelUpPending:      true,
		CreatedAt:           time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	u := convertUser(lu)
	assert.Equal(t, "guild-1", u.GuildID)
	assert.Equal(t, int64(1234), u.TotalXP)
	assert.Equal(t, 4, u.Level)
	assert.Equal(t, int64(42), u.SuccessMessagesSent)
	assert.True(t, u.BadgeBronze)
	assert.True(t, u.BadgeSilver)
	assert.False(t, u.BadgeGold)
	assert.True(t, u.LevelUpPending)
	assert.Equal(t, lu.CreatedAt, u.CreatedAt)
}

func TestConvertQuestProgressSplitsWeekly(t *testing.T) {
	lp := LegacyQuestProgress{
		CompanyID: "guild-1",
		UserID:    "user-1",
		Date:      "2025-06-10",
		Seen:      false,
		Objectives: []LegacyObjective{
			{ID: "daily_messages_10", CurrentMessages: 7},
			{ID: "daily_success_1", CurrentSuccess: 1, Completed: true, Claimed: true},
		},
		Weekly: &LegacyWeeklyBlock{
			Week: "2025-W24",
			Seen: true,
			Objectives: []LegacyObjective{
				{ID: "weekly_messages_100", CurrentMessages: 63},
			},
		},
		UpdatedAt: time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC),
	}

	rows, states := convertQuestProgress(lp)
	require.Len(t, rows, 3)
	require.Len(t, states, 2)

	byID := map[string]*models.ObjectiveProgress{}
	for _, r := range rows {
		byID[r.ObjectiveID] = r
	}

	daily := byID["daily_messages_10"]
	assert.Equal(t, models.QuestTypeDaily, daily.QuestType)
	assert.Equal(t, "2025-06-10", daily.PeriodKey)
	assert.Equal(t, 7, daily.CurrentMessages)
	assert.Equal(t, 10, daily.MessageTarget, "cached fields come from the stock catalog")

	weekly := byID["weekly_messages_100"]
	assert.Equal(t, models.QuestTypeWeekly, weekly.QuestType)
	assert.Equal(t, "2025-W24", weekly.PeriodKey)
	assert.Equal(t, 63, weekly.CurrentMessages)

	claimed := byID["daily_success_1"]
	assert.True(t, claimed.Completed)
	assert.True(t, claimed.Claimed)

	assert.Equal(t, models.QuestTypeDaily, states[0].QuestType)
	assert.False(t, states[0].Seen)
	assert.Equal(t, models.QuestTypeWeekly, states[1].QuestType)
	assert.True(t, states[1].Seen)
}

func TestConvertQuestProgressUnknownObjective(t *testing.T) {
	lp := LegacyQuestProgress{
		CompanyID:  "guild-1",
		UserID:     "user-1",
		Date:       "2025-06-10",
		Objectives: []LegacyObjective{{ID: "retired_objective", CurrentMessages: 3}},
	}

	rows, _ := convertQuestProgress(lp)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].MessageTarget, "unknown objectives keep zeroed targets and stay orphaned")
	assert.Equal(t, 3, rows[0].CurrentMessages)
}

func TestCleanseString(t *testing.T) {
	assert.Equal(t, "alice", cleanseString("al\x00ice"))
	assert.Equal(t, "ok", cleanseString("ok"))
	assert.Equal(t, "ab", cleanseString("a\xffb"))
}
