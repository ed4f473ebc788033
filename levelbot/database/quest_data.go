package database

import (
	"time"

	"github.com/guildxp/levelbot/levelbot/database/models"
)

// DefaultQuestDefinitions returns the stock daily and weekly quest catalogs
// seeded for a guild on first sight. Seeding is idempotent and never
// overwrites an existing catalog.
func DefaultQuestDefinitions(guildID string) []*models.QuestDefinition {
	now := time.Now()

	return []*models.QuestDefinition{
		{
			GuildID:   guildID,
			Type:      models.QuestTypeDaily,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
			Objectives: []*models.ObjectiveDefinition{
				{
					ObjectiveID:   "daily_messages_10",
					Title:         "Conversationalist",
					Description:   "Send 10 messages",
					MessageTarget: 10,
					XPReward:      25,
					Ord:           1,
					Active:        true,
					CreatedAt:     now,
					UpdatedAt:     now,
				},
				{
					ObjectiveID:          "daily_success_1",
					Title:                "First Win",
					Description:          "Send 1 success message",
					SuccessMessageTarget: 1,
					XPReward:             10,
					Ord:                  2,
					Active:               true,
					CreatedAt:            now,
					UpdatedAt:            now,
				},
				{
					ObjectiveID:          "daily_success_3",
					Title:                "On a Roll",
					Description:          "Send 3 success messages",
					SuccessMessageTarget: 3,
					XPReward:             25,
					Ord:                  3,
					Active:               true,
					CreatedAt:            now,
					UpdatedAt:            now,
				},
			},
		},
		{
			GuildID:   guildID,
			Type:      models.QuestTypeWeekly,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
			Objectives: []*models.ObjectiveDefinition{
				{
					ObjectiveID:   "weekly_messages_100",
					Title:         "Regular",
					Description:   "Send 100 messages",
					MessageTarget: 100,
					XPReward:      150,
					Ord:           1,
					Active:        true,
					CreatedAt:     now,
					UpdatedAt:     now,
				},
				{
					ObjectiveID:          "weekly_success_10",
					Title:                "Consistent Winner",
					Description:          "Send 10 success messages",
					SuccessMessageTarget: 10,
					XPReward:             100,
					Ord:                  2,
					Active:               true,
					CreatedAt:            now,
					UpdatedAt:            now,
				},
			},
		},
	}
}
