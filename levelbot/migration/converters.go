package migration

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/guildxp/levelbot/levelbot/database"
	"github.com/guildxp/levelbot/levelbot/database/models"
)

func convertUser(lu LegacyUser) *models.UserProgress {
	now := time.Now()

	createdAt := lu.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	return &models.UserProgress{
		GuildID:             lu.CompanyID,
		UserID:              lu.UserID,
		Username:            cleanseString(lu.Username),
		AvatarURL:           lu.AvatarURL,
		TotalXP:             int64(lu.XP),
		Level:               int(lu.Level),
		MessagesSent:        int64(lu.MessagesSent),
		SuccessMessagesSent: int64(lu.SuccessMessagesSent),
		VoiceMinutes:        int64(lu.VoiceMinutes),
		BadgeBronze:         lu.Badges.Bronze,
		BadgeSilver:         lu.Badges.Silver,
		BadgeGold:           lu.Badges.Gold,
		BadgePlatinum:       lu.Badges.Platinum,
		BadgeApex:           lu.Badges.Apex,
		Roles:               lu.Roles,
		LevelUpPending:      lu.LevelUpPending,
		CreatedAt:           createdAt,
		UpdatedAt:           now,
	}
}

// convertQuestProgress splits one legacy daily document, weekly block nested
// inside, into flat per-period rows plus their seen-state rows. The cached
// definition fields come from the stock catalog; objectives the catalog no
// longer knows keep zeroed targets and surface nowhere, which matches how
// orphans behave for live records.
func convertQuestProgress(lp LegacyQuestProgress) ([]*models.ObjectiveProgress, []*models.QuestPeriodState) {
	var rows []*models.ObjectiveProgress
	var states []*models.QuestPeriodState

	rows = append(rows, convertObjectives(lp.CompanyID, lp.UserID, models.QuestTypeDaily, lp.Date, lp.Objectives, lp.UpdatedAt)...)
	states = append(states, &models.QuestPeriodState{
		GuildID:   lp.CompanyID,
		UserID:    lp.UserID,
		QuestType: models.QuestTypeDaily,
		PeriodKey: lp.Date,
		Seen:      lp.Seen,
		CreatedAt: lp.UpdatedAt,
		UpdatedAt: lp.UpdatedAt,
	})

	if lp.Weekly != nil && lp.Weekly.Week != "" {
		rows = append(rows, convertObjectives(lp.CompanyID, lp.UserID, models.QuestTypeWeekly, lp.Weekly.Week, lp.Weekly.Objectives, lp.UpdatedAt)...)
		states = append(states, &models.QuestPeriodState{
			GuildID:   lp.CompanyID,
			UserID:    lp.UserID,
			QuestType: models.QuestTypeWeekly,
			PeriodKey: lp.Weekly.Week,
			Seen:      lp.Weekly.Seen,
			CreatedAt: lp.UpdatedAt,
			UpdatedAt: lp.UpdatedAt,
		})
	}

	return rows, states
}

func convertObjectives(guildID, userID, questType, periodKey string, objectives []LegacyObjective, updatedAt time.Time) []*models.ObjectiveProgress {
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	rows := make([]*models.ObjectiveProgress, 0, len(objectives))
	for _, lo := range objectives {
		row := &models.ObjectiveProgress{
			GuildID:                guildID,
			UserID:                 userID,
			QuestType:              questType,
			PeriodKey:              periodKey,
			ObjectiveID:            lo.ID,
			CurrentMessages:        int(lo.CurrentMessages),
			CurrentSuccessMessages: int(lo.CurrentSuccess),
			Completed:              lo.Completed || lo.Claimed,
			Claimed:                lo.Claimed,
			CreatedAt:              updatedAt,
			UpdatedAt:              updatedAt,
		}
		if def := stockObjective(guildID, questType, lo.ID); def != nil {
			row.Title = def.Title
			row.Description = def.Description
			row.MessageTarget = def.MessageTarget
			row.SuccessMessageTarget = def.SuccessMessageTarget
			row.XPReward = def.XPReward
			row.Ord = def.Ord
		}
		rows = append(rows, row)
	}
	return rows
}

func stockObjective(guildID, questType, objectiveID string) *models.ObjectiveDefinition {
	for _, def := range database.DefaultQuestDefinitions(guildID) {
		if def.Type != questType {
			continue
		}
		for _, obj := range def.Objectives {
			if obj.ObjectiveID == objectiveID {
				return obj
			}
		}
	}
	return nil
}

// cleanseString strips control characters and invalid UTF-8 that the legacy
// store accumulated over the years.
func cleanseString(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s)
}
