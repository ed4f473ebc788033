package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/leveling"
	"github.com/guildxp/levelbot/levelbot/utils"
)

var Profile = discord.SlashCommandCreate{
	Name:        "profile",
	Description: "📊 View progression: level, XP, badges and activity",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Member to inspect (defaults to you)",
			Required:    false,
		},
	},
}

var badgeEmoji = map[string]string{
	models.BadgeBronze:   "🥉",
	models.BadgeSilver:   "🥈",
	models.BadgeGold:     "🥇",
	models.BadgePlatinum: "💠",
	models.BadgeApex:     "👑",
}

func ProfileHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		target := e.User()
		if u, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			target = u
		}
		guildID := e.GuildID().String()
		userID := target.ID.String()

		user, err := b.UserRepository.Get(ctx, guildID, userID)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load profile")
		}
		if user == nil {
			return utils.EH.CreateInfoEmbed(e, fmt.Sprintf("%s has no progression yet. Send a message to get started!", target.Username))
		}

		// Viewing your own profile acknowledges pending level-ups.
		var levelUps []*models.LevelNotification
		if target.ID == e.User().ID {
			levelUps, err = b.NotificationRepository.ListUnseen(ctx, guildID, userID)
			if err == nil && len(levelUps) > 0 {
				if err := b.NotificationRepository.MarkAllSeen(ctx, guildID, userID); err == nil {
					_ = b.UserRepository.AcknowledgeLevelUp(ctx, guildID, userID)
				}
			}
		}

		toNext := leveling.XPToNext(user.TotalXP)
		floor := leveling.XPForLevel(user.Level)
		ceil := leveling.XPForLevel(user.Level + 1)
		into := int(user.TotalXP - floor)
		span := int(ceil - floor)

		var badges []string
		for _, name := range []string{models.BadgeBronze, models.BadgeSilver, models.BadgeGold, models.BadgePlatinum, models.BadgeApex} {
			if user.Badges()[name] {
				badges = append(badges, badgeEmoji[name]+" "+titleCase(name))
			}
		}
		badgeLine := "None yet"
		if len(badges) > 0 {
			badgeLine = strings.Join(badges, "  ")
		}

		desc := fmt.Sprintf("**Level %d** · %s XP\n%s %s to next level",
			user.Level,
			utils.FormatXP(user.TotalXP),
			utils.ProgressBar(into, span),
			utils.FormatXP(toNext))

		if len(levelUps) > 0 {
			desc = fmt.Sprintf("🎉 **You reached level %d!**\n\n%s", levelUps[len(levelUps)-1].Level, desc)
		}

		embed := discord.Embed{
			Title:       fmt.Sprintf("Profile: %s", displayName(user, target.Username)),
			Description: desc,
			Color:       utils.InfoColor,
			Fields: []discord.EmbedField{
				{
					Name: "Activity",
					Value: fmt.Sprintf("💬 %s messages\n🏆 %s success messages\n🎙️ %s voice minutes",
						utils.FormatXP(user.MessagesSent),
						utils.FormatXP(user.SuccessMessagesSent),
						utils.FormatXP(user.VoiceMinutes)),
				},
				{
					Name:  "Badges",
					Value: badgeLine,
				},
			},
		}
		if avatar := target.EffectiveAvatarURL(); avatar != "" {
			embed.Thumbnail = &discord.EmbedResource{URL: avatar}
		}

		return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})
	}
}

func displayName(user *models.UserProgress, fallback string) string {
	if user.Username != "" {
		return user.Username
	}
	return fallback
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
