package commands

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/utils"
)

const membersPerPage = 10

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "🏆 Top members by XP",
}

func LeaderboardHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		guildID := e.GuildID().String()

		total, err := b.UserRepository.CountMembers(ctx, guildID)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load the leaderboard")
		}
		if total == 0 {
			return utils.EH.CreateInfoEmbed(e, "Nobody has earned XP yet. Be the first!")
		}

		// Fetch once, page in memory.
		members, err := b.UserRepository.GetTop(ctx, guildID, total, 0)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load the leaderboard")
		}

		totalPages := int(math.Ceil(float64(len(members)) / float64(membersPerPage)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * membersPerPage
				end := min(start+membersPerPage, len(members))

				var desc string
				for i, m := range members[start:end] {
					rank := start + i + 1
					marker := fmt.Sprintf("`#%d`", rank)
					switch rank {
					case 1:
						marker = "🥇"
					case 2:
						marker = "🥈"
					case 3:
						marker = "🥉"
					}

					name := m.Username
					if name == "" {
						name = m.UserID
					}
					desc += fmt.Sprintf("%s **%s** · Level %d · %s XP\n",
						marker, name, m.Level, utils.FormatXP(m.TotalXP))
				}

				embed.SetTitle("🏆 Leaderboard").
					SetDescription(desc).
					SetColor(utils.InfoColor).
					SetFooter(fmt.Sprintf("Page %d/%d · %d members", page+1, totalPages, total), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
