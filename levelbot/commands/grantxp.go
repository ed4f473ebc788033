package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/utils"
)

var GrantXP = discord.SlashCommandCreate{
	Name:        "grant-xp",
	Description: "⚡ Grant bonus XP to a member",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "The member to credit",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "XP to grant",
			Required:    true,
			MinValue:    &[]int{1}[0],
		},
	},
}

func GrantXPHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target := data.User("user")
		amount := int64(data.Int("amount"))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		res, err := b.XPService.AwardQuestReward(ctx, e.GuildID().String(), target.ID.String(), amount)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to grant XP")
		}

		msg := fmt.Sprintf("Granted **+%s XP** to %s (total %s)",
			utils.FormatXP(amount), target.Username, utils.FormatXP(res.TotalXP))
		if res.LeveledUp {
			msg += fmt.Sprintf(", reaching **level %d**!", res.NewLevel)
		}
		return utils.EH.CreateSuccessEmbed(e, msg)
	}
}
