package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/services"
	"github.com/guildxp/levelbot/levelbot/utils"
)

var BadgeSet = discord.SlashCommandCreate{
	Name:        "badge-set",
	Description: "🎖️ Manually lock or unlock a member's badge",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "The member to modify",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "badge",
			Description: "Which badge",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "Bronze", Value: models.BadgeBronze},
				{Name: "Silver", Value: models.BadgeSilver},
				{Name: "Gold", Value: models.BadgeGold},
				{Name: "Platinum", Value: models.BadgePlatinum},
				{Name: "Apex", Value: models.BadgeApex},
			},
		},
		discord.ApplicationCommandOptionBool{
			Name:        "unlocked",
			Description: "true to unlock, false to lock",
			Required:    true,
		},
	},
}

func BadgeSetHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target := data.User("user")
		badge := data.String("badge")
		unlocked := data.Bool("unlocked")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := b.BadgeService.SetBadge(ctx, e.GuildID().String(), target.ID.String(), badge, unlocked)
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("%s has no progression record yet", target.Username))
		case err != nil:
			return utils.EH.CreateErrorEmbed(e, "Failed to set the badge")
		}

		action := "unlocked for"
		if !unlocked {
			action = "locked for"
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("%s badge %s %s", titleCase(badge), action, target.Username))
	}
}
