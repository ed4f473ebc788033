package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
	"github.com/guildxp/levelbot/levelbot/services"
	"github.com/guildxp/levelbot/levelbot/utils"
)

var QuestEdit = discord.SlashCommandCreate{
	Name:        "quest-edit",
	Description: "🛠️ Edit a quest objective (targets, reward, wording)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "objective",
			Description:  "The objective to edit",
			Required:     true,
			Autocomplete: true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "title",
			Description: "New title",
			Required:    false,
		},
		discord.ApplicationCommandOptionString{
			Name:        "description",
			Description: "New description",
			Required:    false,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "message_target",
			Description: "New message target (0 disables this dimension)",
			Required:    false,
			MinValue:    &[]int{0}[0],
		},
		discord.ApplicationCommandOptionInt{
			Name:        "success_target",
			Description: "New success-message target (0 disables this dimension)",
			Required:    false,
			MinValue:    &[]int{0}[0],
		},
		discord.ApplicationCommandOptionInt{
			Name:        "xp_reward",
			Description: "New XP reward",
			Required:    false,
			MinValue:    &[]int{0}[0],
		},
		discord.ApplicationCommandOptionBool{
			Name:        "active",
			Description: "Whether the objective is live",
			Required:    false,
		},
	},
}

func QuestEditHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		objectiveID := data.String("objective")

		var patch repositories.ObjectivePatch
		changes := 0
		if v, ok := data.OptString("title"); ok {
			patch.Title = &v
			changes++
		}
		if v, ok := data.OptString("description"); ok {
			patch.Description = &v
			changes++
		}
		if v, ok := data.OptInt("message_target"); ok {
			patch.MessageTarget = &v
			changes++
		}
		if v, ok := data.OptInt("success_target"); ok {
			patch.SuccessMessageTarget = &v
			changes++
		}
		if v, ok := data.OptInt("xp_reward"); ok {
			reward := int64(v)
			patch.XPReward = &reward
			changes++
		}
		if v, ok := data.OptBool("active"); ok {
			patch.Active = &v
			changes++
		}
		if changes == 0 {
			return utils.EH.CreateErrorEmbed(e, "Nothing to change: pass at least one field")
		}

		// Reconciliation can touch every outstanding record in the guild.
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		err := b.QuestCatalog.UpdateObjective(ctx, e.GuildID().String(), objectiveID, patch)
		switch {
		case errors.Is(err, services.ErrInvalidObjective):
			return utils.EH.CreateErrorEmbed(e, "An objective counts messages or success messages, not both")
		case errors.Is(err, services.ErrObjectiveNotFound):
			return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("No objective `%s` in this guild", objectiveID))
		case err != nil:
			return utils.EH.CreateErrorEmbed(e, "Failed to update the objective")
		}

		return utils.EH.CreateSuccessEmbed(e,
			fmt.Sprintf("Updated `%s`. Outstanding progress was rescaled to the new definition.", objectiveID))
	}
}
