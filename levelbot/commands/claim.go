package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
	"github.com/guildxp/levelbot/levelbot/utils"
)

var Claim = discord.SlashCommandCreate{
	Name:        "claim",
	Description: "🎁 Claim the reward for a completed objective",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "objective",
			Description:  "The objective to claim",
			Required:     true,
			Autocomplete: true,
		},
	},
}

func ClaimHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		objectiveID := e.SlashCommandInteractionData().String("objective")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		msg, err := redeemObjective(ctx, b, e.GuildID().String(), e.User().ID.String(), objectiveID)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, msg)
		}
		return utils.EH.CreateSuccessEmbed(e, msg)
	}
}

// objectiveItems implements fuzzy.Source over catalog objectives.
type objectiveItems []*repositories.CatalogObjective

func (items objectiveItems) Len() int { return len(items) }

func (items objectiveItems) String(i int) string {
	return items[i].Objective.Title + " " + items[i].Objective.ObjectiveID
}

func ClaimAutocompleteHandler(b *levelbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		query := strings.TrimSpace(e.Data.String("objective"))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		objectives, err := b.QuestCatalog.ListObjectives(ctx, e.GuildID().String())
		if err != nil {
			return e.AutocompleteResult(nil)
		}

		items := make(objectiveItems, 0, len(objectives))
		for _, obj := range objectives {
			if obj.Objective.Active {
				items = append(items, obj)
			}
		}

		matched := items
		if query != "" {
			matched = matched[:0:0]
			for _, m := range fuzzy.FindFrom(query, items) {
				matched = append(matched, items[m.Index])
			}
		}

		choices := make([]discord.AutocompleteChoice, 0, min(len(matched), 25))
		for _, obj := range matched {
			if len(choices) == 25 {
				break
			}
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  fmt.Sprintf("[%s] %s (+%s XP)", obj.QuestType, obj.Objective.Title, utils.FormatXP(obj.Objective.XPReward)),
				Value: obj.Objective.ObjectiveID,
			})
		}
		return e.AutocompleteResult(choices)
	}
}
