package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/services"
	"github.com/guildxp/levelbot/levelbot/utils"
)

var Quests = discord.SlashCommandCreate{
	Name:        "quests",
	Description: "📜 View your daily and weekly quests",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "type",
			Description: "Which quest board to show",
			Required:    false,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "Daily", Value: models.QuestTypeDaily},
				{Name: "Weekly", Value: models.QuestTypeWeekly},
			},
		},
	},
}

func QuestsHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		questType := e.SlashCommandInteractionData().String("type")
		if questType == "" {
			questType = models.QuestTypeDaily
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		embed, components, err := buildQuestBoard(ctx, b, e.GuildID().String(), e.User().ID.String(), questType)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load quests")
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds:     []discord.Embed{embed},
			Components: components,
		})
	}
}

// QuestsTabHandler re-renders the board when a member switches tabs.
func QuestsTabHandler(b *levelbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		questType := e.Vars["type"]

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		embed, components, err := buildQuestBoard(ctx, b, e.GuildID().String(), e.User().ID.String(), questType)
		if err != nil {
			return utils.EH.CreateEphemeralError(e, "Failed to load quests")
		}

		return e.UpdateMessage(discord.MessageUpdate{
			Embeds:     &[]discord.Embed{embed},
			Components: &components,
		})
	}
}

// QuestClaimHandler redeems a claim button press.
func QuestClaimHandler(b *levelbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		objectiveID := e.Vars["objective_id"]
		guildID := e.GuildID().String()
		userID := e.User().ID.String()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		msg, err := redeemObjective(ctx, b, guildID, userID, objectiveID)
		if err != nil {
			return utils.EH.CreateEphemeralError(e, msg)
		}
		return utils.EH.CreateEphemeralSuccess(e, msg)
	}
}

// redeemObjective claims the objective and pays its XP, translating the
// claim-protocol errors into member-facing text.
func redeemObjective(ctx context.Context, b *levelbot.Bot, guildID, userID, objectiveID string) (string, error) {
	xp, err := b.QuestProgress.ClaimObjective(ctx, guildID, userID, objectiveID)
	switch {
	case errors.Is(err, services.ErrObjectiveNotFound):
		return "That objective does not exist.", err
	case errors.Is(err, services.ErrNotCompleted):
		return "That objective is not completed yet.", err
	case errors.Is(err, services.ErrAlreadyClaimed):
		return "You already claimed that reward.", err
	case err != nil:
		return "Failed to claim the reward.", err
	}

	res, err := b.XPService.AwardQuestReward(ctx, guildID, userID, xp)
	if err != nil {
		// The claim is durable; the XP grant failed and needs attention.
		slog.Error("Claim succeeded but reward payout failed",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.String("objective_id", objectiveID),
			slog.Int64("xp", xp),
			slog.Any("error", err))
		return "Reward claimed, but crediting XP failed. Contact a moderator.", err
	}

	msg := fmt.Sprintf("Claimed **+%s XP**!", utils.FormatXP(xp))
	if res.LeveledUp {
		msg += fmt.Sprintf(" You reached **level %d**! 🎉", res.NewLevel)
	}
	return msg, nil
}

func buildQuestBoard(ctx context.Context, b *levelbot.Bot, guildID, userID, questType string) (discord.Embed, []discord.ContainerComponent, error) {
	views, err := b.QuestProgress.GetProgress(ctx, guildID, userID)
	if err != nil {
		return discord.Embed{}, nil, err
	}

	var view *services.QuestView
	for _, v := range views {
		if v.QuestType == questType {
			view = v
		}
	}
	if view == nil {
		return discord.Embed{}, nil, fmt.Errorf("no %s quest board", questType)
	}

	// Viewing a board acknowledges its completion indicator, so the active
	// tab never renders its own unread marker.
	unread := boardIndicators(views, questType)
	if err := b.QuestProgress.MarkSeen(ctx, guildID, userID, questType); err != nil {
		slog.Error("Failed to mark quests seen",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.String("quest_type", questType),
			slog.Any("error", err))
	}

	title := "📅 Daily Quests"
	if questType == models.QuestTypeWeekly {
		title = "🗓️ Weekly Quests"
	}

	var desc string
	var claimButtons []discord.InteractiveComponent
	for _, obj := range view.Objectives {
		status := "🔸"
		switch {
		case obj.Claimed:
			status = "✅"
		case obj.Completed:
			status = "🎁"
		}

		desc += fmt.Sprintf("%s **%s** · +%s XP\n%s %d/%d · %s\n\n",
			status, obj.Title, utils.FormatXP(obj.XPReward),
			utils.ProgressBar(obj.Current, obj.Target), obj.Current, obj.Target,
			obj.Description)

		if obj.Completed && !obj.Claimed && len(claimButtons) < 5 {
			claimButtons = append(claimButtons,
				discord.NewSuccessButton("Claim: "+obj.Title, "/quest-claim/"+obj.ObjectiveID))
		}
	}
	if desc == "" {
		desc = "No objectives available right now."
	}
	desc += fmt.Sprintf("*Resets each %s period (%s)*", questType, view.PeriodKey)

	components := []discord.ContainerComponent{
		discord.ActionRowComponent{
			tabButton("Daily", models.QuestTypeDaily, questType, unread[models.QuestTypeDaily]),
			tabButton("Weekly", models.QuestTypeWeekly, questType, unread[models.QuestTypeWeekly]),
		},
	}
	if len(claimButtons) > 0 {
		components = append(components, discord.ActionRowComponent(claimButtons))
	}

	return discord.Embed{
		Title:       title,
		Description: desc,
		Color:       utils.InfoColor,
	}, components, nil
}

// boardIndicators maps each cadence to its unread marker. The active tab is
// always false: rendering it acknowledges the indicator.
func boardIndicators(views []*services.QuestView, activeType string) map[string]bool {
	unread := make(map[string]bool, len(views))
	for _, v := range views {
		unread[v.QuestType] = !v.Seen && v.QuestType != activeType
	}
	return unread
}

func tabButton(label, questType, activeType string, unread bool) discord.InteractiveComponent {
	if unread {
		label += " ●"
	}
	btn := discord.NewSecondaryButton(label, "/quests-tab/"+questType)
	if questType == activeType {
		btn = btn.WithDisabled(true)
	}
	return btn
}
