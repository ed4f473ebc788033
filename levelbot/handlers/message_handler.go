package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/services"
)

// MessageHandler feeds guild messages into the progression pipeline. A
// message in one of the configured success channels counts as a success
// event for XP counters and quest objectives alike.
func MessageHandler(b *levelbot.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.MessageCreate) {
		if e.Message.Author.Bot || e.GuildID == nil {
			return
		}

		guildID := e.GuildID.String()
		userID := e.Message.Author.ID.String()

		isSuccess := false
		for _, ch := range b.Cfg.XP.SuccessChannels {
			if ch == e.ChannelID {
				isSuccess = true
				break
			}
		}

		identity := services.MemberIdentity{
			Username:  e.Message.Author.Username,
			AvatarURL: e.Message.Author.EffectiveAvatarURL(),
		}
		if e.Message.Member != nil {
			roles := make([]string, 0, len(e.Message.Member.RoleIDs))
			for _, id := range e.Message.Member.RoleIDs {
				roles = append(roles, id.String())
			}
			identity.Roles = roles
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		res, err := b.ActivityService.TrackMessage(ctx, guildID, userID, identity, isSuccess)
		if err != nil {
			slog.Error("Failed to track message",
				slog.String("guild_id", guildID),
				slog.String("user_id", userID),
				slog.Any("error", err))
			return
		}

		for _, c := range res.Completions {
			slog.Info("Objective completed",
				slog.String("guild_id", guildID),
				slog.String("user_id", userID),
				slog.String("quest_type", c.QuestType),
				slog.String("objective_id", c.ObjectiveID))
		}
	})
}
