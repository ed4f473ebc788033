package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"

	"github.com/guildxp/levelbot/levelbot"
)

// VoiceTracker accumulates time spent in voice channels and converts whole
// minutes to XP when the member leaves. Partial minutes are dropped; a
// restart loses in-flight sessions, which is acceptable for a perk counter.
type VoiceTracker struct {
	bot *levelbot.Bot

	mu       sync.Mutex
	sessions map[string]time.Time // guild|user -> joined at
}

func NewVoiceTracker(b *levelbot.Bot) *VoiceTracker {
	return &VoiceTracker{
		bot:      b,
		sessions: make(map[string]time.Time),
	}
}

func sessionKey(guildID, userID string) string {
	return guildID + "|" + userID
}

// Listener returns the gateway listener tracking voice joins and leaves.
func (v *VoiceTracker) Listener() bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildVoiceStateUpdate) {
		if e.Member.User.Bot {
			return
		}

		guildID := e.VoiceState.GuildID.String()
		userID := e.VoiceState.UserID.String()
		key := sessionKey(guildID, userID)

		if e.VoiceState.ChannelID != nil {
			v.mu.Lock()
			if _, ok := v.sessions[key]; !ok {
				v.sessions[key] = time.Now()
			}
			v.mu.Unlock()
			return
		}

		v.mu.Lock()
		joined, ok := v.sessions[key]
		delete(v.sessions, key)
		v.mu.Unlock()
		if !ok {
			return
		}

		minutes := int64(time.Since(joined) / time.Minute)
		if minutes <= 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		xp := minutes * v.bot.Cfg.XP.PerVoiceMinute
		res, err := v.bot.XPService.AwardVoice(ctx, guildID, userID, minutes, xp)
		if err != nil {
			slog.Error("Failed to credit voice session",
				slog.String("guild_id", guildID),
				slog.String("user_id", userID),
				slog.Int64("minutes", minutes),
				slog.Any("error", err))
			return
		}

		slog.Info("Voice session credited",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Int64("minutes", minutes),
			slog.Int64("xp", xp),
			slog.Bool("leveled_up", res.LeveledUp))
	})
}
