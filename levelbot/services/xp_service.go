package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
	"github.com/guildxp/levelbot/levelbot/leveling"
)

// XPService owns the award-XP transaction: it moves the XP total, recomputes
// the cached level from the new total, records level-up transitions, and keeps
// badge state consistent immediately after every award.
type XPService struct {
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	badges        *BadgeService
}

func NewXPService(users repositories.UserRepository, notifications repositories.NotificationRepository, badges *BadgeService) *XPService {
	return &XPService{
		users:         users,
		notifications: notifications,
		badges:        badges,
	}
}

// AwardResult reports what a single XP application did.
type AwardResult struct {
	TotalXP   int64
	LeveledUp bool
	NewLevel  int
	NewBadges []string
}

// AwardActivity applies an activity event: xpDelta may be zero (a plain
// message with no XP attached still counts toward activity), messagesSent
// always increments, successMessagesSent only for success events. A missing
// member is created with zeroed state first; absence is not an error.
func (s *XPService) AwardActivity(ctx context.Context, guildID, userID string, xpDelta int64, isSuccess bool) (*AwardResult, error) {
	if _, err := s.users.GetOrCreate(ctx, guildID, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	newTotal, err := s.users.ApplyActivity(ctx, guildID, userID, xpDelta, isSuccess)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, guildID, userID, newTotal, xpDelta)
}

// AwardQuestReward applies claimed quest XP. Same level and badge side
// effects as AwardActivity, but a claimed reward is not a new message, so
// activity counters stay put.
func (s *XPService) AwardQuestReward(ctx context.Context, guildID, userID string, xp int64) (*AwardResult, error) {
	if _, err := s.users.GetOrCreate(ctx, guildID, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	newTotal, err := s.users.ApplyReward(ctx, guildID, userID, xp)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, guildID, userID, newTotal, xp)
}

// AwardVoice credits accumulated voice minutes plus their XP.
func (s *XPService) AwardVoice(ctx context.Context, guildID, userID string, minutes, xp int64) (*AwardResult, error) {
	if _, err := s.users.GetOrCreate(ctx, guildID, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	newTotal, err := s.users.ApplyVoice(ctx, guildID, userID, minutes, xp)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, guildID, userID, newTotal, xp)
}

// settle recomputes the level from the post-award total and runs the level-up
// and badge transitions. The previous level is derived from this award's own
// window (newTotal - delta), so concurrent awards each account for exactly
// the transition they caused.
func (s *XPService) settle(ctx context.Context, guildID, userID string, newTotal, delta int64) (*AwardResult, error) {
	result := &AwardResult{TotalXP: newTotal}

	oldLevel := leveling.LevelForXP(newTotal - delta)
	newLevel := leveling.LevelForXP(newTotal)

	if newLevel > oldLevel {
		promoted, err := s.users.PromoteLevel(ctx, guildID, userID, newLevel)
		if err != nil {
			return nil, err
		}

		result.LeveledUp = true
		result.NewLevel = newLevel

		if err := s.notifications.Append(ctx, &models.LevelNotification{
			GuildID: guildID,
			UserID:  userID,
			Level:   newLevel,
			XP:      newTotal,
		}); err != nil {
			// The level itself is already durable; a lost notification only
			// costs the unread marker.
			slog.Error("Failed to append level notification",
				slog.String("guild_id", guildID),
				slog.String("user_id", userID),
				slog.Int("level", newLevel),
				slog.Any("error", err))
		}

		slog.Info("Member leveled up",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Int("level", newLevel),
			slog.Int64("total_xp", newTotal),
			slog.Bool("promoted_here", promoted))
	}

	newBadges, err := s.badges.Reconcile(ctx, guildID, userID)
	if err != nil {
		slog.Error("Badge reconciliation failed after award",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Any("error", err))
	} else {
		result.NewBadges = newBadges
	}

	return result, nil
}
