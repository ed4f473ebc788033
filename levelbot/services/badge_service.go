package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
)

// Badge level thresholds. Apex is role-gated, not level-gated.
const (
	bronzeLevel   = 1
	silverLevel   = 5
	goldLevel     = 10
	platinumLevel = 20
)

// BadgeService evaluates badge-unlock rules against a member's level and role
// snapshot. Reconcile only ever unlocks: a badge, once earned, does not
// silently disappear when configuration changes. Locking is reserved for the
// explicit administrative path.
type BadgeService struct {
	users      repositories.UserRepository
	apexRoleID string
}

func NewBadgeService(users repositories.UserRepository, apexRoleID string) *BadgeService {
	return &BadgeService{
		users:      users,
		apexRoleID: apexRoleID,
	}
}

// Reconcile unlocks any badges the member now qualifies for and returns the
// ones newly unlocked by this call. Calling it twice without a level or role
// change is a no-op.
func (s *BadgeService) Reconcile(ctx context.Context, guildID, userID string) ([]string, error) {
	user, err := s.users.Get(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for badge reconcile: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	var newBadges []string
	unlock := func(badge string, held bool, qualifies bool) {
		if qualifies && !held {
			newBadges = append(newBadges, badge)
		}
	}

	unlock(models.BadgeBronze, user.BadgeBronze, user.Level >= bronzeLevel)
	unlock(models.BadgeSilver, user.BadgeSilver, user.Level >= silverLevel)
	unlock(models.BadgeGold, user.BadgeGold, user.Level >= goldLevel)
	unlock(models.BadgePlatinum, user.BadgePlatinum, user.Level >= platinumLevel)
	unlock(models.BadgeApex, user.BadgeApex, s.apexRoleID != "" && user.HasRole(s.apexRoleID))

	if len(newBadges) == 0 {
		return nil, nil
	}

	if err := s.users.UnlockBadges(ctx, guildID, userID, newBadges); err != nil {
		return nil, fmt.Errorf("failed to unlock badges: %w", err)
	}

	slog.Info("Badges unlocked",
		slog.String("guild_id", guildID),
		slog.String("user_id", userID),
		slog.Any("badges", newBadges))

	return newBadges, nil
}

// SetBadge is the administrative override and the only path that may lock a
// badge.
func (s *BadgeService) SetBadge(ctx context.Context, guildID, userID, badge string, unlocked bool) error {
	user, err := s.users.Get(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.users.SetBadge(ctx, guildID, userID, badge, unlocked); err != nil {
		return fmt.Errorf("failed to set badge: %w", err)
	}

	slog.Info("Badge set administratively",
		slog.String("guild_id", guildID),
		slog.String("user_id", userID),
		slog.String("badge", badge),
		slog.Bool("unlocked", unlocked))
	return nil
}
