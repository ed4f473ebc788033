package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/guildxp/levelbot/levelbot/database/models"
)

type UserRepository interface {
	// GetOrCreate returns the member's progression row, lazily creating a
	// zeroed one on first sight. Absence is never an error here.
	GetOrCreate(ctx context.Context, guildID, userID string) (*models.UserProgress, error)
	Get(ctx context.Context, guildID, userID string) (*models.UserProgress, error)

	// ApplyActivity atomically adds xpDelta and bumps the message counters,
	// returning the new XP total. The row must already exist.
	ApplyActivity(ctx context.Context, guildID, userID string, xpDelta int64, isSuccess bool) (int64, error)
	// ApplyReward adds XP without touching activity counters.
	ApplyReward(ctx context.Context, guildID, userID string, xp int64) (int64, error)
	// ApplyVoice adds voice minutes plus any accompanying XP.
	ApplyVoice(ctx context.Context, guildID, userID string, minutes, xp int64) (int64, error)

	// PromoteLevel raises the cached level to newLevel and flags the pending
	// level-up. The guard keeps level monotonic under concurrent awards;
	// returns whether this call applied the promotion.
	PromoteLevel(ctx context.Context, guildID, userID string, newLevel int) (bool, error)
	AcknowledgeLevelUp(ctx context.Context, guildID, userID string) error

	// UnlockBadges sets the named badge flags true. It never locks.
	UnlockBadges(ctx context.Context, guildID, userID string, badges []string) error
	// SetBadge is the administrative path and may lock or unlock.
	SetBadge(ctx context.Context, guildID, userID, badge string, unlocked bool) error

	UpdateIdentity(ctx context.Context, guildID, userID, username, avatarURL string) error
	UpdateRoles(ctx context.Context, guildID, userID string, roles []string) error

	GetTop(ctx context.Context, guildID string, limit, offset int) ([]*models.UserProgress, error)
	CountMembers(ctx context.Context, guildID string) (int, error)
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

var badgeColumns = map[string]string{
	models.BadgeBronze:   "badge_bronze",
	models.BadgeSilver:   "badge_silver",
	models.BadgeGold:     "badge_gold",
	models.BadgePlatinum: "badge_platinum",
	models.BadgeApex:     "badge_apex",
}

func (r *userRepository) GetOrCreate(ctx context.Context, guildID, userID string) (*models.UserProgress, error) {
	now := time.Now()
	fresh := &models.UserProgress{
		GuildID:   guildID,
		UserID:    userID,
		Roles:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.NewInsert().
		Model(fresh).
		On("CONFLICT (guild_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create progression row: %w", err)
	}

	user, err := r.Get(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("progression row vanished after create: %s/%s", guildID, userID)
	}
	return user, nil
}

func (r *userRepository) Get(ctx context.Context, guildID, userID string) (*models.UserProgress, error) {
	user := new(models.UserProgress)
	err := r.db.NewSelect().
		Model(user).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) ApplyActivity(ctx context.Context, guildID, userID string, xpDelta int64, isSuccess bool) (int64, error) {
	successInc := 0
	if isSuccess {
		successInc = 1
	}

	var newTotal int64
	_, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("total_xp = total_xp + ?", xpDelta).
		Set("messages_sent = messages_sent + 1").
		Set("success_messages_sent = success_messages_sent + ?", successInc).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Returning("total_xp").
		Exec(ctx, &newTotal)
	if err != nil {
		return 0, fmt.Errorf("failed to apply activity: %w", err)
	}
	return newTotal, nil
}

func (r *userRepository) ApplyReward(ctx context.Context, guildID, userID string, xp int64) (int64, error) {
	var newTotal int64
	_, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("total_xp = total_xp + ?", xp).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Returning("total_xp").
		Exec(ctx, &newTotal)
	if err != nil {
		return 0, fmt.Errorf("failed to apply reward: %w", err)
	}
	return newTotal, nil
}

func (r *userRepository) ApplyVoice(ctx context.Context, guildID, userID string, minutes, xp int64) (int64, error) {
	var newTotal int64
	_, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("total_xp = total_xp + ?", xp).
		Set("voice_minutes = voice_minutes + ?", minutes).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Returning("total_xp").
		Exec(ctx, &newTotal)
	if err != nil {
		return 0, fmt.Errorf("failed to apply voice activity: %w", err)
	}
	return newTotal, nil
}

func (r *userRepository) PromoteLevel(ctx context.Context, guildID, userID string, newLevel int) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("level = ?", newLevel).
		Set("level_up_pending = TRUE").
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ? AND level < ?", guildID, userID, newLevel).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to promote level: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *userRepository) AcknowledgeLevelUp(ctx context.Context, guildID, userID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("level_up_pending = FALSE").
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Exec(ctx)
	return err
}

func (r *userRepository) UnlockBadges(ctx context.Context, guildID, userID string, badges []string) error {
	if len(badges) == 0 {
		return nil
	}

	q := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ?", guildID, userID)

	for _, badge := range badges {
		col, ok := badgeColumns[badge]
		if !ok {
			return fmt.Errorf("unknown badge: %s", badge)
		}
		q = q.Set(col + " = TRUE")
	}

	_, err := q.Exec(ctx)
	return err
}

func (r *userRepository) SetBadge(ctx context.Context, guildID, userID, badge string, unlocked bool) error {
	col, ok := badgeColumns[badge]
	if !ok {
		return fmt.Errorf("unknown badge: %s", badge)
	}

	_, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set(col+" = ?", unlocked).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Exec(ctx)
	return err
}

func (r *userRepository) UpdateIdentity(ctx context.Context, guildID, userID, username, avatarURL string) error {
	_, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("username = ?", username).
		Set("avatar_url = ?", avatarURL).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Exec(ctx)
	return err
}

func (r *userRepository) UpdateRoles(ctx context.Context, guildID, userID string, roles []string) error {
	if roles == nil {
		roles = []string{}
	}
	_, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("roles = ?", roles).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Exec(ctx)
	return err
}

func (r *userRepository) GetTop(ctx context.Context, guildID string, limit, offset int) ([]*models.UserProgress, error) {
	var users []*models.UserProgress
	err := r.db.NewSelect().
		Model(&users).
		Where("guild_id = ?", guildID).
		Order("total_xp DESC", "user_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	return users, err
}

func (r *userRepository) CountMembers(ctx context.Context, guildID string) (int, error) {
	return r.db.NewSelect().
		Model((*models.UserProgress)(nil)).
		Where("guild_id = ?", guildID).
		Count(ctx)
}
