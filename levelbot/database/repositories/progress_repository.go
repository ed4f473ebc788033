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

// ProgressRepository owns per-member, per-period objective counters. Every
// mutation is a single conditional statement so that concurrent activity,
// claims, and catalog reconciliation never lose increments to stale reads.
type ProgressRepository interface {
	// SeedObjectives inserts missing counter rows; existing rows are left
	// untouched.
	SeedObjectives(ctx context.Context, rows []*models.ObjectiveProgress) error
	GetObjectives(ctx context.Context, guildID, userID, questType, periodKey string) ([]*models.ObjectiveProgress, error)
	GetObjective(ctx context.Context, guildID, userID, questType, periodKey, objectiveID string) (*models.ObjectiveProgress, error)

	// IncrementCounters bumps the counted dimension of every open objective
	// in the period: the message counter always, the success counter only for
	// success events. Only the named objective ids are touched, so orphaned
	// rows stop counting the moment their objective leaves the catalog.
	IncrementCounters(ctx context.Context, guildID, userID, questType, periodKey string, objectiveIDs []string, isSuccess bool) error
	// DetectCompletions flips open objectives among the named ids whose
	// counter reached its target and returns their ids.
	DetectCompletions(ctx context.Context, guildID, userID, questType, periodKey string, objectiveIDs []string) ([]string, error)

	// TryClaim transitions completed-unclaimed to claimed. Returns the
	// claimed row, or nil when no row was in the claimable state.
	TryClaim(ctx context.Context, guildID, userID, questType, periodKey, objectiveID string) (*models.ObjectiveProgress, error)

	// SyncDefinition rewrites the cached definition fields of matching rows
	// and proportionally rescales their counters, in one atomic statement.
	// An empty onlyUser targets every member's rows for the period.
	SyncDefinition(ctx context.Context, guildID, questType, periodKey string, def *models.ObjectiveDefinition, onlyUser string) (int64, error)

	// ListUsers returns the members holding rows for the period.
	ListUsers(ctx context.Context, guildID, questType, periodKey string) ([]string, error)

	EnsurePeriodState(ctx context.Context, guildID, userID, questType, periodKey string) error
	GetPeriodState(ctx context.Context, guildID, userID, questType, periodKey string) (*models.QuestPeriodState, error)
	SetSeen(ctx context.Context, guildID, userID, questType, periodKey string, seen bool) error
}

type progressRepository struct {
	db *bun.DB
}

func NewProgressRepository(db *bun.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) SeedObjectives(ctx context.Context, rows []*models.ObjectiveProgress) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(&rows).
		On("CONFLICT (guild_id, user_id, quest_type, period_key, objective_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed objective progress: %w", err)
	}
	return nil
}

func (r *progressRepository) GetObjectives(ctx context.Context, guildID, userID, questType, periodKey string) ([]*models.ObjectiveProgress, error) {
	var rows []*models.ObjectiveProgress
	err := r.db.NewSelect().
		Model(&rows).
		Where("guild_id = ? AND user_id = ? AND quest_type = ? AND period_key = ?",
			guildID, userID, questType, periodKey).
		Order("ord ASC", "objective_id ASC").
		Scan(ctx)
	return rows, err
}

func (r *progressRepository) GetObjective(ctx context.Context, guildID, userID, questType, periodKey, objectiveID string) (*models.ObjectiveProgress, error) {
	row := new(models.ObjectiveProgress)
	err := r.db.NewSelect().
		Model(row).
		Where("guild_id = ? AND user_id = ? AND quest_type = ? AND period_key = ? AND objective_id = ?",
			guildID, userID, questType, periodKey, objectiveID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

func (r *progressRepository) IncrementCounters(ctx context.Context, guildID, userID, questType, periodKey string, objectiveIDs []string, isSuccess bool) error {
	if len(objectiveIDs) == 0 {
		return nil
	}
	now := time.Now()

	_, err := r.db.NewUpdate().
		Model((*models.ObjectiveProgress)(nil)).
		Set("current_messages = current_messages + 1").
		Set("updated_at = ?", now).
		Where("guild_id = ? AND user_id = ? AND quest_type = ? AND period_key = ?",
			guildID, userID, questType, periodKey).
		Where("objective_id IN (?)", bun.In(objectiveIDs)).
		Where("completed = FALSE AND message_target > 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment message counters: %w", err)
	}

	if !isSuccess {
		return nil
	}

	_, err = r.db.NewUpdate().
		Model((*models.ObjectiveProgress)(nil)).
		Set("current_success_messages = current_success_messages + 1").
		Set("updated_at = ?", now).
		Where("guild_id = ? AND user_id = ? AND quest_type = ? AND period_key = ?",
			guildID, userID, questType, periodKey).
		Where("objective_id IN (?)", bun.In(objectiveIDs)).
		Where("completed = FALSE AND success_message_target > 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment success counters: %w", err)
	}
	return nil
}

func (r *progressRepository) DetectCompletions(ctx context.Context, guildID, userID, questType, periodKey string, objectiveIDs []string) ([]string, error) {
	if len(objectiveIDs) == 0 {
		return nil, nil
	}
	var completed []string
	_, err := r.db.NewUpdate().
		Model((*models.ObjectiveProgress)(nil)).
		Set("completed = TRUE").
		Set("completed_at = ?", time.Now()).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ? AND quest_type = ? AND period_key = ?",
			guildID, userID, questType, periodKey).
		Where("objective_id IN (?)", bun.In(objectiveIDs)).
		Where("completed = FALSE").
		Where("(message_target > 0 AND current_messages >= message_target) OR (success_message_target > 0 AND current_success_messages >= success_message_target)").
		Returning("objective_id").
		Exec(ctx, &completed)
	if err != nil {
		return nil, fmt.Errorf("failed to detect completions: %w", err)
	}
	return completed, nil
}

func (r *progressRepository) TryClaim(ctx context.Context, guildID, userID, questType, periodKey, objectiveID string) (*models.ObjectiveProgress, error) {
	now := time.Now()
	row := new(models.ObjectiveProgress)

	res, err := r.db.NewUpdate().
		Model(row).
		Set("claimed = TRUE").
		Set("claimed_at = ?", now).
		Set("updated_at = ?", now).
		Where("guild_id = ? AND user_id = ? AND quest_type = ? AND period_key = ? AND objective_id = ?",
			guildID, userID, questType, periodKey, objectiveID).
		Where("completed = TRUE AND claimed = FALSE").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to claim objective: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Concurrent duplicate claims land here: exactly one caller wins.
		return nil, nil
	}
	return row, nil
}

func (r *progressRepository) SyncDefinition(ctx context.Context, guildID, questType, periodKey string, def *models.ObjectiveDefinition, onlyUser string) (int64, error) {
	// All SET expressions read the pre-update row, so the rescale CASE can
	// reference the old targets while the same statement overwrites them.
	// Proportional rescale: floor(current * newTarget / oldTarget), clamped;
	// a dimension whose old target was zero starts over at zero.
	q := r.db.NewUpdate().
		Model((*models.ObjectiveProgress)(nil)).
		Set(`current_messages = CASE
			WHEN ? > 0 AND message_target > 0 THEN LEAST(current_messages * ? / message_target, ?)
			WHEN ? > 0 THEN 0
			ELSE current_messages END`,
			def.MessageTarget, def.MessageTarget, def.MessageTarget, def.MessageTarget).
		Set(`current_success_messages = CASE
			WHEN ? > 0 AND success_message_target > 0 THEN LEAST(current_success_messages * ? / success_message_target, ?)
			WHEN ? > 0 THEN 0
			ELSE current_success_messages END`,
			def.SuccessMessageTarget, def.SuccessMessageTarget, def.SuccessMessageTarget, def.SuccessMessageTarget).
		Set("title = ?", def.Title).
		Set("description = ?", def.Description).
		Set("message_target = ?", def.MessageTarget).
		Set("success_message_target = ?", def.SuccessMessageTarget).
		Set("xp_reward = ?", def.XPReward).
		Set("ord = ?", def.Ord).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND quest_type = ? AND period_key = ? AND objective_id = ?",
			guildID, questType, periodKey, def.ObjectiveID).
		Where("(title <> ? OR description <> ? OR message_target <> ? OR success_message_target <> ? OR xp_reward <> ? OR ord <> ?)",
			def.Title, def.Description, def.MessageTarget, def.SuccessMessageTarget, def.XPReward, def.Ord)

	if onlyUser != "" {
		q = q.Where("user_id = ?", onlyUser)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sync objective definition: %w", err)
	}
	return res.RowsAffected()
}

func (r *progressRepository) ListUsers(ctx context.Context, guildID, questType, periodKey string) ([]string, error) {
	var users []string
	err := r.db.NewSelect().
		Model((*models.ObjectiveProgress)(nil)).
		ColumnExpr("DISTINCT user_id").
		Where("guild_id = ? AND quest_type = ? AND period_key = ?", guildID, questType, periodKey).
		Scan(ctx, &users)
	return users, err
}

func (r *progressRepository) EnsurePeriodState(ctx context.Context, guildID, userID, questType, periodKey string) error {
	now := time.Now()
	state := &models.QuestPeriodState{
		GuildID:   guildID,
		UserID:    userID,
		QuestType: questType,
		PeriodKey: periodKey,
		Seen:      true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.NewInsert().
		Model(state).
		On("CONFLICT (guild_id, user_id, quest_type, period_key) DO NOTHING").
		Exec(ctx)
	return err
}

func (r *progressRepository) GetPeriodState(ctx context.Context, guildID, userID, questType, periodKey string) (*models.QuestPeriodState, error) {
	state := new(models.QuestPeriodState)
	err := r.db.NewSelect().
		Model(state).
		Where("guild_id = ? AND user_id = ? AND quest_type = ? AND period_key = ?",
			guildID, userID, questType, periodKey).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return state, nil
}

func (r *progressRepository) SetSeen(ctx context.Context, guildID, userID, questType, periodKey string, seen bool) error {
	_, err := r.db.NewUpdate().
		Model((*models.QuestPeriodState)(nil)).
		Set("seen = ?", seen).
		Set("updated_at = ?", time.Now()).
		Where("guild_id = ? AND user_id = ? AND quest_type = ? AND period_key = ?",
			guildID, userID, questType, periodKey).
		Exec(ctx)
	return err
}
