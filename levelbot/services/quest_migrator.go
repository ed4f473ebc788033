package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
)

const reconcileConcurrency = 8

// QuestMigrator reconciles stored progress against the current catalog:
// objectives added to the catalog get fresh zeroed rows, and rows whose
// cached definition drifted get their cached fields overwritten with the
// counters rescaled proportionally, so raising a target from 10 to 20 halves
// a member's fractional completion instead of wiping it or auto-completing
// it. Objectives removed from the catalog are left orphaned; the projection
// simply stops surfacing them.
//
// It reads definitions straight from the repository, never the catalog cache,
// so an edit-triggered reconcile always sees its own write.
type QuestMigrator struct {
	quests   repositories.QuestRepository
	progress repositories.ProgressRepository
	loc      *time.Location
	now      func() time.Time
}

func NewQuestMigrator(quests repositories.QuestRepository, progress repositories.ProgressRepository, loc *time.Location) *QuestMigrator {
	return &QuestMigrator{
		quests:   quests,
		progress: progress,
		loc:      loc,
		now:      time.Now,
	}
}

// newProgressRows builds zeroed counter rows cached from the given catalog
// objectives.
func newProgressRows(guildID, userID, questType, periodKey string, objectives []*models.ObjectiveDefinition) []*models.ObjectiveProgress {
	now := time.Now()
	rows := make([]*models.ObjectiveProgress, 0, len(objectives))
	for _, obj := range objectives {
		if !obj.Active {
			continue
		}
		rows = append(rows, &models.ObjectiveProgress{
			GuildID:              guildID,
			UserID:               userID,
			QuestType:            questType,
			PeriodKey:            periodKey,
			ObjectiveID:          obj.ObjectiveID,
			Title:                obj.Title,
			Description:          obj.Description,
			MessageTarget:        obj.MessageTarget,
			SuccessMessageTarget: obj.SuccessMessageTarget,
			XPReward:             obj.XPReward,
			Ord:                  obj.Ord,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	}
	return rows
}

// ReconcileUser brings one member's current-period records in line with the
// catalog. Safe to re-run; every step is an independent atomic statement.
func (m *QuestMigrator) ReconcileUser(ctx context.Context, guildID, userID string) error {
	for _, questType := range models.QuestTypes {
		periodKey := PeriodKey(questType, m.now(), m.loc)
		if err := m.reconcilePeriod(ctx, guildID, userID, questType, periodKey); err != nil {
			return err
		}
	}
	return nil
}

func (m *QuestMigrator) reconcilePeriod(ctx context.Context, guildID, userID, questType, periodKey string) error {
	def, err := m.quests.GetDefinition(ctx, guildID, questType)
	if err != nil {
		return fmt.Errorf("failed to load %s catalog: %w", questType, err)
	}
	if def == nil {
		return nil
	}

	// Catalog objectives missing from the record get fresh open rows.
	if err := m.progress.SeedObjectives(ctx, newProgressRows(guildID, userID, questType, periodKey, def.Objectives)); err != nil {
		return err
	}

	// Drifted cached definitions get overwritten and rescaled.
	for _, obj := range def.Objectives {
		if !obj.Active {
			continue
		}
		if _, err := m.progress.SyncDefinition(ctx, guildID, questType, periodKey, obj, userID); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile sweeps every outstanding current-period record in a guild. One
// record's failure never aborts the rest: each member is reconciled
// independently, failures are logged and skipped, and re-running converges.
// Safe to run concurrently with live recordActivity/claim traffic.
func (m *QuestMigrator) Reconcile(ctx context.Context, guildID string) error {
	start := time.Now()
	var reconciled, failed atomic.Int64

	for _, questType := range models.QuestTypes {
		periodKey := PeriodKey(questType, m.now(), m.loc)

		users, err := m.progress.ListUsers(ctx, guildID, questType, periodKey)
		if err != nil {
			return fmt.Errorf("failed to list %s records: %w", questType, err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(reconcileConcurrency)

		for _, userID := range users {
			userID := userID
			g.Go(func() error {
				if err := m.reconcilePeriod(gctx, guildID, userID, questType, periodKey); err != nil {
					failed.Add(1)
					slog.Error("Failed to reconcile progress record",
						slog.String("guild_id", guildID),
						slog.String("user_id", userID),
						slog.String("quest_type", questType),
						slog.String("period_key", periodKey),
						slog.Any("error", err))
					return nil
				}
				reconciled.Add(1)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	slog.Info("Quest catalog reconciliation finished",
		slog.String("guild_id", guildID),
		slog.Int64("reconciled", reconciled.Load()),
		slog.Int64("failed", failed.Load()),
		slog.Duration("took", time.Since(start)))
	return nil
}
