package services

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"

	"github.com/guildxp/levelbot/levelbot/database"
	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
)

const catalogCacheSize = 256

// QuestCatalogService owns quest definitions: it seeds the stock daily and
// weekly catalogs per guild, serves cached reads, and routes definition edits
// through the migrator so outstanding progress never silently diverges from
// the catalog.
type QuestCatalogService struct {
	quests   repositories.QuestRepository
	migrator *QuestMigrator
	cache    *lru.Cache
}

func NewQuestCatalogService(quests repositories.QuestRepository, migrator *QuestMigrator) *QuestCatalogService {
	cache, _ := lru.New(catalogCacheSize)
	return &QuestCatalogService{
		quests:   quests,
		migrator: migrator,
		cache:    cache,
	}
}

func catalogCacheKey(guildID, questType string) string {
	return guildID + ":" + questType
}

// EnsureSeeded creates the default daily and weekly definitions for a guild
// when none exist. Idempotent: an existing catalog is never overwritten.
func (s *QuestCatalogService) EnsureSeeded(ctx context.Context, guildID string) error {
	for _, def := range database.DefaultQuestDefinitions(guildID) {
		created, err := s.quests.CreateDefinition(ctx, def)
		if err != nil {
			return fmt.Errorf("failed to seed %s quest for guild %s: %w", def.Type, guildID, err)
		}
		if created {
			slog.Info("Seeded default quest catalog",
				slog.String("guild_id", guildID),
				slog.String("quest_type", def.Type),
				slog.Int("objectives", len(def.Objectives)))
		}
	}
	return nil
}

// Definition returns a guild's catalog for one cadence, from cache when warm.
func (s *QuestCatalogService) Definition(ctx context.Context, guildID, questType string) (*models.QuestDefinition, error) {
	key := catalogCacheKey(guildID, questType)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*models.QuestDefinition), nil
	}

	def, err := s.quests.GetDefinition(ctx, guildID, questType)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrQuestNotFound
	}

	s.cache.Add(key, def)
	return def, nil
}

// ActiveObjectives returns the catalog objectives surfaced to members, in
// display order.
func (s *QuestCatalogService) ActiveObjectives(ctx context.Context, guildID, questType string) ([]*models.ObjectiveDefinition, error) {
	def, err := s.Definition(ctx, guildID, questType)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ObjectiveDefinition, 0, len(def.Objectives))
	for _, obj := range def.Objectives {
		if obj.Active {
			out = append(out, obj)
		}
	}
	return out, nil
}

// FindObjective resolves an objective id to its definition and cadence.
// Returns ErrObjectiveNotFound when the catalog has no such id.
func (s *QuestCatalogService) FindObjective(ctx context.Context, guildID, objectiveID string) (*repositories.CatalogObjective, error) {
	obj, err := s.quests.FindObjective(ctx, guildID, objectiveID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrObjectiveNotFound
	}
	return obj, nil
}

// ListObjectives returns every objective across both cadences, for admin
// surfaces and autocomplete.
func (s *QuestCatalogService) ListObjectives(ctx context.Context, guildID string) ([]*repositories.CatalogObjective, error) {
	return s.quests.ListObjectives(ctx, guildID)
}

// UpdateObjective applies a partial edit to one objective and then eagerly
// reconciles every outstanding progress record in the guild, so a changed
// target or reward reaches in-flight periods immediately.
func (s *QuestCatalogService) UpdateObjective(ctx context.Context, guildID, objectiveID string, patch repositories.ObjectivePatch) error {
	entry, err := s.quests.FindObjective(ctx, guildID, objectiveID)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrObjectiveNotFound
	}

	// Validate the definition the patch would produce, not the patch alone:
	// a partial edit must still leave exactly one counter dimension nonzero.
	messageTarget := entry.Objective.MessageTarget
	successTarget := entry.Objective.SuccessMessageTarget
	if patch.MessageTarget != nil {
		messageTarget = *patch.MessageTarget
	}
	if patch.SuccessMessageTarget != nil {
		successTarget = *patch.SuccessMessageTarget
	}
	if (messageTarget > 0) == (successTarget > 0) {
		return ErrInvalidObjective
	}

	found, err := s.quests.UpdateObjective(ctx, guildID, objectiveID, patch)
	if err != nil {
		return err
	}
	if !found {
		return ErrObjectiveNotFound
	}

	s.Invalidate(guildID)

	if err := s.migrator.Reconcile(ctx, guildID); err != nil {
		slog.Error("Catalog update saved but reconciliation failed; progress converges on next read",
			slog.String("guild_id", guildID),
			slog.String("objective_id", objectiveID),
			slog.Any("error", err))
	}
	return nil
}

// Invalidate drops a guild's cached definitions.
func (s *QuestCatalogService) Invalidate(guildID string) {
	for _, questType := range models.QuestTypes {
		s.cache.Remove(catalogCacheKey(guildID, questType))
	}
}
