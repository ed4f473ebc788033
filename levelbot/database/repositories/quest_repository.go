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

// ObjectivePatch is a partial update of one objective definition. Nil fields
// are left untouched.
type ObjectivePatch struct {
	Title                *string
	Description          *string
	MessageTarget        *int
	SuccessMessageTarget *int
	XPReward             *int64
	Ord                  *int
	Active               *bool
}

// CatalogObjective pairs an objective definition with its quest's cadence.
type CatalogObjective struct {
	QuestType string
	Objective *models.ObjectiveDefinition
}

type QuestRepository interface {
	GetDefinition(ctx context.Context, guildID, questType string) (*models.QuestDefinition, error)
	// CreateDefinition inserts a definition with its objectives unless one
	// already exists for the guild and type. Returns whether it was created.
	CreateDefinition(ctx context.Context, def *models.QuestDefinition) (bool, error)
	// FindObjective resolves an objective id to its definition and cadence.
	FindObjective(ctx context.Context, guildID, objectiveID string) (*CatalogObjective, error)
	UpdateObjective(ctx context.Context, guildID, objectiveID string, patch ObjectivePatch) (bool, error)
	ListObjectives(ctx context.Context, guildID string) ([]*CatalogObjective, error)
}

type questRepository struct {
	db *bun.DB
}

func NewQuestRepository(db *bun.DB) QuestRepository {
	return &questRepository{db: db}
}

func (r *questRepository) GetDefinition(ctx context.Context, guildID, questType string) (*models.QuestDefinition, error) {
	def := new(models.QuestDefinition)
	err := r.db.NewSelect().
		Model(def).
		Relation("Objectives", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ord ASC", "objective_id ASC")
		}).
		Where("qd.guild_id = ? AND qd.type = ?", guildID, questType).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return def, nil
}

func (r *questRepository) CreateDefinition(ctx context.Context, def *models.QuestDefinition) (bool, error) {
	res, err := r.db.NewInsert().
		Model(def).
		On("CONFLICT (guild_id, type) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to create quest definition: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// Catalog already seeded; never overwrite.
		return false, nil
	}

	for _, obj := range def.Objectives {
		obj.QuestID = def.ID
	}
	if len(def.Objectives) > 0 {
		_, err = r.db.NewInsert().
			Model(&def.Objectives).
			On("CONFLICT (quest_id, objective_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to create quest objectives: %w", err)
		}
	}
	return true, nil
}

func (r *questRepository) FindObjective(ctx context.Context, guildID, objectiveID string) (*CatalogObjective, error) {
	type row struct {
		models.ObjectiveDefinition `bun:",extend"`
		QuestType                  string `bun:"quest_type"`
	}

	var res row
	err := r.db.NewSelect().
		Model((*models.ObjectiveDefinition)(nil)).
		ColumnExpr("od.*").
		ColumnExpr("qd.type AS quest_type").
		Join("JOIN quest_definitions qd ON qd.id = od.quest_id").
		Where("qd.guild_id = ? AND od.objective_id = ?", guildID, objectiveID).
		Scan(ctx, &res)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &CatalogObjective{QuestType: res.QuestType, Objective: &res.ObjectiveDefinition}, nil
}

func (r *questRepository) UpdateObjective(ctx context.Context, guildID, objectiveID string, patch ObjectivePatch) (bool, error) {
	q := r.db.NewUpdate().
		Model((*models.ObjectiveDefinition)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("objective_id = ?", objectiveID).
		Where("quest_id IN (SELECT id FROM quest_definitions WHERE guild_id = ?)", guildID)

	if patch.Title != nil {
		q = q.Set("title = ?", *patch.Title)
	}
	if patch.Description != nil {
		q = q.Set("description = ?", *patch.Description)
	}
	if patch.MessageTarget != nil {
		q = q.Set("message_target = ?", *patch.MessageTarget)
	}
	if patch.SuccessMessageTarget != nil {
		q = q.Set("success_message_target = ?", *patch.SuccessMessageTarget)
	}
	if patch.XPReward != nil {
		q = q.Set("xp_reward = ?", *patch.XPReward)
	}
	if patch.Ord != nil {
		q = q.Set("ord = ?", *patch.Ord)
	}
	if patch.Active != nil {
		q = q.Set("active = ?", *patch.Active)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update objective: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *questRepository) ListObjectives(ctx context.Context, guildID string) ([]*CatalogObjective, error) {
	var out []*CatalogObjective
	for _, questType := range models.QuestTypes {
		def, err := r.GetDefinition(ctx, guildID, questType)
		if err != nil {
			return nil, err
		}
		if def == nil {
			continue
		}
		for _, obj := range def.Objectives {
			out = append(out, &CatalogObjective{QuestType: questType, Objective: obj})
		}
	}
	return out, nil
}
