package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guildxp/levelbot/levelbot/database/models"
)

const defaultBatchSize = 1000

// Migrator imports the legacy Mongo deployment into Postgres. Inserts go
// through ON CONFLICT DO NOTHING on the natural keys, so re-running after a
// partial failure only fills the gaps.
type Migrator struct {
	pgDB      *bun.DB
	mongoDB   *mongo.Database
	batchSize int
	stats     MigrationStats
}

func NewMigrator(pgDB *bun.DB, mongoDB *mongo.Database) *Migrator {
	return &Migrator{
		pgDB:      pgDB,
		mongoDB:   mongoDB,
		batchSize: defaultBatchSize,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
	}
}

// Connect opens the legacy Mongo database.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client.Database(dbName), nil
}

// MigrateAll imports users first, then quest progress, and logs a summary.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	if err := m.migrateUsers(ctx); err != nil {
		return fmt.Errorf("user migration failed: %w", err)
	}
	if err := m.migrateQuestProgress(ctx); err != nil {
		return fmt.Errorf("quest progress migration failed: %w", err)
	}

	for name, t := range m.stats.Tables {
		slog.Info("Migration table summary",
			slog.String("table", name),
			slog.Int("read", t.Read),
			slog.Int("inserted", t.Inserted),
			slog.Int("skipped", t.Skipped),
			slog.Int("failed", t.Failed))
	}
	slog.Info("Migration finished", slog.Duration("took", time.Since(m.stats.StartTime)))
	return nil
}

func (m *Migrator) migrateUsers(ctx context.Context) error {
	stats := m.stats.table("user_progress")

	cur, err := m.mongoDB.Collection("users").Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to open users cursor: %w", err)
	}
	defer cur.Close(ctx)

	var batch []*models.UserProgress
	for cur.Next(ctx) {
		var lu LegacyUser
		if err := cur.Decode(&lu); err != nil {
			stats.Failed++
			slog.Error("Failed to decode legacy user", slog.Any("error", err))
			continue
		}
		stats.Read++
		if lu.CompanyID == "" || lu.UserID == "" {
			stats.Skipped++
			continue
		}

		batch = append(batch, convertUser(lu))
		if len(batch) >= m.batchSize {
			m.insertUsers(ctx, batch, stats)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		m.insertUsers(ctx, batch, stats)
	}
	return cur.Err()
}

func (m *Migrator) insertUsers(ctx context.Context, batch []*models.UserProgress, stats *TableStats) {
	res, err := m.pgDB.NewInsert().
		Model(&batch).
		On("CONFLICT (guild_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		stats.Failed += len(batch)
		slog.Error("Failed to insert user batch",
			slog.Int("size", len(batch)),
			slog.Any("error", err))
		return
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.Inserted += int(n)
		stats.Skipped += len(batch) - int(n)
	}
}

func (m *Migrator) migrateQuestProgress(ctx context.Context) error {
	rowStats := m.stats.table("objective_progress")
	stateStats := m.stats.table("quest_period_state")

	cur, err := m.mongoDB.Collection("questprogress").Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to open questprogress cursor: %w", err)
	}
	defer cur.Close(ctx)

	var rows []*models.ObjectiveProgress
	var states []*models.QuestPeriodState
	for cur.Next(ctx) {
		var lp LegacyQuestProgress
		if err := cur.Decode(&lp); err != nil {
			rowStats.Failed++
			slog.Error("Failed to decode legacy quest progress", slog.Any("error", err))
			continue
		}
		rowStats.Read++
		if lp.CompanyID == "" || lp.UserID == "" || lp.Date == "" {
			rowStats.Skipped++
			continue
		}

		docRows, docStates := convertQuestProgress(lp)
		rows = append(rows, docRows...)
		states = append(states, docStates...)

		if len(rows) >= m.batchSize {
			m.insertProgress(ctx, rows, rowStats)
			rows = rows[:0]
		}
		if len(states) >= m.batchSize {
			m.insertStates(ctx, states, stateStats)
			states = states[:0]
		}
	}
	if len(rows) > 0 {
		m.insertProgress(ctx, rows, rowStats)
	}
	if len(states) > 0 {
		m.insertStates(ctx, states, stateStats)
	}
	return cur.Err()
}

func (m *Migrator) insertProgress(ctx context.Context, batch []*models.ObjectiveProgress, stats *TableStats) {
	res, err := m.pgDB.NewInsert().
		Model(&batch).
		On("CONFLICT (guild_id, user_id, quest_type, period_key, objective_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		stats.Failed += len(batch)
		slog.Error("Failed to insert progress batch",
			slog.Int("size", len(batch)),
			slog.Any("error", err))
		return
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.Inserted += int(n)
		stats.Skipped += len(batch) - int(n)
	}
}

func (m *Migrator) insertStates(ctx context.Context, batch []*models.QuestPeriodState, stats *TableStats) {
	res, err := m.pgDB.NewInsert().
		Model(&batch).
		On("CONFLICT (guild_id, user_id, quest_type, period_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		stats.Failed += len(batch)
		slog.Error("Failed to insert period state batch",
			slog.Int("size", len(batch)),
			slog.Any("error", err))
		return
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.Inserted += int(n)
		stats.Skipped += len(batch) - int(n)
	}
}
