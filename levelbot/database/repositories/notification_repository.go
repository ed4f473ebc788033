package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/guildxp/levelbot/levelbot/database/models"
)

type NotificationRepository interface {
	Append(ctx context.Context, n *models.LevelNotification) error
	ListUnseen(ctx context.Context, guildID, userID string) ([]*models.LevelNotification, error)
	MarkAllSeen(ctx context.Context, guildID, userID string) error
}

type notificationRepository struct {
	db *bun.DB
}

func NewNotificationRepository(db *bun.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Append(ctx context.Context, n *models.LevelNotification) error {
	n.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(n).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append level notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListUnseen(ctx context.Context, guildID, userID string) ([]*models.LevelNotification, error) {
	var out []*models.LevelNotification
	err := r.db.NewSelect().
		Model(&out).
		Where("guild_id = ? AND user_id = ? AND seen = FALSE", guildID, userID).
		Order("created_at ASC").
		Scan(ctx)
	return out, err
}

func (r *notificationRepository) MarkAllSeen(ctx context.Context, guildID, userID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.LevelNotification)(nil)).
		Set("seen = TRUE").
		Where("guild_id = ? AND user_id = ? AND seen = FALSE", guildID, userID).
		Exec(ctx)
	return err
}
