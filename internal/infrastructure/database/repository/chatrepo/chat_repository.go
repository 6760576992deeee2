// Package chatrepo implements chat.Repository on PostgreSQL.
package chatrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"velvet-server/internal/domain/chat"
	"velvet-server/internal/infrastructure/database/dbschema"
	"velvet-server/internal/utils/platformerrors"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ chat.Repository = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, c *chat.Chat) error {
	entity := dbschema.NewSchemaChat(c)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create chat", err, "")
	}
	c.ID = entity.ID
	c.CreatedAt = entity.CreatedAt
	c.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uint, limit int) ([]*chat.Chat, error) {
	var entities []dbschema.Chat
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("updated_at DESC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list chats", err, "")
	}
	if len(entities) == 0 {
		return []*chat.Chat{}, nil
	}

	ids := make([]uint, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}

	// One grouped query instead of a count per chat.
	type chatCount struct {
		ChatID uint
		Count  int64
	}
	var counts []chatCount
	err = r.db.WithContext(ctx).
		Model(&dbschema.Message{}).
		Select("chat_id, COUNT(*) AS count").
		Where("chat_id IN ? AND is_deleted = ?", ids, false).
		Group("chat_id").
		Scan(&counts).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to count messages", err, "")
	}
	countByChat := make(map[uint]int64, len(counts))
	for _, cc := range counts {
		countByChat[cc.ChatID] = cc.Count
	}

	out := make([]*chat.Chat, 0, len(entities))
	for i := range entities {
		d := entities[i].EtoD()
		d.MessageCount = countByChat[d.ID]
		out = append(out, d)
	}
	return out, nil
}

func (r *Repository) FindByPublicIDAndUser(ctx context.Context, publicID string, userID uint) (*chat.Chat, error) {
	var entity dbschema.Chat
	err := r.db.WithContext(ctx).
		Where("public_id = ? AND user_id = ? AND is_deleted = ?", publicID, userID, false).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"chat not found", nil, "")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find chat", err, "")
	}
	return entity.EtoD(), nil
}

func (r *Repository) ListMessages(ctx context.Context, chatID uint) ([]*chat.Message, error) {
	var entities []dbschema.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Order("timestamp ASC").
		Find(&entities).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list messages", err, "")
	}
	out := make([]*chat.Message, 0, len(entities))
	for i := range entities {
		out = append(out, entities[i].EtoD())
	}
	return out, nil
}

// RecentMessages selects the newest limit rows and reverses them so the
// caller gets the tail of the conversation in chronological order.
func (r *Repository) RecentMessages(ctx context.Context, chatID uint, limit int) ([]*chat.Message, error) {
	var entities []dbschema.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to load recent messages", err, "")
	}

	out := make([]*chat.Message, len(entities))
	for i := range entities {
		out[len(entities)-1-i] = entities[i].EtoD()
	}
	return out, nil
}

// AppendMessage inserts the message and bumps the chat's updated_at in one
// transaction. GREATEST keeps updated_at monotonic if message timestamps
// ever arrive out of order.
func (r *Repository) AppendMessage(ctx context.Context, msg *chat.Message) error {
	entity := dbschema.NewSchemaMessage(msg)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return err
		}
		return tx.Model(&dbschema.Chat{}).
			Where("id = ?", msg.ChatID).
			Update("updated_at", gorm.Expr("GREATEST(updated_at, ?)", msg.Timestamp)).Error
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to append message", err, "")
	}

	msg.ID = entity.ID
	return nil
}

func (r *Repository) SoftDelete(ctx context.Context, chatID uint) error {
	err := r.db.WithContext(ctx).
		Model(&dbschema.Chat{}).
		Where("id = ?", chatID).
		Update("is_deleted", true).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to delete chat", err, "")
	}
	return nil
}
