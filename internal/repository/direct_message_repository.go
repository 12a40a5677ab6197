package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"constitution-gpt/internal/model"
)

type DirectMessageRepository struct {
	db *gorm.DB
}

func NewDirectMessageRepository(db *gorm.DB) *DirectMessageRepository {
	return &DirectMessageRepository{db: db}
}

func (r *DirectMessageRepository) Create(ctx context.Context, msg *model.DirectMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("create direct message failed: %w", err)
	}
	return nil
}

func (r *DirectMessageRepository) GetByID(ctx context.Context, id uint) (*model.DirectMessage, error) {
	var msg model.DirectMessage
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get direct message failed: %w", err)
	}
	return &msg, nil
}

// ListConversation returns messages between a and b, oldest first.
func (r *DirectMessageRepository) ListConversation(ctx context.Context, a, b uint) ([]model.DirectMessage, error) {
	var list []model.DirectMessage
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list conversation failed: %w", err)
	}
	return list, nil
}

// ListInvolving returns every message sent or received by userID, newest first.
func (r *DirectMessageRepository) ListInvolving(ctx context.Context, userID uint) ([]model.DirectMessage, error) {
	var list []model.DirectMessage
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return list, nil
}

func (r *DirectMessageRepository) MarkRead(ctx context.Context, receiverID, senderID uint) error {
	err := r.db.WithContext(ctx).Model(&model.DirectMessage{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("mark messages read failed: %w", err)
	}
	return nil
}
