package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"constitution-gpt/internal/model"
)

// ChatExchangeRepository stores question/answer pairs of the assistant chat.
type ChatExchangeRepository struct {
	db *gorm.DB
}

func NewChatExchangeRepository(db *gorm.DB) *ChatExchangeRepository {
	return &ChatExchangeRepository{db: db}
}

func (r *ChatExchangeRepository) Create(ctx context.Context, exchange *model.ChatExchange) error {
	if err := r.db.WithContext(ctx).Create(exchange).Error; err != nil {
		return wrapCreate("create chat exchange", err)
	}
	return nil
}

// ListByUserID returns the newest exchanges first.
func (r *ChatExchangeRepository) ListByUserID(ctx context.Context, userID uint, limit int) ([]model.ChatExchange, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var list []model.ChatExchange
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list chat exchanges failed: %w", err)
	}
	return list, nil
}

func (r *ChatExchangeRepository) GetByIDAndUserID(ctx context.Context, id string, userID uint) (*model.ChatExchange, error) {
	var exchange model.ChatExchange
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&exchange).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat exchange failed: %w", err)
	}
	return &exchange, nil
}

func (r *ChatExchangeRepository) DeleteByIDAndUserID(ctx context.Context, id string, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.ChatExchange{})
	if res.Error != nil {
		return false, fmt.Errorf("delete chat exchange failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
