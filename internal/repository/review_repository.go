package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"constitution-gpt/internal/model"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return wrapCreate("create review", err)
	}
	return nil
}

func (r *ReviewRepository) ExistsForPair(ctx context.Context, lawyerID, userID uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Review{}).Where("lawyer_id = ? AND user_id = ?", lawyerID, userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count reviews failed: %w", err)
	}
	return n > 0, nil
}

func (r *ReviewRepository) ListByLawyerID(ctx context.Context, lawyerID uint) ([]model.Review, error) {
	var list []model.Review
	if err := r.db.WithContext(ctx).Where("lawyer_id = ?", lawyerID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list reviews failed: %w", err)
	}
	return list, nil
}
