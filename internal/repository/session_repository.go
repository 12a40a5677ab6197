package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"constitution-gpt/internal/model"
)

type RefreshSessionRepository struct {
	db *gorm.DB
}

func NewRefreshSessionRepository(db *gorm.DB) *RefreshSessionRepository {
	return &RefreshSessionRepository{db: db}
}

func (r *RefreshSessionRepository) Create(ctx context.Context, session *model.RefreshSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create refresh session failed: %w", err)
	}
	return nil
}

// DeleteByToken removes the row holding token and reports whether this call
// removed it. Two concurrent callers with the same token see exactly one true.
func (r *RefreshSessionRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	res := r.db.WithContext(ctx).Where("token = ?", token).Delete(&model.RefreshSession{})
	if res.Error != nil {
		return false, fmt.Errorf("delete refresh session failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RefreshSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.RefreshSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired refresh sessions failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *RefreshSessionRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RefreshSession{}).Error; err != nil {
		return fmt.Errorf("delete refresh sessions by user failed: %w", err)
	}
	return nil
}
