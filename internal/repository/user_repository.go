package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"constitution-gpt/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapCreate("create user", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(ctx, "query user by username", "username = ?", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "query user by email", "email = ?", email)
}

// GetByUsernameOrEmail resolves a login identifier that may be either. The
// email must already be in its stored lowercase form.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	return r.first(ctx, "query user by identifier", "username = ? OR email = ?", username, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return r.first(ctx, "query user by id", "id = ?", id)
}

func (r *UserRepository) ListByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users by ids failed: %w", err)
	}
	return users, nil
}

// ListLawyers returns lawyers ordered by username. An empty city matches all.
func (r *UserRepository) ListLawyers(ctx context.Context, city string, verifiedOnly bool) ([]model.User, error) {
	q := r.db.WithContext(ctx).Where("role = ?", model.RoleLawyer)
	if verifiedOnly {
		q = q.Where("is_verified = ?", true)
	}
	if city = strings.TrimSpace(city); city != "" {
		q = q.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(city)+"%")
	}
	var users []model.User
	if err := q.Order("username ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list lawyers failed: %w", err)
	}
	return users, nil
}

// SetVerified flips the verification flag of a lawyer. It reports whether a
// lawyer row was matched.
func (r *UserRepository) SetVerified(ctx context.Context, lawyerID uint, verified bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND role = ?", lawyerID, model.RoleLawyer).
		Update("is_verified", verified)
	if res.Error != nil {
		return false, fmt.Errorf("update lawyer verification failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// MySQL reports changed rows, so an unchanged flag still needs a lookup.
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND role = ?", lawyerID, model.RoleLawyer).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("query lawyer failed: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("update password failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update password failed: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *UserRepository) first(ctx context.Context, op, query string, args ...any) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return &user, nil
}
