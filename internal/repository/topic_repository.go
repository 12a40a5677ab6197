package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"constitution-gpt/internal/model"
)

type TopicRepository struct {
	db *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// CreateIfMissing inserts topic unless a topic with the same title exists.
// It reports whether a row was inserted.
func (r *TopicRepository) CreateIfMissing(ctx context.Context, topic *model.Topic) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "title"}}, DoNothing: true}).
		Create(topic)
	if res.Error != nil {
		return false, fmt.Errorf("create topic failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Upsert replaces description and content of the topic with the same title.
func (r *TopicRepository) Upsert(ctx context.Context, topic *model.Topic) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "title"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "content", "updated_at"}),
		}).
		Create(topic).Error
	if err != nil {
		return fmt.Errorf("upsert topic failed: %w", err)
	}
	return nil
}

func (r *TopicRepository) GetByID(ctx context.Context, id uint) (*model.Topic, error) {
	var topic model.Topic
	if err := r.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query topic failed: %w", err)
	}
	return &topic, nil
}

// ListAll returns every topic ordered by title.
func (r *TopicRepository) ListAll(ctx context.Context) ([]model.Topic, error) {
	var topics []model.Topic
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("list topics failed: %w", err)
	}
	return topics, nil
}
