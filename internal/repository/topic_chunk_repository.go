package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"constitution-gpt/internal/model"
)

type TopicChunkRepository struct {
	db *gorm.DB
}

func NewTopicChunkRepository(db *gorm.DB) *TopicChunkRepository {
	return &TopicChunkRepository{db: db}
}

func (r *TopicChunkRepository) CountByModel(ctx context.Context, embeddingModel string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.TopicChunk{}).Where("embedding_model = ?", embeddingModel).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count topic chunks failed: %w", err)
	}
	return n, nil
}

func (r *TopicChunkRepository) CreateBatch(ctx context.Context, chunks []model.TopicChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&chunks, 100).Error; err != nil {
		return fmt.Errorf("create topic chunks batch failed: %w", err)
	}
	return nil
}

func (r *TopicChunkRepository) ListByModel(ctx context.Context, embeddingModel string) ([]model.TopicChunk, error) {
	var chunks []model.TopicChunk
	if err := r.db.WithContext(ctx).Where("embedding_model = ?", embeddingModel).Order("id ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list topic chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *TopicChunkRepository) DeleteByModel(ctx context.Context, embeddingModel string) error {
	if err := r.db.WithContext(ctx).Where("embedding_model = ?", embeddingModel).Delete(&model.TopicChunk{}).Error; err != nil {
		return fmt.Errorf("delete topic chunks failed: %w", err)
	}
	return nil
}
