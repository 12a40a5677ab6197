package model

import (
	"encoding/json"
	"time"
)

type Topic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:191;not null;uniqueIndex" json:"title"`
	Description string    `gorm:"size:512" json:"description"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TopicChunk is one indexed passage of a topic together with its embedding.
// Embedding is stored as a JSON array of float32 for portability.
type TopicChunk struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ChunkID        string    `gorm:"size:64;not null;uniqueIndex:idx_chunk_model" json:"chunk_id"`
	EmbeddingModel string    `gorm:"size:128;not null;uniqueIndex:idx_chunk_model" json:"embedding_model"`
	Title          string    `gorm:"size:191;not null" json:"title"`
	Source         string    `gorm:"size:64;not null" json:"source"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Embedding      string    `gorm:"type:text" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *TopicChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

func (c *TopicChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
