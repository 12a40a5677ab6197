package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"constitution-gpt/internal/model"
)

// HistoryCache keeps one HistorySnapshot per user in redis, together with the
// limit it was read with. A short-lived dirty marker suppresses re-caching
// while a write is in flight.
type HistoryCache struct {
	client         *redisv9.Client
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

// GetHistory loads the snapshot stored by SetHistory. A payload that no longer
// decodes is dropped and reported as a miss.
func (c *HistoryCache) GetHistory(ctx context.Context, userID uint) (model.HistorySnapshot, bool, error) {
	key := c.historyKey(userID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return model.HistorySnapshot{}, false, nil
	}
	if err != nil {
		return model.HistorySnapshot{}, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var snap model.HistorySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil || snap.Limit <= 0 {
		_ = c.client.Del(ctx, key).Err()
		return model.HistorySnapshot{}, false, nil
	}
	return snap, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, userID uint, snap model.HistorySnapshot) error {
	if snap.Limit <= 0 {
		return fmt.Errorf("history snapshot without limit for user %d", userID)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(userID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, userID uint) error {
	key := c.historyKey(userID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context, userID uint) error {
	key := c.dirtyKey(userID)
	if err := c.client.Set(ctx, key, "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, userID uint) (bool, error) {
	key := c.dirtyKey(userID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *HistoryCache) historyKey(userID uint) string {
	return fmt.Sprintf("cgpt:chat:history:%d", userID)
}

func (c *HistoryCache) dirtyKey(userID uint) string {
	return fmt.Sprintf("cgpt:chat:history:dirty:%d", userID)
}
