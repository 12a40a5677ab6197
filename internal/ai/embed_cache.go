package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// WrapLRUCache memoises embeddings per text. Only misses reach next, in a
// single call.
func WrapLRUCache(next Embedder, size int, ttl time.Duration) Embedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruEmbedder{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func (l *lruEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, t := range texts {
		if cached, ok := l.cache.Get(t); ok {
			out[i] = cloneEmbedding(cached)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := l.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		l.cache.Add(texts[i], cloneEmbedding(vecs[j]))
	}
	return out, nil
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
