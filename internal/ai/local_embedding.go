package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// HashingEmbedder is an offline, deterministic embedder. Unigrams and
// bigrams are hashed into a fixed number of signed buckets and the result is
// L2-normalised, so cosine similarity reduces to a dot product.
type HashingEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashingEmbedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

func (e *HashingEmbedder) ModelName() string {
	return fmt.Sprintf("local-hash-%d", e.dimension)
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float64, e.dimension)
	tokens := e.tokenize(text)
	for i, tok := range tokens {
		e.add(vec, tok, 1.0)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (e *HashingEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimension))
	// top bit decides the sign so collisions tend to cancel out
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func (e *HashingEmbedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "into", "about", "than", "so", "such", "can", "will", "should", "what", "which", "who", "how",
		"do", "does", "my", "me", "i", "you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
