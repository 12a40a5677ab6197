package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

// RemoteEmbedder calls an OpenAI-compatible /embeddings endpoint.
type RemoteEmbedder struct {
	client *OpenAICompatibleClient
	cfg    EmbeddingConfig
}

func NewRemoteEmbedder(cfg EmbeddingConfig, timeout time.Duration) *RemoteEmbedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	return &RemoteEmbedder{
		client: NewOpenAICompatibleClient(ChatConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model}, timeout),
		cfg:    cfg,
	}
}

func (e *RemoteEmbedder) ModelName() string {
	return "openai:" + e.cfg.Model
}

func (e *RemoteEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.cfg.APIKey == "" {
		return nil, ErrUnavailable
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *RemoteEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		if input[i] = strings.TrimSpace(t); input[i] == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
	}

	reqBody := map[string]interface{}{
		"model": e.cfg.Model,
		"input": input,
	}
	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := e.client.postJSON(ctx, e.client.cfg, "/embeddings", reqBody, &parsed); err != nil {
		return nil, fmt.Errorf("embedding batch %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding batch returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}
	sort.SliceStable(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })

	result := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		if len(parsed.Data[i].Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding in response")
		}
		result[i] = parsed.Data[i].Embedding
	}
	return result, nil
}
