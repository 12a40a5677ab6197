package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiClient serves both completions and embeddings through the Gemini API.
type GeminiClient struct {
	apiKey     string
	chatModel  string
	embedModel string

	mu  sync.Mutex
	cli *genai.Client
}

func NewGeminiClient(apiKey, chatModel, embedModel string) *GeminiClient {
	return &GeminiClient{
		apiKey:     strings.TrimSpace(apiKey),
		chatModel:  chatModel,
		embedModel: embedModel,
	}
}

func (g *GeminiClient) Name() string {
	return "gemini:" + g.chatModel
}

func (g *GeminiClient) ModelName() string {
	return "gemini:" + g.embedModel
}

// client builds the SDK client on first use and reuses it afterwards. A failed
// build is retried on the next call.
func (g *GeminiClient) client(ctx context.Context) (*genai.Client, error) {
	if g.apiKey == "" {
		return nil, ErrUnavailable
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cli != nil {
		return g.cli, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	g.cli = cli
	return cli, nil
}

func (g *GeminiClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	client, err := g.client(ctx)
	if err != nil {
		return "", err
	}

	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	var config *genai.GenerateContentConfig
	if len(system) > 0 {
		config = &genai.GenerateContentConfig{SystemInstruction: &genai.Content{Parts: system}}
	}

	resp, err := client.Models.GenerateContent(ctx, g.chatModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (g *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}
	resp, err := client.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_DOCUMENT",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
