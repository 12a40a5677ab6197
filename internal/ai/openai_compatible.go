package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAICompatibleClient talks to any /chat/completions + /embeddings API
// (OpenAI, Groq, DashScope, vLLM ...).
type OpenAICompatibleClient struct {
	httpClient *http.Client
	cfg        ChatConfig
}

func NewOpenAICompatibleClient(cfg ChatConfig, timeout time.Duration) *OpenAICompatibleClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

func (c *OpenAICompatibleClient) Name() string {
	return "openai:" + c.cfg.Model
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if c.cfg.APIKey == "" || c.cfg.Model == "" {
		return "", ErrUnavailable
	}
	reqBody := map[string]interface{}{
		"model":    c.cfg.Model,
		"messages": messages,
		"stream":   false,
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, c.cfg, "/chat/completions", reqBody, &parsed); err != nil {
		return "", fmt.Errorf("llm %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *OpenAICompatibleClient) postJSON(ctx context.Context, cfg ChatConfig, path string, body interface{}, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("response status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse json failed: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
