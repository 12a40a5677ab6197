package ai

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("ai provider unavailable")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completer turns a conversation into the assistant's next reply.
type Completer interface {
	Name() string
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Embedder maps texts to vectors. The result has one vector per input text,
// in input order.
type Embedder interface {
	ModelName() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
