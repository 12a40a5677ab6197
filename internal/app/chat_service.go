package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"constitution-gpt/internal/ai"
	"constitution-gpt/internal/model"
)

const (
	systemPrompt       = "You are ConstitutionGPT, expert in Indian Constitution."
	defaultHistorySize = 50
	maxMessageRunes    = 4000
)

var (
	ErrMessageEmpty     = errors.New("message content is empty")
	ErrCompletionFailed = errors.New("completion service failed")
	ErrExchangeRecord   = errors.New("chat exchange record failed")
)

type ContextRetriever interface {
	Query(ctx context.Context, text string, n int) []string
}

// ExchangeRecorder persists a finished exchange, either directly or through
// the message queue.
type ExchangeRecorder interface {
	Publish(ctx context.Context, exchange model.ChatExchange) error
}

type ExchangeStore interface {
	Create(ctx context.Context, exchange *model.ChatExchange) error
	ListByUserID(ctx context.Context, userID uint, limit int) ([]model.ChatExchange, error)
	GetByIDAndUserID(ctx context.Context, id string, userID uint) (*model.ChatExchange, error)
	DeleteByIDAndUserID(ctx context.Context, id string, userID uint) (bool, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint) (model.HistorySnapshot, bool, error)
	SetHistory(ctx context.Context, userID uint, snapshot model.HistorySnapshot) error
	DeleteHistory(ctx context.Context, userID uint) error
	MarkDirty(ctx context.Context, userID uint) error
	IsDirty(ctx context.Context, userID uint) (bool, error)
}

type ChatOptions struct {
	ContextSize       int
	CompletionTimeout time.Duration
	Now               func() time.Time
}

type ChatService struct {
	retriever    ContextRetriever
	completer    ai.Completer
	store        ExchangeStore
	recorder     ExchangeRecorder
	historyCache HistoryCache
	opts         ChatOptions
	logger       *zap.Logger
}

type SendInput struct {
	UserID  uint
	Message string
}

// NewChatService wires the chat pipeline. historyCache may be nil. With a nil
// recorder exchanges are written to store synchronously.
func NewChatService(
	retriever ContextRetriever,
	completer ai.Completer,
	store ExchangeStore,
	recorder ExchangeRecorder,
	historyCache HistoryCache,
	opts ChatOptions,
	logger *zap.Logger,
) *ChatService {
	if opts.ContextSize <= 0 {
		opts.ContextSize = defaultTopN
	}
	if opts.CompletionTimeout <= 0 {
		opts.CompletionTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if recorder == nil {
		recorder = DirectExchangeRecorder{Store: store}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		retriever:    retriever,
		completer:    completer,
		store:        store,
		recorder:     recorder,
		historyCache: historyCache,
		opts:         opts,
		logger:       logger.Named("chat"),
	}
}

func (s *ChatService) Send(ctx context.Context, input SendInput) (*model.ChatExchange, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Message)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if runeLen(content) > maxMessageRunes {
		return nil, invalidField("message", fmt.Sprintf("must be at most %d characters", maxMessageRunes))
	}

	passages := s.retriever.Query(ctx, content, s.opts.ContextSize)
	prompt := buildPrompt(passages, content)

	completeCtx, cancel := context.WithTimeout(ctx, s.opts.CompletionTimeout)
	defer cancel()
	reply, err := s.completer.Complete(completeCtx, prompt)
	if err != nil {
		s.logger.Error("completion failed", zap.String("provider", s.completer.Name()), zap.Uint("user_id", input.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = "The model returned an empty response."
	}

	exchange := model.ChatExchange{
		ID:           uuid.NewString(),
		UserID:       input.UserID,
		Message:      content,
		Response:     reply,
		ContextCount: len(passages),
		CreatedAt:    s.opts.Now(),
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.UserID)
		_ = s.historyCache.DeleteHistory(ctx, input.UserID)
	}
	if err := s.recorder.Publish(ctx, exchange); err != nil {
		// The reply is still returned; only the history entry is lost.
		s.logger.Error("record chat exchange failed", zap.String("exchange_id", exchange.ID), zap.Error(err))
	}
	return &exchange, nil
}

// History returns the user's exchanges, newest first. Reads below the default
// size share one cached snapshot of defaultHistorySize exchanges.
func (s *ChatService) History(ctx context.Context, userID uint, limit int) ([]model.ChatExchange, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultHistorySize
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if snap, hit, cacheErr := s.historyCache.GetHistory(ctx, userID); cacheErr == nil && hit && snap.Covers(limit) {
				return snap.Newest(limit), nil
			}
		}
	}

	fetch := max(limit, defaultHistorySize)
	exchanges, err := s.store.ListByUserID(ctx, userID, fetch)
	if err != nil {
		return nil, err
	}
	snap := model.HistorySnapshot{Limit: fetch, Exchanges: exchanges}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, userID, snap)
		}
	}
	return snap.Newest(limit), nil
}

func (s *ChatService) Get(ctx context.Context, userID uint, id string) (*model.ChatExchange, error) {
	if userID == 0 || strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	exchange, err := s.store.GetByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if exchange == nil {
		return nil, ErrNotFound
	}
	return exchange, nil
}

func (s *ChatService) Delete(ctx context.Context, userID uint, id string) error {
	if userID == 0 || strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}
	ok, err := s.store.DeleteByIDAndUserID(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, userID)
	}
	return nil
}

func buildPrompt(passages []string, question string) []ai.ChatMessage {
	messages := []ai.ChatMessage{{Role: ai.RoleSystem, Content: systemPrompt}}
	if len(passages) > 0 {
		var b strings.Builder
		b.WriteString("Use the following reference material when it is relevant:\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "\n[%d] %s\n", i+1, p)
		}
		messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: b.String()})
	}
	return append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: question})
}

// DirectExchangeRecorder writes exchanges straight to the store. It is used
// when no message broker is configured.
type DirectExchangeRecorder struct {
	Store interface {
		Create(ctx context.Context, exchange *model.ChatExchange) error
	}
}

func (r DirectExchangeRecorder) Publish(ctx context.Context, exchange model.ChatExchange) error {
	if r.Store == nil {
		return ErrExchangeRecord
	}
	if err := r.Store.Create(ctx, &exchange); err != nil {
		return fmt.Errorf("%w: %v", ErrExchangeRecord, err)
	}
	return nil
}
