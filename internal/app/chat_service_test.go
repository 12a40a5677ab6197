package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"constitution-gpt/internal/ai"
	"constitution-gpt/internal/model"
)

type stubRetriever struct {
	passages []string
	gotN     int
}

func (r *stubRetriever) Query(_ context.Context, _ string, n int) []string {
	r.gotN = n
	if len(r.passages) > n {
		return r.passages[:n]
	}
	return r.passages
}

type stubCompleter struct {
	reply string
	err   error
	got   []ai.ChatMessage
	block bool
}

func (c *stubCompleter) Name() string { return "stub" }

func (c *stubCompleter) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	c.got = messages
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return c.reply, c.err
}

type fakeExchangeStore struct {
	mu        sync.Mutex
	rows      map[string]model.ChatExchange
	listCalls int
}

func newFakeExchangeStore() *fakeExchangeStore {
	return &fakeExchangeStore{rows: map[string]model.ChatExchange{}}
}

func (s *fakeExchangeStore) Create(_ context.Context, e *model.ChatExchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[e.ID] = *e
	return nil
}

func (s *fakeExchangeStore) ListByUserID(_ context.Context, userID uint, limit int) ([]model.ChatExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]model.ChatExchange, 0)
	for _, e := range s.rows {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeExchangeStore) GetByIDAndUserID(_ context.Context, id string, userID uint) (*model.ChatExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	return &e, nil
}

func (s *fakeExchangeStore) DeleteByIDAndUserID(_ context.Context, id string, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok || e.UserID != userID {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

type fakeHistoryCache struct {
	history map[uint]model.HistorySnapshot
	dirty   map[uint]bool
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{history: map[uint]model.HistorySnapshot{}, dirty: map[uint]bool{}}
}

func (c *fakeHistoryCache) GetHistory(_ context.Context, userID uint) (model.HistorySnapshot, bool, error) {
	h, ok := c.history[userID]
	return h, ok, nil
}

func (c *fakeHistoryCache) SetHistory(_ context.Context, userID uint, snap model.HistorySnapshot) error {
	c.history[userID] = snap
	return nil
}

func (c *fakeHistoryCache) DeleteHistory(_ context.Context, userID uint) error {
	delete(c.history, userID)
	return nil
}

func (c *fakeHistoryCache) MarkDirty(_ context.Context, userID uint) error {
	c.dirty[userID] = true
	return nil
}

func (c *fakeHistoryCache) IsDirty(_ context.Context, userID uint) (bool, error) {
	return c.dirty[userID], nil
}

type failingRecorder struct{}

func (failingRecorder) Publish(context.Context, model.ChatExchange) error {
	return errors.New("broker down")
}

func newTestChat(retriever ContextRetriever, completer ai.Completer) (*ChatService, *fakeExchangeStore, *fakeHistoryCache, *testClock) {
	store := newFakeExchangeStore()
	cache := newFakeHistoryCache()
	clock := &testClock{now: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)}
	svc := NewChatService(retriever, completer, store, nil, cache, ChatOptions{Now: clock.Now}, nil)
	return svc, store, cache, clock
}

func TestSendBuildsPromptAndRecords(t *testing.T) {
	retriever := &stubRetriever{passages: []string{"Fundamental Rights: Right to Equality", "Judiciary: Supreme Court"}}
	completer := &stubCompleter{reply: "  Article 14 guarantees equality before law.  "}
	svc, store, cache, _ := newTestChat(retriever, completer)

	got, err := svc.Send(context.Background(), SendInput{UserID: 7, Message: "  What is Article 14? "})
	require.NoError(t, err)
	require.Equal(t, "Article 14 guarantees equality before law.", got.Response)
	require.Equal(t, "What is Article 14?", got.Message)
	require.Equal(t, 2, got.ContextCount)
	require.Len(t, got.ID, 36)
	require.Equal(t, defaultTopN, retriever.gotN)

	require.Len(t, completer.got, 3)
	require.Equal(t, ai.RoleSystem, completer.got[0].Role)
	require.Equal(t, systemPrompt, completer.got[0].Content)
	require.Contains(t, completer.got[1].Content, "[1] Fundamental Rights: Right to Equality")
	require.Contains(t, completer.got[1].Content, "[2] Judiciary: Supreme Court")
	require.Equal(t, ai.ChatMessage{Role: ai.RoleUser, Content: "What is Article 14?"}, completer.got[2])

	stored, err := store.GetByIDAndUserID(context.Background(), got.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.True(t, cache.dirty[7])
}

func TestSendWithoutContextSkipsReferenceBlock(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	svc, _, _, _ := newTestChat(&stubRetriever{}, completer)

	got, err := svc.Send(context.Background(), SendInput{UserID: 1, Message: "hello"})
	require.NoError(t, err)
	require.Zero(t, got.ContextCount)
	require.Len(t, completer.got, 2)
}

func TestSendRejectsBadInput(t *testing.T) {
	svc, _, _, _ := newTestChat(&stubRetriever{}, &stubCompleter{reply: "ok"})
	ctx := context.Background()

	_, err := svc.Send(ctx, SendInput{UserID: 1, Message: "   "})
	require.ErrorIs(t, err, ErrMessageEmpty)

	_, err = svc.Send(ctx, SendInput{Message: "hi"})
	require.ErrorIs(t, err, ErrInvalidInput)

	long := make([]rune, maxMessageRunes+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Send(ctx, SendInput{UserID: 1, Message: string(long)})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSendCompletionFailure(t *testing.T) {
	svc, store, _, _ := newTestChat(&stubRetriever{}, &stubCompleter{err: ai.ErrUnavailable})

	_, err := svc.Send(context.Background(), SendInput{UserID: 1, Message: "hi"})
	require.ErrorIs(t, err, ErrCompletionFailed)
	require.Empty(t, store.rows)
}

func TestSendCompletionTimeout(t *testing.T) {
	store := newFakeExchangeStore()
	svc := NewChatService(&stubRetriever{}, &stubCompleter{block: true}, store, nil, nil, ChatOptions{CompletionTimeout: 20 * time.Millisecond}, nil)

	_, err := svc.Send(context.Background(), SendInput{UserID: 1, Message: "hi"})
	require.ErrorIs(t, err, ErrCompletionFailed)
}

func TestSendSurvivesRecorderFailure(t *testing.T) {
	store := newFakeExchangeStore()
	svc := NewChatService(&stubRetriever{}, &stubCompleter{reply: "ok"}, store, failingRecorder{}, nil, ChatOptions{}, nil)

	got, err := svc.Send(context.Background(), SendInput{UserID: 1, Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "ok", got.Response)
	require.Empty(t, store.rows)
}

func TestHistoryNewestFirstAndCached(t *testing.T) {
	svc, store, cache, clock := newTestChat(&stubRetriever{}, &stubCompleter{reply: "ok"})
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		_, err := svc.Send(ctx, SendInput{UserID: 3, Message: q})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	_, err := svc.Send(ctx, SendInput{UserID: 4, Message: "other user"})
	require.NoError(t, err)

	// dirty marker expired
	delete(cache.dirty, 3)

	got, err := svc.History(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "third", got[0].Message)
	require.Equal(t, "second", got[1].Message)
	require.Equal(t, 1, store.listCalls)

	got, err = svc.History(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 1, store.listCalls)
}

func TestHistoryDefaultLimitServedFromCache(t *testing.T) {
	svc, store, cache, clock := newTestChat(&stubRetriever{}, &stubCompleter{reply: "ok"})
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		_, err := svc.Send(ctx, SendInput{UserID: 3, Message: q})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	delete(cache.dirty, 3)

	for i := 0; i < 3; i++ {
		got, err := svc.History(ctx, 3, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "third", got[0].Message)
	}
	require.Equal(t, 1, store.listCalls)
	require.Equal(t, defaultHistorySize, cache.history[3].Limit)

	// a smaller page is cut from the same snapshot
	got, err := svc.History(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, store.listCalls)
}

func TestHistoryLargerThanSnapshotReadsStore(t *testing.T) {
	svc, store, cache, clock := newTestChat(&stubRetriever{}, &stubCompleter{reply: "ok"})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Send(ctx, SendInput{UserID: 5, Message: "question"})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	delete(cache.dirty, 5)
	// a full snapshot of two says nothing about older exchanges
	partial := make([]model.ChatExchange, 0, 2)
	for _, e := range store.rows {
		if len(partial) < 2 {
			partial = append(partial, e)
		}
	}
	cache.history[5] = model.HistorySnapshot{Limit: 2, Exchanges: partial}

	got, err := svc.History(ctx, 5, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, 1, store.listCalls)
	require.Equal(t, defaultHistorySize, cache.history[5].Limit)
}

func TestGetAndDeleteAreScopedToOwner(t *testing.T) {
	svc, _, _, _ := newTestChat(&stubRetriever{}, &stubCompleter{reply: "ok"})
	ctx := context.Background()

	ex, err := svc.Send(ctx, SendInput{UserID: 5, Message: "hi"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 6, ex.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 6, ex.ID), ErrNotFound)

	got, err := svc.Get(ctx, 5, ex.ID)
	require.NoError(t, err)
	require.Equal(t, ex.ID, got.ID)

	require.NoError(t, svc.Delete(ctx, 5, ex.ID))
	_, err = svc.Get(ctx, 5, ex.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
