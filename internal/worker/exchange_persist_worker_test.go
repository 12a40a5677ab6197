package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"constitution-gpt/internal/model"
	"constitution-gpt/internal/repository"
)

type recordingWriter struct {
	err  error
	rows []model.ChatExchange
}

func (w *recordingWriter) Create(_ context.Context, e *model.ChatExchange) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, *e)
	return nil
}

func payload(t *testing.T, e model.ChatExchange) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func TestPersistStoresExchange(t *testing.T) {
	store := &recordingWriter{}
	w := NewExchangePersistWorker(nil, store, "q", nil)
	e := model.ChatExchange{ID: "0b6d4c1e-8f7a-4d6e-9a3b-2c1d0e9f8a7b", UserID: 3, Message: "hi", Response: "hello", CreatedAt: time.Unix(1700000000, 0).UTC()}

	ack, requeue := w.persist(context.Background(), payload(t, e))
	require.True(t, ack)
	require.False(t, requeue)
	require.Len(t, store.rows, 1)
	require.Equal(t, e.ID, store.rows[0].ID)
	require.Equal(t, "hello", store.rows[0].Response)
	require.True(t, e.CreatedAt.Equal(store.rows[0].CreatedAt))
}

func TestPersistDropsGarbage(t *testing.T) {
	w := NewExchangePersistWorker(nil, &recordingWriter{}, "q", nil)

	ack, requeue := w.persist(context.Background(), []byte("{not json"))
	require.False(t, ack)
	require.False(t, requeue)

	ack, requeue = w.persist(context.Background(), payload(t, model.ChatExchange{Message: "no id"}))
	require.False(t, ack)
	require.False(t, requeue)
}

func TestPersistDuplicateIsAcked(t *testing.T) {
	store := &recordingWriter{err: fmt.Errorf("create chat exchange failed: %w", repository.ErrDuplicate)}
	w := NewExchangePersistWorker(nil, store, "q", nil)

	ack, _ := w.persist(context.Background(), payload(t, model.ChatExchange{ID: "x", UserID: 1}))
	require.True(t, ack)
}

func TestPersistRequeuesOnStoreFailure(t *testing.T) {
	store := &recordingWriter{err: errors.New("connection refused")}
	w := NewExchangePersistWorker(nil, store, "q", nil)

	ack, requeue := w.persist(context.Background(), payload(t, model.ChatExchange{ID: "x", UserID: 1}))
	require.False(t, ack)
	require.True(t, requeue)
}
