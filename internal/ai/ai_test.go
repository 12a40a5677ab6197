package ai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestCompleteSendsMessagesAndParsesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body struct {
			Model    string        `json:"model"`
			Messages []ChatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "m1", body.Model)
		require.Len(t, body.Messages, 2)
		require.Equal(t, RoleSystem, body.Messages[0].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Article 14 guarantees equality.  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(ChatConfig{BaseURL: srv.URL + "/v1/", APIKey: "key", Model: "m1"}, time.Second)
	out, err := c.Complete(context.Background(), []ChatMessage{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "what is article 14"},
	})
	require.NoError(t, err)
	require.Equal(t, "Article 14 guarantees equality.", out)
}

func TestCompleteSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`rate limited`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(ChatConfig{BaseURL: srv.URL, APIKey: "key", Model: "m1"}, time.Second)
	_, err := c.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestCompleteWithoutKeyIsUnavailable(t *testing.T) {
	c := NewOpenAICompatibleClient(ChatConfig{BaseURL: "http://unused", Model: "m1"}, time.Second)
	_, err := c.Complete(context.Background(), nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRemoteEmbedderBatchesAndOrders(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		// answer in reverse order, the client must restore it
		data := make([]item, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(len(body.Input[i]))}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	e := NewRemoteEmbedder(EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "emb", BatchSize: 2}, time.Second)
	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1}, {2}, {3}}, vecs)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
	require.Equal(t, "openai:emb", e.ModelName())
}

func TestHashingEmbedderIsDeterministicAndNormalised(t *testing.T) {
	e := NewHashingEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{"Right to Equality", "Right to Equality", "the of and"})
	require.NoError(t, err)
	require.Len(t, vecs[0], 64)
	require.Equal(t, vecs[0], vecs[1])

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	// only stopwords: zero vector
	for _, v := range vecs[2] {
		require.Zero(t, v)
	}
}

func TestHashingEmbedderRanksOverlapHigher(t *testing.T) {
	e := NewHashingEmbedder(256)
	vecs, err := e.Embed(context.Background(), []string{
		"equality before law",
		"Right to Equality: equality before law and equal protection",
		"Directive principles of state policy guide governance",
	})
	require.NoError(t, err)
	require.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

type countingEmbedder struct {
	calls  int
	inputs [][]string
}

func (c *countingEmbedder) ModelName() string { return "counting" }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.inputs = append(c.inputs, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestLRUCacheOnlyForwardsMisses(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLRUCache(next, 16, time.Minute)

	_, err := e.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	vecs, err := e.Embed(context.Background(), []string{"bb", "ccc", "a"})
	require.NoError(t, err)

	require.Equal(t, [][]float32{{2}, {3}, {1}}, vecs)
	require.Equal(t, 2, next.calls)
	require.Equal(t, []string{"ccc"}, next.inputs[1])
	require.Equal(t, "counting", e.ModelName())
}

func TestLRUCacheDisabledReturnsNext(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLRUCache(next, 0, time.Minute))
}

func TestGeminiClientBuiltOnce(t *testing.T) {
	g := NewGeminiClient("test-key", "gemini-chat", "gemini-embed")
	ctx := context.Background()

	first, err := g.client(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([]*genai.Client, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = g.client(ctx)
		}(i)
	}
	wg.Wait()
	for _, c := range got {
		require.Same(t, first, c)
	}
}

func TestGeminiWithoutKeyIsUnavailable(t *testing.T) {
	g := NewGeminiClient("  ", "gemini-chat", "gemini-embed")
	_, err := g.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = g.Embed(context.Background(), []string{"hi"})
	require.ErrorIs(t, err, ErrUnavailable)
	require.Nil(t, g.cli)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
