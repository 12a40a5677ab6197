package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"constitution-gpt/internal/ai"
	"constitution-gpt/internal/model"
	"constitution-gpt/internal/vectorstore"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
	defaultTopN         = 3
	embeddingBatchSize  = 32
	topicChunkSource    = "default_topics"
)

type SemanticStatus int

const (
	SemanticOK SemanticStatus = iota
	SemanticEmpty
	SemanticUnavailable
)

func (s SemanticStatus) String() string {
	switch s {
	case SemanticOK:
		return "ok"
	case SemanticEmpty:
		return "empty"
	default:
		return "unavailable"
	}
}

// SemanticResult is the outcome of a vector search. Err is set only for
// SemanticUnavailable.
type SemanticResult struct {
	Status   SemanticStatus
	Passages []string
	Err      error
}

type TopicSource interface {
	ListAll(ctx context.Context) ([]model.Topic, error)
}

type ChunkStore interface {
	CountByModel(ctx context.Context, embeddingModel string) (int64, error)
	CreateBatch(ctx context.Context, chunks []model.TopicChunk) error
	ListByModel(ctx context.Context, embeddingModel string) ([]model.TopicChunk, error)
	DeleteByModel(ctx context.Context, embeddingModel string) error
}

type RAGOptions struct {
	ChunkSize    int
	ChunkOverlap int
	TopN         int
	EmbedTimeout time.Duration
}

// RAGService retrieves context passages for a question: semantic search over
// indexed topic chunks first, keyword matching over topics as the fallback.
type RAGService struct {
	// mu serialises seeding and re-indexing.
	mu       sync.Mutex
	topics   TopicSource
	chunks   ChunkStore
	embedder ai.Embedder
	index    *vectorstore.Memory
	splitter *TextSplitter
	opts     RAGOptions
	logger   *zap.Logger
}

// NewRAGService builds the engine. A nil embedder disables semantic search and
// every query goes to the keyword fallback.
func NewRAGService(topics TopicSource, chunks ChunkStore, embedder ai.Embedder, opts RAGOptions, logger *zap.Logger) *RAGService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = defaultChunkOverlap
	}
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGService{
		topics:   topics,
		chunks:   chunks,
		embedder: embedder,
		index:    vectorstore.NewMemory(),
		splitter: NewTextSplitter(opts.ChunkSize, opts.ChunkOverlap),
		opts:     opts,
		logger:   logger.Named("rag"),
	}
}

func (s *RAGService) SemanticEnabled() bool {
	return s.embedder != nil
}

type IndexStats struct {
	Semantic bool   `json:"semantic"`
	Model    string `json:"model,omitempty"`
	Entries  int    `json:"entries"`
}

func (s *RAGService) Stats() IndexStats {
	st := IndexStats{Semantic: s.embedder != nil, Entries: s.index.Len()}
	if s.embedder != nil {
		st.Model = s.embedder.ModelName()
	}
	return st
}

// Warm loads persisted chunks of the active embedding model into memory.
func (s *RAGService) Warm(ctx context.Context) error {
	if s.embedder == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Index seeds the semantic index from topics. It is a no-op when chunks for
// the active model already exist.
func (s *RAGService) Index(ctx context.Context, topics []model.Topic) error {
	if s.embedder == nil {
		s.logger.Info("semantic search disabled, skip indexing")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(ctx, topics)
}

// Reindex drops every chunk of the active model and indexes topics again.
func (s *RAGService) Reindex(ctx context.Context, topics []model.Topic) error {
	if s.embedder == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.chunks.DeleteByModel(ctx, s.embedder.ModelName()); err != nil {
		return err
	}
	s.index.Reset()
	return s.indexLocked(ctx, topics)
}

func (s *RAGService) indexLocked(ctx context.Context, topics []model.Topic) error {
	modelName := s.embedder.ModelName()
	existing, err := s.chunks.CountByModel(ctx, modelName)
	if err != nil {
		return err
	}
	if existing > 0 {
		s.logger.Info("semantic index already seeded", zap.String("model", modelName), zap.Int64("chunks", existing))
		if s.index.Len() == 0 {
			return s.loadLocked(ctx)
		}
		return nil
	}

	var (
		rows  []model.TopicChunk
		texts []string
	)
	for i, topic := range topics {
		doc := fmt.Sprintf("%s: %s", topic.Title, topic.Content)
		for j, piece := range s.splitter.Split(doc) {
			rows = append(rows, model.TopicChunk{
				ChunkID:        fmt.Sprintf("doc_%d_chunk_%d", i, j),
				EmbeddingModel: modelName,
				Title:          topic.Title,
				Source:         topicChunkSource,
				Content:        piece,
			})
			texts = append(texts, piece)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("embed topic chunks failed: %w", err)
		}
		if len(vecs) != end-start {
			return errors.New("embedding count mismatch")
		}
		for k, vec := range vecs {
			rows[start+k].SetEmbedding(vec)
		}
	}

	if err := s.chunks.CreateBatch(ctx, rows); err != nil {
		return err
	}
	if err := s.addToIndex(rows); err != nil {
		return err
	}
	s.logger.Info("semantic index seeded", zap.String("model", modelName), zap.Int("topics", len(topics)), zap.Int("chunks", len(rows)))
	return nil
}

func (s *RAGService) loadLocked(ctx context.Context) error {
	rows, err := s.chunks.ListByModel(ctx, s.embedder.ModelName())
	if err != nil {
		return err
	}
	s.index.Reset()
	if err := s.addToIndex(rows); err != nil {
		return err
	}
	s.logger.Info("semantic index loaded", zap.Int("chunks", s.index.Len()))
	return nil
}

func (s *RAGService) addToIndex(rows []model.TopicChunk) error {
	entries := make([]vectorstore.Entry, 0, len(rows))
	for i := range rows {
		vec := rows[i].EmbeddingVector()
		if len(vec) == 0 {
			continue
		}
		entries = append(entries, vectorstore.Entry{
			ID:      rows[i].ChunkID,
			Title:   rows[i].Title,
			Content: rows[i].Content,
			Vector:  vec,
		})
	}
	if len(entries) == 0 {
		return nil
	}
	return s.index.Add(entries...)
}

// Query returns at most n context passages for text, so n <= 0 yields none.
// It never fails: any semantic problem degrades to keyword matching, and any
// keyword problem to an empty result. A blank text has nothing to embed and
// goes straight to keyword matching, where it matches every topic.
func (s *RAGService) Query(ctx context.Context, text string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return s.keywordSearch(ctx, text, n)
	}

	res := s.semanticSearch(ctx, text, n)
	if res.Status == SemanticOK {
		return res.Passages
	}
	if res.Err != nil {
		s.logger.Warn("semantic search unavailable, using keyword fallback", zap.Error(res.Err))
	} else {
		s.logger.Debug("semantic search returned nothing, using keyword fallback", zap.Stringer("status", res.Status))
	}
	return s.keywordSearch(ctx, text, n)
}

func (s *RAGService) semanticSearch(ctx context.Context, text string, n int) SemanticResult {
	if s.embedder == nil {
		return SemanticResult{Status: SemanticUnavailable}
	}
	if s.index.Len() == 0 {
		return SemanticResult{Status: SemanticEmpty}
	}
	vecs, err := s.embed(ctx, []string{text})
	if err != nil {
		return SemanticResult{Status: SemanticUnavailable, Err: err}
	}
	if len(vecs) != 1 {
		return SemanticResult{Status: SemanticUnavailable, Err: errors.New("embedding count mismatch")}
	}
	matches, err := s.index.Search(vecs[0], n)
	if err != nil {
		return SemanticResult{Status: SemanticUnavailable, Err: err}
	}
	// matches are sorted, so a non-positive head means nothing is similar
	// (a query of only stopwords embeds to the zero vector)
	if len(matches) == 0 || matches[0].Score <= 0 {
		return SemanticResult{Status: SemanticEmpty}
	}
	passages := make([]string, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, m.Content)
	}
	return SemanticResult{Status: SemanticOK, Passages: passages}
}

func (s *RAGService) keywordSearch(ctx context.Context, text string, n int) []string {
	topics, err := s.topics.ListAll(ctx)
	if err != nil {
		s.logger.Error("keyword fallback failed", zap.Error(err))
		return []string{}
	}
	matched := matchTopics(topics, text)
	if len(matched) > n {
		matched = matched[:n]
	}
	out := make([]string, 0, len(matched))
	for _, t := range matched {
		out = append(out, fmt.Sprintf("%s: %s", t.Title, t.Content))
	}
	return out
}

func (s *RAGService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()
	return s.embedder.Embed(ctx, texts)
}
