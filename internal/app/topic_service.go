package app

import (
	"context"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"constitution-gpt/internal/corpus"
	"constitution-gpt/internal/model"
	"constitution-gpt/internal/pkg/pdfextract"
)

type TopicStore interface {
	CreateIfMissing(ctx context.Context, topic *model.Topic) (bool, error)
	Upsert(ctx context.Context, topic *model.Topic) error
	GetByID(ctx context.Context, id uint) (*model.Topic, error)
	ListAll(ctx context.Context) ([]model.Topic, error)
}

type TopicIndexer interface {
	Index(ctx context.Context, topics []model.Topic) error
	Reindex(ctx context.Context, topics []model.Topic) error
}

type TopicService struct {
	store       TopicStore
	indexer     TopicIndexer
	maxPDFBytes int64
	logger      *zap.Logger
}

type TopicInput struct {
	Title       string
	Description string
	Content     string
}

func NewTopicService(store TopicStore, indexer TopicIndexer, maxPDFBytes int64, logger *zap.Logger) *TopicService {
	if maxPDFBytes <= 0 {
		maxPDFBytes = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicService{store: store, indexer: indexer, maxPDFBytes: maxPDFBytes, logger: logger}
}

// SeedDefaults inserts built-in topics missing by title and seeds the
// semantic index. Running it again inserts nothing.
func (s *TopicService) SeedDefaults(ctx context.Context) (int, error) {
	defaults, err := corpus.Default()
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, t := range defaults {
		ok, err := s.store.CreateIfMissing(ctx, &model.Topic{
			Title:       t.Title,
			Description: strings.TrimSpace(t.Description),
			Content:     strings.TrimSpace(t.Content),
		})
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	s.logger.Info("default topics seeded", zap.Int("inserted", inserted), zap.Int("known", len(defaults)))

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return inserted, err
	}
	if err := s.indexer.Index(ctx, all); err != nil {
		return inserted, err
	}
	return inserted, nil
}

func (s *TopicService) List(ctx context.Context) ([]model.Topic, error) {
	return s.store.ListAll(ctx)
}

func (s *TopicService) Get(ctx context.Context, id uint) (*model.Topic, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	topic, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, ErrNotFound
	}
	return topic, nil
}

// Search matches query case-insensitively against title, description and
// content. Results are in title order.
func (s *TopicService) Search(ctx context.Context, query string) ([]model.Topic, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidField("q", "must not be empty")
	}
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return matchTopics(all, query), nil
}

// Upsert stores an admin-provided topic and rebuilds the semantic index.
func (s *TopicService) Upsert(ctx context.Context, input TopicInput) (*model.Topic, error) {
	topic := &model.Topic{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Content:     strings.TrimSpace(input.Content),
	}
	if topic.Title == "" {
		return nil, invalidField("title", "must not be empty")
	}
	if topic.Content == "" {
		return nil, invalidField("content", "must not be empty")
	}
	if err := s.store.Upsert(ctx, topic); err != nil {
		return nil, err
	}
	if err := s.Reindex(ctx); err != nil {
		return nil, err
	}
	return topic, nil
}

// ImportPDF extracts the text of a PDF and stores it as topic content.
func (s *TopicService) ImportPDF(ctx context.Context, title, description string, r io.Reader) (*model.Topic, error) {
	text, err := pdfextract.ExtractText(r, s.maxPDFBytes)
	if err != nil {
		return nil, invalidField("file", err.Error())
	}
	return s.Upsert(ctx, TopicInput{Title: title, Description: description, Content: text})
}

func (s *TopicService) Reindex(ctx context.Context) error {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}
	return s.indexer.Reindex(ctx, all)
}

// matchTopics treats query as a case-insensitive regular expression, or as a
// literal when it does not compile.
func matchTopics(topics []model.Topic, query string) []model.Topic {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	}
	out := make([]model.Topic, 0, len(topics))
	for _, t := range topics {
		if re.MatchString(t.Title) || re.MatchString(t.Description) || re.MatchString(t.Content) {
			out = append(out, t)
		}
	}
	return out
}
