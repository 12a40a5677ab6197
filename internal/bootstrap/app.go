package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"constitution-gpt/internal/ai"
	"constitution-gpt/internal/app"
	"constitution-gpt/internal/cache"
	"constitution-gpt/internal/config"
	"constitution-gpt/internal/filestore"
	"constitution-gpt/internal/job"
	"constitution-gpt/internal/model"
	"constitution-gpt/internal/platform/database"
	rabbitmqClient "constitution-gpt/internal/platform/rabbitmq"
	redisClient "constitution-gpt/internal/platform/redis"
	"constitution-gpt/internal/repository"
	"constitution-gpt/internal/schedule"
	"constitution-gpt/internal/worker"
)

// App owns every long-lived resource of the process. Redis and MQConn are nil
// when the matching section is disabled.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Files  filestore.Store

	ExchangeWorker *worker.ExchangePersistWorker
	Scheduler      *schedule.CronScheduler

	Auth         *app.AuthService
	RAG          *app.RAGService
	Topics       *app.TopicService
	Chat         *app.ChatService
	Lawyers      *app.LawyerService
	Reviews      *app.ReviewService
	Appointments *app.AppointmentService
	Messages     *app.MessageService

	sessions *repository.RefreshSessionRepository

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	a.DB = db
	if err := db.AutoMigrate(
		&model.User{},
		&model.RefreshSession{},
		&model.Topic{},
		&model.TopicChunk{},
		&model.ChatExchange{},
		&model.DirectMessage{},
		&model.Appointment{},
		&model.Review{},
	); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	a.sessions = repository.NewRefreshSessionRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	chunkRepo := repository.NewTopicChunkRepository(db)
	exchangeRepo := repository.NewChatExchangeRepository(db)

	var historyCache app.HistoryCache
	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		historyCache = cache.NewHistoryCache(
			a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	var recorder app.ExchangeRecorder
	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ExchangePersistQueue)
		if err != nil {
			return err
		}
		recorder = rabbitmqClient.NewExchangePublisher(a.MQConn, cfg.RabbitMQ.ExchangePersistQueue)
		a.ExchangeWorker = worker.NewExchangePersistWorker(a.MQConn, exchangeRepo, cfg.RabbitMQ.ExchangePersistQueue, a.Logger)
	}

	a.Files, err = filestore.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init file store failed: %w", err)
	}

	completer, err := newCompleter(cfg)
	if err != nil {
		return err
	}

	a.Auth = app.NewAuthService(userRepo, a.sessions, app.AuthOptions{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute,
		RefreshTTL:    time.Duration(cfg.Auth.RefreshTTLHours) * time.Hour,
		BcryptCost:    cfg.Auth.BcryptCost,
	}, a.Logger)
	a.RAG = app.NewRAGService(topicRepo, chunkRepo, newEmbedder(cfg), app.RAGOptions{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		TopN:         cfg.RAG.TopN,
		EmbedTimeout: time.Duration(cfg.RAG.EmbedTimeoutSeconds) * time.Second,
	}, a.Logger)
	a.Topics = app.NewTopicService(topicRepo, a.RAG, cfg.Storage.MaxUploadBytes, a.Logger)
	a.Chat = app.NewChatService(a.RAG, completer, exchangeRepo, recorder, historyCache, app.ChatOptions{
		ContextSize:       cfg.RAG.TopN,
		CompletionTimeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, a.Logger)
	a.Lawyers = app.NewLawyerService(userRepo, a.Logger)
	a.Reviews = app.NewReviewService(repository.NewReviewRepository(db), a.Lawyers)
	a.Appointments = app.NewAppointmentService(repository.NewAppointmentRepository(db), a.Lawyers, nil, a.Logger)
	a.Messages = app.NewMessageService(repository.NewDirectMessageRepository(db), userRepo, a.Files, cfg.Storage.MaxUploadBytes, a.Logger)
	return nil
}

// StartBackground launches the persist worker, the cron jobs and, when
// configured, the topic seed. Seed and index failures are logged only; search
// falls back to keywords until the index is ready.
func (a *App) StartBackground(ctx context.Context) error {
	if a.ExchangeWorker != nil {
		if err := a.ExchangeWorker.Start(ctx); err != nil {
			return fmt.Errorf("start exchange worker failed: %w", err)
		}
	}

	a.Scheduler = schedule.NewCronScheduler(a.Logger)
	sweep := job.NewRefreshSessionSweepJob(a.sessions, time.Now, a.Logger)
	if err := a.Scheduler.AddJob(sweep, a.Config.Jobs.RefreshSweepSpec); err != nil {
		return err
	}
	a.Scheduler.Start(ctx)

	go func() {
		if a.Config.RAG.SeedOnStartup {
			if _, err := a.Topics.SeedDefaults(ctx); err != nil {
				a.Logger.Warn("seed default topics failed", zap.Error(err))
			}
			return
		}
		if err := a.RAG.Warm(ctx); err != nil {
			a.Logger.Warn("warm semantic index failed", zap.Error(err))
		}
	}()
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ExchangeWorker != nil {
		a.ExchangeWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}

func newCompleter(cfg *config.Config) (ai.Completer, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	switch cfg.LLM.Provider {
	case "openai":
		return ai.NewOpenAICompatibleClient(ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		}, timeout), nil
	case "gemini":
		return ai.NewGeminiClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.Embedding.Model), nil
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
}

// newEmbedder returns nil for the "none" backend, which leaves retrieval on
// keyword matching only.
func newEmbedder(cfg *config.Config) ai.Embedder {
	var base ai.Embedder
	switch cfg.Embedding.Backend {
	case "local":
		base = ai.NewHashingEmbedder(cfg.Embedding.Dimension)
	case "openai":
		base = ai.NewRemoteEmbedder(ai.EmbeddingConfig{
			BaseURL:   cfg.Embedding.BaseURL,
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			BatchSize: cfg.Embedding.BatchSize,
		}, time.Duration(cfg.RAG.EmbedTimeoutSeconds)*time.Second)
	case "gemini":
		apiKey := cfg.Embedding.APIKey
		if apiKey == "" {
			apiKey = cfg.LLM.APIKey
		}
		base = ai.NewGeminiClient(apiKey, cfg.LLM.Model, cfg.Embedding.Model)
	default:
		return nil
	}
	if cfg.Embedding.CacheSize <= 0 {
		return base
	}
	return ai.WrapLRUCache(base, cfg.Embedding.CacheSize, time.Duration(cfg.Embedding.CacheTTLSeconds)*time.Second)
}
