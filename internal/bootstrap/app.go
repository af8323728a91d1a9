package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docchat/internal/ai"
	appsvc "docchat/internal/app"
	"docchat/internal/cache"
	"docchat/internal/config"
	"docchat/internal/docstore"
	"docchat/internal/model"
	mysqlClient "docchat/internal/platform/mysql"
	rabbitmqClient "docchat/internal/platform/rabbitmq"
	redisClient "docchat/internal/platform/redis"
	"docchat/internal/rag"
	"docchat/internal/repository"
	"docchat/internal/worker"
)

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Engine        *rag.Engine
	Docs          *docstore.Store
	TurnPublisher *rabbitmqClient.TurnPublisher
	TurnWorker    *worker.TurnPersistWorker
	Documents     *appsvc.DocumentService
	Chat          *appsvc.ChatService

	embedder  rag.Embedder
	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Document{}, &model.Chunk{}, &model.Turn{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	turnRepo := repository.NewTurnRepository(mysqlDB)
	turnWorker := worker.NewTurnPersistWorker(mqConn, turnRepo, cfg.RabbitMQ.TurnPersistQueue)
	if err := turnWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start turn worker failed: %w", err)
	}
	turnPublisher := rabbitmqClient.NewTurnPublisher(mqConn, cfg.RabbitMQ.TurnPersistQueue)

	aiClient := ai.NewClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second)
	generator := aiClient.Chat(ai.ChatConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxRetries:  cfg.LLM.MaxRetries,
	})
	embedder, innerEmbedder, err := newEmbedder(cfg, aiClient, redisCli)
	if err != nil {
		return nil, err
	}

	engine := rag.NewEngine(rag.Options{
		Generator:       generator,
		Embedder:        embedder,
		ChunkSize:       cfg.Retrieval.ChunkSize,
		ChunkOverlap:    cfg.Retrieval.ChunkOverlap,
		QueryExpansions: cfg.Retrieval.QueryExpansions,
		TopK:            cfg.Retrieval.TopK,
	})

	docs, err := docstore.New(cfg.Storage.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init document store failed: %w", err)
	}

	docRepo := repository.NewDocumentRepository(mysqlDB)
	chunkRepo := repository.NewChunkRepository(mysqlDB)
	documents := appsvc.NewDocumentService(docs, docRepo, chunkRepo, engine)
	chat := appsvc.NewChatService(engine, turnPublisher, turnRepo)

	// Warm start from persisted embeddings. A failure here only means the
	// service comes up without an index until the next upload.
	if err := documents.RestoreIndex(ctx); err != nil {
		log.Printf("index warm start failed: %v", err)
	}

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		Engine:        engine,
		Docs:          docs,
		TurnPublisher: turnPublisher,
		TurnWorker:    turnWorker,
		Documents:     documents,
		Chat:          chat,
		embedder:      innerEmbedder,
		StartedAt:     time.Now(),
	}, nil
}

func newEmbedder(cfg *config.Config, aiClient *ai.Client, redisCli *redis.Client) (rag.Embedder, rag.Embedder, error) {
	var inner rag.Embedder
	switch cfg.Embedding.Provider {
	case "remote":
		inner = ai.NewRemoteEmbedder(aiClient, ai.EmbeddingConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
		})
	case "onnx":
		inner = ai.NewONNXEmbedder(
			cfg.Embedding.ONNXModelPath,
			cfg.Embedding.ONNXLibPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
		)
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	ttl := time.Duration(cfg.Embedding.CacheTTLSeconds) * time.Second
	return cache.NewEmbeddingCache(inner, redisCli, cfg.Embedding.Model, ttl), inner, nil
}

// LogStartup prints the effective runtime configuration minus secrets.
func (a *App) LogStartup() {
	log.Printf("app=%s env=%s addr=%s llm_model=%s embedding_provider=%s chunk=%d/%d top_k=%d expansions=%d",
		a.Config.App.Name,
		a.Config.App.Env,
		a.Config.HTTPAddr(),
		a.Config.LLM.Model,
		a.Config.Embedding.Provider,
		a.Config.Retrieval.ChunkSize,
		a.Config.Retrieval.ChunkOverlap,
		a.Config.Retrieval.TopK,
		a.Config.Retrieval.QueryExpansions,
	)
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TurnWorker != nil {
		a.TurnWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if closer, ok := a.embedder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
