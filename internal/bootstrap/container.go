package bootstrap

import (
	"context"
	"log"
	"time"

	"car-rental-assistant-be/internal/config"
	"car-rental-assistant-be/internal/controller"
	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/implementation"
	"car-rental-assistant-be/internal/repository/unitofwork"
	"car-rental-assistant-be/internal/service"
	"car-rental-assistant-be/pkg/assistant/flowstore"
	"car-rental-assistant-be/pkg/assistant/handlers"
	"car-rental-assistant-be/pkg/assistant/intent"
	"car-rental-assistant-be/pkg/assistant/orchestrator"
	"car-rental-assistant-be/pkg/assistant/respond"
	"car-rental-assistant-be/pkg/assistant/retrieval"
	"car-rental-assistant-be/pkg/assistant/sqltool"
	"car-rental-assistant-be/pkg/embedding"
	llmOllama "car-rental-assistant-be/pkg/llm/ollama"

	pktNats "car-rental-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// popularCacheTTL bounds how stale the popularity fallback may get.
const popularCacheTTL = 10 * time.Minute

type Container struct {
	// Controllers
	ChatController  controller.IChatController
	IndexController controller.IIndexController

	// Background services (exposed for main.go to run)
	ChatService     service.IChatService
	IndexingService service.IIndexingService

	// Infrastructure handles exposed for shutdown
	Publisher  *pktNats.Publisher
	Subscriber *pktNats.Subscriber
	Logger     logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Event bus for in-process reindex requests
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// AI providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
	)
	llmProvider := llmOllama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.ChatModel)
	log.Printf("[INFO] Using Ollama at %s (embed=%s chat=%s)", cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.ChatModel)

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)

	// Conversation checkpoints live in Redis; fall back to process memory
	// when Redis is unreachable so development still works.
	sessionTTL := time.Duration(cfg.Assistant.SessionTTLHours) * time.Hour
	var checkpoints flowstore.Store
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Checkpoints are in-memory only", err)
		checkpoints = flowstore.NewMemoryStore(sessionTTL)
	} else {
		checkpoints = flowstore.NewRedisStore(rdb, sessionTTL)
	}

	// Repositories outside a transaction scope
	carEmbeddingRepo := implementation.NewCarEmbeddingRepository(db)
	docEmbeddingRepo := implementation.NewDocumentEmbeddingRepository(db)
	bookingRepo := implementation.NewBookingRepository(db)
	rawQueryRepo := implementation.NewRawQueryRepository(db)

	// Assistant graph
	engine := retrieval.NewEngine(
		embeddingProvider,
		carEmbeddingRepo,
		docEmbeddingRepo,
		bookingRepo,
		popularCacheTTL,
		sysLogger,
	)

	handlerCfg := handlers.DefaultConfig()
	handlerCfg.InventoryTopK = cfg.Assistant.InventoryTopK
	handlerCfg.InventoryThreshold = cfg.Assistant.InventoryThreshold
	handlerCfg.DocumentTopK = cfg.Assistant.DocumentTopK
	handlerCfg.DocumentThreshold = cfg.Assistant.DocumentThreshold
	handlerCfg.RecommendationTimeout = time.Duration(cfg.Assistant.RecommendationTimeoutSec) * time.Second
	handlerCfg.ChatModel = cfg.Ai.ChatModel

	sqlExecutor := sqltool.NewExecutor(
		sqltool.NewValidator(sqltool.DefaultAllowedTables),
		rawQueryRepo,
		sysLogger,
	)

	classifier := intent.NewClassifier(llmProvider, sysLogger, cfg.Ai.ChatModel)
	generator := respond.NewGenerator(llmProvider, cfg.Ai.ChatModel, sysLogger)

	orch := orchestrator.New(
		classifier,
		generator,
		sysLogger,
		handlers.NewInventoryHandler(engine, bookingRepo, handlerCfg, sysLogger),
		handlers.NewDocumentsHandler(engine, handlerCfg, sysLogger),
		handlers.NewContextualHandler(engine, sysLogger),
		handlers.NewBookingHandler(llmProvider, sqlExecutor, handlerCfg, sysLogger),
	)

	// Services
	chatService := service.NewChatService(
		uowFactory,
		orch,
		checkpoints,
		llmProvider,
		natsPub,
		sysLogger,
		cfg.Ai.ChatModel,
		cfg.Assistant.HistoryKeepLast,
	)
	indexingService := service.NewIndexingService(
		uowFactory,
		embeddingProvider,
		pubSub,
		cfg.Assistant.ReindexCarTopic,
		natsPub,
		sysLogger,
	)

	return &Container{
		ChatController:  controller.NewChatController(chatService, sysLogger),
		IndexController: controller.NewIndexController(indexingService),
		ChatService:     chatService,
		IndexingService: indexingService,
		Publisher:       natsPub,
		Subscriber:      natsSub,
		Logger:          sysLogger,
	}
}
