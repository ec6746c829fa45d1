package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/controller"
	"ai-chat-be/internal/handler"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/internal/websocket"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/factory"
	pktNats "ai-chat-be/pkg/nats"
	"ai-chat-be/pkg/tools"
	"ai-chat-be/pkg/weather"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	UserController     controller.IUserController

	Authenticator serverutils.Authenticator
	UserResolver  serverutils.UserResolver

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	natsPub *pktNats.Publisher
	rdb     *redis.Client
	logger  *logger.ZapLogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	modelLogger := logger.NewIsolatedLogger(cfg.App.ModelLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)

	// 3. Model access
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Type:          cfg.Ai.LLMProvider,
		APIKey:        cfg.Ai.OpenAIAPIKey,
		BaseURL:       cfg.Ai.OpenAIBaseURL,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		DefaultModel:  cfg.Ai.DefaultModelID,
		ImageModel:    cfg.Ai.ImageModel,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.DefaultModelID)
	models := llm.NewRegistry()

	// 4. Infrastructure, all optional
	var relay events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		relay = natsPub
	}

	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb = redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, websocket fan-out stays local: %v", err)
		rdb.Close()
		rdb = nil
	}
	cancel()

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Keys.ChatEventsTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.ChatEventsTopic,
		relay,
		wsHub, // Hub implements NotificationDelivery
		wsLogger,
	)

	weatherClient := weather.NewClient(cfg.Weather.BaseURL, memory.NewWeatherCache(cfg.Weather.CacheTTL))
	coordinator := tools.NewCoordinator(llmProvider, uowFactory, weatherClient, publisherService, modelLogger)

	userService := service.NewUserService(uowFactory, cfg.Auth.EmailDomain, sysLogger)
	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		models,
		coordinator,
		memory.NewTurnRegistry(cfg.Ai.TurnTimeout),
		publisherService,
		sysLogger,
		cfg.Ai.MaxSteps,
	)
	documentService := service.NewDocumentService(uowFactory)

	authenticator := serverutils.NewJwtAuthenticator(cfg.Auth.JwtSecret, cfg.Auth.Issuer)
	notifHandler := handler.NewNotificationHandler(authenticator, userService, wsHub, wsLogger)

	// 6. Controllers
	return &Container{
		ChatController:     controller.NewChatController(chatService, cfg.Ai.TurnTimeout, sysLogger),
		DocumentController: controller.NewDocumentController(documentService),
		UserController:     controller.NewUserController(userService, models),

		Authenticator: authenticator,
		UserResolver:  userService,

		ConsumerService: consumerService,

		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,

		natsPub: natsPub,
		rdb:     rdb,
		logger:  sysLogger,
	}
}

// Close releases the optional connections and flushes logs.
func (c *Container) Close() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	c.logger.Sync()
}
