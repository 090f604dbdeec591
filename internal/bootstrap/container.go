package bootstrap

import (
	"time"

	"conversation-core/internal/config"
	"conversation-core/internal/controller"
	"conversation-core/internal/pkg/logger"
	"conversation-core/internal/repository/unitofwork"
	"conversation-core/internal/service"
	"conversation-core/internal/websocket"
	"conversation-core/pkg/events"
	"conversation-core/pkg/filestore"
	"conversation-core/pkg/metrics"
	"conversation-core/pkg/sanitize"
	"conversation-core/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ConversationController controller.IConversationController

	// Services
	ConversationService service.IConversationService
	SearchService       service.ISearchService
	AnalyticsService    service.IAnalyticsService

	// Background
	WebSocketHub *websocket.Hub
	EventBus     *events.Bus
	Metrics      *metrics.Metrics
	Logger       logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	eventLogger := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	m := metrics.NewMetrics()

	fileStore, err := filestore.NewLocalStore(cfg.Storage.FilesDir)
	if err != nil {
		return nil, err
	}
	sanitizer := sanitize.New()
	vectors := vectorindex.New(db)

	// 2. Event Bus
	bus := events.NewBus(events.ConversationTopic, watermill.NewStdLogger(false, false))
	publisher := service.NewPublisherService(bus, m, sysLogger)

	// 3. Services
	analyticsService := service.NewAnalyticsService(uowFactory, service.AnalyticsSettings{
		CacheTTL:     time.Duration(cfg.Analytics.CacheTTLSeconds) * time.Second,
		ActivityDays: cfg.Analytics.ActivityDays,
		TopK:         cfg.Analytics.TopK,
	}, m, sysLogger)

	conversationService := service.NewConversationService(
		uowFactory,
		sanitizer,
		fileStore,
		vectors,
		publisher,
		analyticsService,
		m,
		sysLogger,
	)

	searchService := service.NewSearchService(uowFactory, sanitizer, service.SearchSettings{
		DefaultLimit:  cfg.Search.DefaultLimit,
		SnippetLength: cfg.Search.SnippetLength,
	}, m, sysLogger)

	fileService := service.NewFileService(conversationService, fileStore, m, sysLogger)
	embeddingService := service.NewEmbeddingService(conversationService, vectors, m, sysLogger)

	// 4. WebSocket
	hub := websocket.NewHub(bus, eventLogger)

	// 5. Controllers
	conversationController := controller.NewConversationController(
		conversationService,
		searchService,
		analyticsService,
		fileService,
		embeddingService,
		hub,
		cfg.App.JwtSecret,
	)

	return &Container{
		ConversationController: conversationController,
		ConversationService:    conversationService,
		SearchService:          searchService,
		AnalyticsService:       analyticsService,
		WebSocketHub:           hub,
		EventBus:               bus,
		Metrics:                m,
		Logger:                 sysLogger,
	}, nil
}
