package bootstrap

import (
	"context"
	"log"
	"time"

	"angelamos-operations/internal/config"
	"angelamos-operations/internal/controller"
	"angelamos-operations/internal/handler"
	"angelamos-operations/internal/pkg/logger"
	"angelamos-operations/internal/repository/contract"
	"angelamos-operations/internal/repository/implementation"
	"angelamos-operations/internal/repository/memory"
	"angelamos-operations/internal/repository/redisstore"
	"angelamos-operations/internal/service"
	"angelamos-operations/internal/websocket"
	"angelamos-operations/pkg/database"
	pktNats "angelamos-operations/pkg/nats"
	"angelamos-operations/pkg/studio"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const snapshotTopic = "workflow.snapshots"

type Container struct {
	// Controllers
	WorkflowController  controller.IWorkflowController
	CalendarController  controller.ICalendarController
	LibraryController   controller.ILibraryController
	AnalyticsController controller.IAnalyticsController
	ChallengeController controller.IChallengeController
	HealthController    controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WorkflowService service.IWorkflowService
	NatsSubscriber  *pktNats.Subscriber

	// WebSockets
	WorkflowStreamHandler *handler.WorkflowStreamHandler
	WebSocketHub          *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	checks := map[string]controller.HealthCheck{}
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	// 3. Infrastructure
	// NATS
	var eventPublisher service.IEventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.NatsSubscriber = natsSub
		c.closers = append(c.closers, natsSub.Close)
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
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	c.closers = append(c.closers, func() { rdb.Close() })
	checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

	// 4. Snapshot storage
	snapshotRepo := newSnapshotRepository(cfg, rdb, checks)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsHub := websocket.NewHub(rdb, wsLogger)
	c.WebSocketHub = wsHub

	// 5. Services
	studioClient := studio.NewClient(cfg.Studio.BaseURL, cfg.Studio.Prefix, cfg.Studio.Timeout)
	queryCache := cache.New(5*time.Minute, 10*time.Minute)

	publisherService := service.NewPublisherService(snapshotTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, pubSub, snapshotTopic, snapshotRepo, sysLogger)

	c.WorkflowService = service.NewWorkflowService(
		studioClient,
		snapshotRepo,
		publisherService,
		wsHub,
		eventPublisher,
		cfg.Workflow,
		wsHub.Origin(),
		sysLogger,
	)
	calendarService := service.NewCalendarService(studioClient, queryCache)
	libraryService := service.NewLibraryService(studioClient, queryCache)
	analyticsService := service.NewAnalyticsService(studioClient, queryCache)
	challengeService := service.NewChallengeService(studioClient, queryCache)

	// 6. Controllers
	secret := cfg.App.JwtSecret
	c.WorkflowController = controller.NewWorkflowController(c.WorkflowService, secret)
	c.CalendarController = controller.NewCalendarController(calendarService, secret)
	c.LibraryController = controller.NewLibraryController(libraryService, secret)
	c.AnalyticsController = controller.NewAnalyticsController(analyticsService, secret)
	c.ChallengeController = controller.NewChallengeController(challengeService, secret)
	c.HealthController = controller.NewHealthController(checks)
	c.WorkflowStreamHandler = handler.NewWorkflowStreamHandler(c.WorkflowService, wsHub, secret, wsLogger)

	return c
}

// newSnapshotRepository picks the snapshot backend. Postgres falls back to
// memory when the database is unreachable so the wizard keeps working.
func newSnapshotRepository(cfg *config.Config, rdb *redis.Client, checks map[string]controller.HealthCheck) contract.WorkflowSnapshotRepository {
	switch cfg.Workflow.SnapshotStore {
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Printf("[WARN] Unable to connect to GORM DB: %v. Snapshots kept in memory", err)
			return memory.NewWorkflowSnapshotRepository(cfg.Workflow.SnapshotTTL)
		}
		checks["postgres"] = pingDB(db)
		log.Printf("[INFO] Using snapshot store: POSTGRES")
		return implementation.NewWorkflowSnapshotRepository(db)
	case "memory":
		log.Printf("[INFO] Using snapshot store: MEMORY")
		return memory.NewWorkflowSnapshotRepository(cfg.Workflow.SnapshotTTL)
	default:
		log.Printf("[INFO] Using snapshot store: REDIS")
		return redisstore.NewWorkflowSnapshotRepository(rdb, cfg.Workflow.SnapshotTTL)
	}
}

func pingDB(db *gorm.DB) controller.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
