package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"notification-hub-be/internal/config"
	"notification-hub-be/internal/handler"
	"notification-hub-be/internal/pkg/logger"
	"notification-hub-be/internal/pkg/mailer"
	"notification-hub-be/internal/repository/implementation"
	"notification-hub-be/internal/repository/memory"
	"notification-hub-be/internal/service"
	"notification-hub-be/internal/websocket"
	"notification-hub-be/pkg/delivery"

	pktNats "notification-hub-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// HTTP surface
	NotificationHandler *handler.NotificationHandler
	PreferenceHandler   *handler.PreferenceHandler

	// Background services (exposed for main.go to run)
	Dispatcher *service.DispatcherService
	Ingest     *service.IngestService

	WebSocketHub *websocket.Hub

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// The identity service mirrors user email addresses into Redis; this
	// service only reads them.
	resolveEmail := func(ctx context.Context, userID uuid.UUID) (string, error) {
		addr, err := rdb.HGet(ctx, "user_emails", userID.String()).Result()
		if err != nil {
			return "", fmt.Errorf("no email on record for %s: %w", userID, err)
		}
		return addr, nil
	}

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		resolveEmail,
	)

	// In-process dispatch bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	// WebSocket hub with its own high-volume log file
	hubLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	wsHub := websocket.NewHub(rdb, hubLogger)
	go wsHub.Run()

	// 3. Domain
	notifRepo := implementation.NewNotificationRepository(db)
	prefRepo := implementation.NewPreferenceRepository(db)
	prefCache := memory.NewPreferenceCache()

	prefService := service.NewPreferenceService(prefRepo, prefCache, sysLogger)
	engine := service.NewNotificationService(notifRepo, prefService, emailService, sysLogger)

	loc, err := time.LoadLocation(cfg.Delivery.Timezone)
	if err != nil {
		log.Printf("[WARN] Unknown timezone %q, quiet hours fall back to UTC", cfg.Delivery.Timezone)
		loc = time.UTC
	}
	evaluator := delivery.Evaluator{
		IsMarketing: func(notifType string) bool {
			return strings.HasPrefix(notifType, "marketing")
		},
		IsPromotional: func(notifType string) bool {
			return strings.HasPrefix(notifType, "promo")
		},
	}

	dispatcher := service.NewDispatcherService(
		pubSub,
		cfg.Delivery.DispatchTopic,
		prefService,
		evaluator,
		wsHub,
		emailService,
		loc,
		sysLogger,
	)
	engine.OnCreate(dispatcher.Publish)

	var ingest *service.IngestService
	if natsSub != nil {
		ingest = service.NewIngestService(engine, natsSub, sysLogger)
	}

	return &Container{
		NotificationHandler: handler.NewNotificationHandler(engine, natsPub, wsHub, sysLogger),
		PreferenceHandler:   handler.NewPreferenceHandler(prefService),
		Dispatcher:          dispatcher,
		Ingest:              ingest,
		WebSocketHub:        wsHub,
		Logger:              sysLogger,
	}
}
