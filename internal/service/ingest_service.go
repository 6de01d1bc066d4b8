package service

import (
	"context"
	"fmt"
	"strings"

	"notification-hub-be/internal/pkg/logger"
	"notification-hub-be/pkg/events"
	pktNats "notification-hub-be/pkg/nats"

	"github.com/google/uuid"
)

// IngestService is the inbound delivery path: upstream systems publish
// notification events on the bus and this worker persists them.
type IngestService struct {
	engine     *NotificationService
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewIngestService(engine *NotificationService, sub *pktNats.Subscriber, log logger.ILogger) *IngestService {
	return &IngestService{
		engine:     engine,
		subscriber: sub,
		logger:     log,
	}
}

// Start begins listening to the event bus with a durable consumer.
func (s *IngestService) Start() {
	err := s.subscriber.Subscribe("notifications.>", "notification-ingest-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("IngestService", "Failed to start ingest subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("IngestService", "Ingest worker started, listening to notifications.>", nil)
}

func (s *IngestService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	uidStr, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(uidStr)
	if err != nil {
		// Unaddressable events can never be delivered; drop rather than retry.
		s.logger.Warn("IngestService", "Event without valid user_id dropped", map[string]interface{}{
			"event": event.EventType(),
		})
		return nil
	}

	notifType, _ := payload["type"].(string)
	if notifType == "" {
		notifType = strings.TrimPrefix(event.EventType(), "notifications.")
	}
	message, _ := payload["message"].(string)
	if message == "" {
		s.logger.Warn("IngestService", "Event without message dropped", map[string]interface{}{
			"event": event.EventType(),
		})
		return nil
	}

	var link *string
	if l, ok := payload["link"].(string); ok && l != "" {
		link = &l
	}

	if _, err := s.engine.Create(ctx, userID, notifType, message, link); err != nil {
		s.logger.Error("IngestService", fmt.Sprintf("Failed to persist notification for user %s", userID), map[string]interface{}{"error": err.Error()})
		return err // bus redelivers on error
	}
	return nil
}
