package service

import (
	"context"
	"encoding/json"
	"time"

	"notification-hub-be/internal/model"
	"notification-hub-be/internal/pkg/logger"
	"notification-hub-be/pkg/delivery"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// InAppDelivery pushes a notification to the user's live sessions.
// Implemented by the WebSocket hub.
type InAppDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
}

// EmailDelivery transmits one notification by email.
type EmailDelivery interface {
	SendNotification(ctx context.Context, userID uuid.UUID, notification model.Notification) error
}

// DispatcherService consumes freshly created notifications from the
// in-process bus and fans them out per channel, gated by the preference
// evaluator. Digest-mode email is left for the flush hook; deferred items
// are the external scheduler's to replay.
type DispatcherService struct {
	pubSub    *gochannel.GoChannel
	topic     string
	prefs     *PreferenceService
	evaluator delivery.Evaluator
	inApp     InAppDelivery
	email     EmailDelivery
	loc       *time.Location
	logger    logger.ILogger
}

func NewDispatcherService(
	pubSub *gochannel.GoChannel,
	topic string,
	prefs *PreferenceService,
	evaluator delivery.Evaluator,
	inApp InAppDelivery,
	email EmailDelivery,
	loc *time.Location,
	log logger.ILogger,
) *DispatcherService {
	if loc == nil {
		loc = time.UTC
	}
	return &DispatcherService{
		pubSub:    pubSub,
		topic:     topic,
		prefs:     prefs,
		evaluator: evaluator,
		inApp:     inApp,
		email:     email,
		loc:       loc,
		logger:    log,
	}
}

// Publish puts a created notification on the dispatch bus. Wired to the
// engine's OnCreate hook.
func (d *DispatcherService) Publish(notification model.Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		d.logger.Error("Dispatcher", "Failed to marshal notification", map[string]interface{}{"error": err.Error()})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := d.pubSub.Publish(d.topic, msg); err != nil {
		d.logger.Error("Dispatcher", "Failed to publish to dispatch bus", map[string]interface{}{"error": err.Error()})
	}
}

// Dispatch starts consuming the bus. Runs until ctx is cancelled.
func (d *DispatcherService) Dispatch(ctx context.Context) error {
	messages, err := d.pubSub.Subscribe(ctx, d.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			d.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (d *DispatcherService) processMessage(ctx context.Context, msg *message.Message) {
	var notification model.Notification
	if err := json.Unmarshal(msg.Payload, &notification); err != nil {
		d.logger.Error("Dispatcher", "Dropping unreadable message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // malformed payloads never become readable, don't retry
		return
	}

	prefs, err := d.prefs.get(ctx, notification.UserID)
	if err != nil {
		d.logger.Error("Dispatcher", "Failed to load preferences", map[string]interface{}{
			"user_id": notification.UserID,
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}

	now := time.Now()
	d.dispatchInApp(prefs, notification, now)
	d.dispatchEmail(ctx, prefs, notification, now)
	// Push transmission is owned by an external gateway; it calls the
	// evaluator through the preference API before sending.

	msg.Ack()
}

func (d *DispatcherService) dispatchInApp(prefs *model.NotificationPreference, notification model.Notification, now time.Time) {
	if d.inApp == nil {
		return
	}
	decision := d.evaluator.Evaluate(prefs, delivery.ChannelInApp, notification.Type, now, d.loc)
	if !decision.Eligible {
		return
	}
	d.inApp.Send(notification.UserID, notification)
}

func (d *DispatcherService) dispatchEmail(ctx context.Context, prefs *model.NotificationPreference, notification model.Notification, now time.Time) {
	if d.email == nil {
		return
	}
	decision := d.evaluator.Evaluate(prefs, delivery.ChannelEmail, notification.Type, now, d.loc)
	switch {
	case decision.Digest:
		// Accumulates until the scheduler calls FlushDigest.
	case decision.DeferredUntil != nil:
		d.logger.Info("Dispatcher", "Email deferred by quiet hours", map[string]interface{}{
			"notification_id": notification.ID,
			"deferred_until":  decision.DeferredUntil,
		})
	case decision.Eligible:
		if err := d.email.SendNotification(ctx, notification.UserID, notification); err != nil {
			d.logger.Error("Dispatcher", "Email send failed", map[string]interface{}{
				"notification_id": notification.ID,
				"error":           err.Error(),
			})
		}
	}
}
