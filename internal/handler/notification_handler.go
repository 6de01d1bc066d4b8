package handler

import (
	"errors"
	"os"
	"strings"
	"time"

	"notification-hub-be/internal/dto"
	"notification-hub-be/internal/model"
	"notification-hub-be/internal/pkg/logger"
	"notification-hub-be/internal/pkg/serverutils"
	"notification-hub-be/internal/query"
	"notification-hub-be/internal/repository"
	"notification-hub-be/internal/service"
	internalWS "notification-hub-be/internal/websocket"
	"notification-hub-be/pkg/events"
	pktNats "notification-hub-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	service   *service.NotificationService
	publisher *pktNats.Publisher
	hub       *internalWS.Hub
	logger    logger.ILogger
}

func NewNotificationHandler(service *service.NotificationService, pub *pktNats.Publisher, hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		service:   service,
		publisher: pub,
		hub:       hub,
		logger:    log,
	}
}

// currentUser reads the authenticated user id set by the JWT middleware.
func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		if uid, ok := c.Locals("user_id").(uuid.UUID); ok {
			return uid, nil
		}
		return uuid.Nil, errors.New("unauthorized")
	}
	return uuid.Parse(userIDStr)
}

// fail translates domain errors to HTTP statuses: invalid filter/cursor is
// the caller's fault, a missing row is 404, everything else is 500.
func (h *NotificationHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, query.ErrInvalidFilter), errors.Is(err, query.ErrInvalidCursor):
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Notification not found"))
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
}

// parseFilterSpec reads the shared filter query params used by the list and
// export endpoints.
func parseFilterSpec(c *fiber.Ctx) (query.FilterSpec, error) {
	spec := query.FilterSpec{
		Search: c.Query("search"),
		Status: query.Status(c.Query("status")),
		SortBy: query.Sort(c.Query("sort")),
	}
	if types := c.Query("types"); types != "" {
		spec.Types = strings.Split(types, ",")
	}
	if from := c.Query("date_from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return spec, errors.Join(query.ErrInvalidFilter, err)
		}
		spec.DateFrom = &t
	}
	if to := c.Query("date_to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return spec, errors.Join(query.ErrInvalidFilter, err)
		}
		spec.DateTo = &t
	}
	return spec, nil
}

func toResponse(n model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		Id:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func toResponses(notifications []model.Notification) []dto.NotificationResponse {
	out := make([]dto.NotificationResponse, len(notifications))
	for i, n := range notifications {
		out[i] = toResponse(n)
	}
	return out
}

// GetNotifications returns one filtered, cursor-paginated page.
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	spec, err := parseFilterSpec(c)
	if err != nil {
		return h.fail(c, err)
	}
	limit := c.QueryInt("limit", 20)
	cursor := c.Query("cursor")

	notifications, next, err := h.service.GetPage(c.UserContext(), userID, spec, cursor, limit)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.NotificationPageResponse{
		Data:       toResponses(notifications),
		NextCursor: next,
	})
}

// GetRecent returns the newest notifications without filters or cursor.
func (h *NotificationHandler) GetRecent(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	limit := c.QueryInt("limit", 10)
	notifications, err := h.service.GetRecent(c.UserContext(), userID, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(serverutils.SuccessResponse("Recent notifications", toResponses(notifications)))
}

// Export streams the complete filtered result set, same semantics as the
// paginated list.
func (h *NotificationHandler) Export(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	spec, err := parseFilterSpec(c)
	if err != nil {
		return h.fail(c, err)
	}

	notifications, err := h.service.Export(c.UserContext(), userID, spec)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(serverutils.SuccessResponse("Export", toResponses(notifications)))
}

// GetCounts returns total/unread/read in one aggregate.
func (h *NotificationHandler) GetCounts(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	counts, err := h.service.Counts(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.NotificationCountsResponse{
		Total:  counts.Total,
		Unread: counts.Unread,
		Read:   counts.Read,
	})
}

// GetAnalytics returns per-type activity over a trailing window.
func (h *NotificationHandler) GetAnalytics(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	windowDays := c.QueryInt("window_days", 30)
	analytics, err := h.service.Analytics(c.UserContext(), userID, windowDays)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.NotificationAnalyticsResponse{
		WindowDays: analytics.WindowDays,
		Total:      analytics.Total,
		Unread:     analytics.Unread,
		ByType:     analytics.ByType,
	})
}

// MarkAsRead marks one notification as read. 404 when the id does not exist.
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid ID"))
	}
	if err := h.service.MarkAsRead(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(serverutils.SuccessResponse[any]("Marked as read", nil))
}

func (h *NotificationHandler) MarkAsUnread(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid ID"))
	}
	if err := h.service.MarkAsUnread(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(serverutils.SuccessResponse[any]("Marked as unread", nil))
}

// DeleteNotification removes one notification. Deleting an id that no longer
// exists still succeeds.
func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid ID"))
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(serverutils.SuccessResponse[any]("Deleted", nil))
}

// MarkAllAsRead marks every unread notification of the user as read.
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	affected, err := h.service.MarkAllAsRead(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: affected})
}

func (h *NotificationHandler) DeleteAll(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	affected, err := h.service.DeleteAllNotifications(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: affected})
}

func (h *NotificationHandler) DeleteRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	affected, err := h.service.DeleteReadNotifications(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: affected})
}

func (h *NotificationHandler) DeleteByType(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	notifType := c.Params("type")
	if notifType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Type is required"))
	}
	affected, err := h.service.DeleteNotificationsByType(c.UserContext(), userID, notifType)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: affected})
}

// BulkMarkAsRead marks the listed ids as read in one statement.
func (h *NotificationHandler) BulkMarkAsRead(c *fiber.Ctx) error {
	var req dto.BulkIdsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	affected, err := h.service.BulkMarkAsRead(c.UserContext(), req.Ids)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: affected})
}

func (h *NotificationHandler) BulkMarkAsUnread(c *fiber.Ctx) error {
	var req dto.BulkIdsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	affected, err := h.service.BulkMarkAsUnread(c.UserContext(), req.Ids)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: affected})
}

func (h *NotificationHandler) BulkDelete(c *fiber.Ctx) error {
	var req dto.BulkIdsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	affected, err := h.service.BulkDelete(c.UserContext(), req.Ids)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: affected})
}

// BulkMarkAsReadOptimized runs the chunked executor and reports per-id
// failures instead of failing the whole request.
func (h *NotificationHandler) BulkMarkAsReadOptimized(c *fiber.Ctx) error {
	var req dto.BulkOptimizedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	result := h.service.BulkMarkAsReadOptimized(c.UserContext(), req.Ids, req.BatchSize)
	return c.JSON(dto.BulkResultResponse{Result: result})
}

// FlushDigest is the scheduler-facing hook that transmits the user's
// accumulated digest.
func (h *NotificationHandler) FlushDigest(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	result, err := h.service.FlushDigest(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.DigestFlushResponse{
		Flushed: result.Flushed,
		Swept:   result.Swept,
		Failed:  result.Failed,
		At:      result.At,
	})
}

// TriggerEvent publishes a notification event on the bus, exercising the
// same path upstream systems use.
func (h *NotificationHandler) TriggerEvent(c *fiber.Ctx) error {
	type Request struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	if req.Type == "" {
		req.Type = "notifications.generic"
	}
	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}
	if _, ok := req.Payload["user_id"]; !ok {
		if uid := c.Locals("user_id"); uid != nil {
			req.Payload["user_id"] = uid
		}
	}

	if h.publisher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, "Event publisher not configured"))
	}

	evt := events.BaseEvent{
		Type:       req.Type,
		Data:       req.Payload,
		OccurredAt: time.Now(),
	}
	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(serverutils.SuccessResponse("Event published", evt))
}

// ServeWs upgrades the connection and attaches the client to the hub. The
// token comes from the query string (browser) or the Authorization header.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("NotificationHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format in token"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID)
			h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the notification routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications")
	notif.Use(serverutils.JwtMiddleware)

	notif.Get("/", h.GetNotifications)
	notif.Get("/recent", h.GetRecent)
	notif.Get("/export", h.Export)
	notif.Get("/counts", h.GetCounts)
	notif.Get("/analytics", h.GetAnalytics)

	notif.Patch("/read-all", h.MarkAllAsRead) // specific before :id
	notif.Patch("/:id/read", h.MarkAsRead)
	notif.Patch("/:id/unread", h.MarkAsUnread)

	notif.Delete("/read", h.DeleteRead)
	notif.Delete("/type/:type", h.DeleteByType)
	notif.Delete("/:id", h.DeleteNotification)
	notif.Delete("/", h.DeleteAll)

	notif.Post("/bulk/read", h.BulkMarkAsRead)
	notif.Post("/bulk/unread", h.BulkMarkAsUnread)
	notif.Post("/bulk/delete", h.BulkDelete)
	notif.Post("/bulk/read-optimized", h.BulkMarkAsReadOptimized)

	notif.Post("/digest/flush", h.FlushDigest)
	notif.Post("/trigger", h.TriggerEvent)

	// WebSocket
	router.Get("/ws", h.ServeWs)
}
