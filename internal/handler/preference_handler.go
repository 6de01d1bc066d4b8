package handler

import (
	"notification-hub-be/internal/dto"
	"notification-hub-be/internal/model"
	"notification-hub-be/internal/pkg/serverutils"
	"notification-hub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PreferenceHandler struct {
	service *service.PreferenceService
}

func NewPreferenceHandler(service *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

func toPreferenceResponse(p *model.NotificationPreference) dto.PreferenceResponse {
	return dto.PreferenceResponse{
		UserId:             p.UserID,
		EmailEnabled:       p.EmailEnabled,
		EmailTypes:         p.EmailTypes,
		PushEnabled:        p.PushEnabled,
		PushTypes:          p.PushTypes,
		InAppEnabled:       p.InAppEnabled,
		InAppTypes:         p.InAppTypes,
		EmailFrequency:     p.EmailFrequency,
		DigestEnabled:      p.DigestEnabled,
		QuietHoursEnabled:  p.QuietHoursEnabled,
		QuietHoursStart:    p.QuietHoursStart,
		QuietHoursEnd:      p.QuietHoursEnd,
		MarketingEnabled:   p.MarketingEnabled,
		PromotionalEnabled: p.PromotionalEnabled,
		UpdatedAt:          p.UpdatedAt,
	}
}

// GetPreferences returns the stored record, or the defaults when the user has
// never saved one.
func (h *PreferenceHandler) GetPreferences(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	prefs, err := h.service.GetPreferences(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return c.JSON(serverutils.SuccessResponse("Preferences", toPreferenceResponse(prefs)))
}

// UpdatePreferences merges the supplied fields; omitted fields keep their
// current values.
func (h *PreferenceHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	var req dto.UpdatePreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	prefs, err := h.service.UpdatePreferences(c.UserContext(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return c.JSON(serverutils.SuccessResponse("Preferences updated", toPreferenceResponse(prefs)))
}

// DeletePreferences drops the stored record; the user falls back to defaults.
func (h *PreferenceHandler) DeletePreferences(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	if err := h.service.DeletePreferences(c.UserContext(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return c.JSON(serverutils.SuccessResponse[any]("Preferences reset", nil))
}

func (h *PreferenceHandler) RegisterRoutes(router fiber.Router) {
	prefs := router.Group("/preferences")
	prefs.Use(serverutils.JwtMiddleware)
	prefs.Get("/", h.GetPreferences)
	prefs.Put("/", h.UpdatePreferences)
	prefs.Delete("/", h.DeletePreferences)
}
