package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/broadcast-ops/fault-tracker/internal/api/dto"
	"github.com/broadcast-ops/fault-tracker/internal/auth"
	"github.com/broadcast-ops/fault-tracker/internal/domain"
	"github.com/broadcast-ops/fault-tracker/internal/service"
	apperrors "github.com/broadcast-ops/fault-tracker/pkg/util"
)

// NotificationsHandler serves the notification inbox endpoints.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications returns every notification on record.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	notifications, err := h.service.ListAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "count": len(notifications), "data": notificationResponses(notifications)})
}

// Unread GET /notifications/user/:userId returns the user's unread inbox.
// The inbox fails closed: a garbage user ID yields an empty list, not an
// error.
func (h *NotificationsHandler) Unread(c *fiber.Ctx) error {
	userID, _ := strconv.ParseInt(c.Params("userId"), 10, 64)
	notifications := h.service.ListUnread(c.Context(), userID)
	return c.JSON(fiber.Map{"success": true, "count": len(notifications), "data": notificationResponses(notifications)})
}

// UnreadCount GET /notifications/user/:userId/count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	userID, _ := strconv.ParseInt(c.Params("userId"), 10, 64)
	count, err := h.service.UnreadCount(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.UnreadCountResponse{Count: count}})
}

// MarkRead PATCH /notifications/:id/read flips one notification, or the whole
// inbox when the id is the "all" sentinel. The caller may only touch their own
// notifications.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	target := c.Params("id")
	if target != service.MarkReadAll {
		if _, err := parseID(target); err != nil {
			return err
		}
	}
	if !h.service.MarkRead(c.Context(), target, principal.User.ID) {
		return apperrors.NewNotFound("notification", map[string]any{"id": target})
	}
	return c.JSON(fiber.Map{"success": true})
}

func notificationResponses(notifications []domain.Notification) []dto.NotificationResponse {
	out := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, dto.NotificationResponse{
			ID:         n.ID,
			UserID:     n.UserID,
			Message:    n.Message,
			Type:       n.Type,
			EntityID:   n.EntityID,
			EntityType: n.EntityType,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
			UpdatedAt:  n.UpdatedAt,
		})
	}
	return out
}
