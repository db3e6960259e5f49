package handlers

import (
	"context"
	"strconv"
	"strings"

	"souq/server/internal/middleware"
	"souq/server/internal/models"
	"souq/server/internal/notification"

	"github.com/gofiber/fiber/v2"
)

type NotificationService interface {
	GetUserNotifications(ctx context.Context, userID int64, unreadOnly bool, take int) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, userID int64) (int, error)
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
	DeleteNotification(ctx context.Context, id int64) error
	CreateAndDispatch(ctx context.Context, req notification.CreateRequest, ch notification.Channels) (*models.Notification, notification.Report, error)
	NotifyRequestDecision(ctx context.Context, userID, requestID int64, approved bool) (*models.Notification, notification.Report, error)
	NotifyStoresOfNewRequest(ctx context.Context, requestID int64, title string) (*models.Notification, notification.Report, error)
}

type NotificationHandler struct {
	notifications NotificationService
}

func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: svc}
}

// AdminNotificationRequest is the body of an admin broadcast
type AdminNotificationRequest struct {
	notification.CreateRequest
	SendEmail    bool `json:"sendEmail"`
	SendWhatsApp bool `json:"sendWhatsApp"`
}

// List returns the caller's notifications (?unreadOnly=true&take=)
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	list, err := h.notifications.GetUserNotifications(c.UserContext(), middleware.GetUserID(c),
		c.QueryBool("unreadOnly"), queryInt(c, "take", 0))
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, list)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.notifications.GetUnreadCount(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, fiber.Map{"count": n})
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	id, done, err := h.owned(c)
	if done {
		return err
	}
	if err := h.notifications.MarkAsRead(c.UserContext(), id); err != nil {
		return failFor(c, err)
	}
	return ok(c, nil)
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	n, err := h.notifications.MarkAllAsRead(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, fiber.Map{"updated": n})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	id, done, err := h.owned(c)
	if done {
		return err
	}
	if err := h.notifications.DeleteNotification(c.UserContext(), id); err != nil {
		return failFor(c, err)
	}
	return ok(c, nil)
}

// owned resolves the :id param to a notification of the caller. When done
// is true the response has been written and err is the handler's result.
// Notifications of other users look the same as missing ones.
func (h *NotificationHandler) owned(c *fiber.Ctx) (id int64, done bool, err error) {
	id, err = strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, true, fail(c, fiber.StatusBadRequest, "Invalid notification id")
	}

	n, err := h.notifications.GetNotification(c.UserContext(), id)
	if err != nil {
		return 0, true, failFor(c, err)
	}
	if n.UserID == nil || *n.UserID != middleware.GetUserID(c) {
		return 0, true, fail(c, fiber.StatusNotFound, "Not found")
	}
	return id, false, nil
}

// Create lets an admin create a notification and deliver it at once
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var req AdminNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	req.IsFromAdmin = true
	req.AdminID = nil
	// admins recognised by ADMIN_PHONE may carry no user id
	if adminID := middleware.GetUserID(c); adminID > 0 {
		req.AdminID = &adminID
	}

	n, report, err := h.notifications.CreateAndDispatch(c.UserContext(), req.CreateRequest, notification.Channels{
		InApp:    true,
		Email:    req.SendEmail,
		WhatsApp: req.SendWhatsApp,
	})
	return dispatched(c, n, report, err)
}

// RequestDecisionRequest is the body of a moderation decision on a buyer request
type RequestDecisionRequest struct {
	UserID   int64 `json:"userId"`
	Approved bool  `json:"approved"`
}

// RequestDecision tells the buyer whether request :id was approved
func (h *NotificationHandler) RequestDecision(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return fail(c, fiber.StatusBadRequest, "Invalid request id")
	}

	var req RequestDecisionRequest
	if err := c.BodyParser(&req); err != nil || req.UserID <= 0 {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	n, report, err := h.notifications.NotifyRequestDecision(c.UserContext(), req.UserID, int64(requestID), req.Approved)
	return dispatched(c, n, report, err)
}

// AnnounceRequestRequest is the body of a new request announcement
type AnnounceRequestRequest struct {
	Title string `json:"title"`
}

// AnnounceRequest tells every active seller about request :id
func (h *NotificationHandler) AnnounceRequest(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return fail(c, fiber.StatusBadRequest, "Invalid request id")
	}

	var req AnnounceRequestRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	n, report, err := h.notifications.NotifyStoresOfNewRequest(c.UserContext(), int64(requestID), strings.TrimSpace(req.Title))
	return dispatched(c, n, report, err)
}

// dispatched writes the outcome of a create-and-dispatch call. A
// notification that was stored but not fully delivered is still returned.
func dispatched(c *fiber.Ctx, n *models.Notification, report notification.Report, err error) error {
	if err != nil && n == nil {
		return failFor(c, err)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Notification created but delivery failed",
			"data":    fiber.Map{"notification": n, "report": report},
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"notification": n, "report": report},
	})
}
