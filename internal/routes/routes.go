package routes

import (
	"souq/server/internal/handlers"
	"souq/server/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	Auth          middleware.AuthConfig
	Chat          *handlers.ChatHandler
	Notifications *handlers.NotificationHandler
	WebSocket     *handlers.WebSocketHandler
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, h Handlers) {
	auth := middleware.AuthMiddleware(h.Auth)

	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Souq realtime API is running",
		})
	})

	// WebSocket routes (protected)
	api.Get("/ws/chat", auth, handlers.WebSocketUpgrade, websocket.New(h.WebSocket.Chat))
	api.Get("/ws/notifications", auth, handlers.WebSocketUpgrade, websocket.New(h.WebSocket.Notifications))
	api.Get("/ws/stats", auth, middleware.RequireAdmin, h.WebSocket.Stats)

	// Chat routes (protected)
	chat := api.Group("/chat", auth, middleware.RelaxedRateLimiter())
	chat.Post("/upload", middleware.UploadRateLimiter(), h.Chat.UploadFile)
	chat.Get("/conversations", h.Chat.GetConversations)
	chat.Get("/unread-count", h.Chat.GetUnreadCount)
	chat.Post("/:other/open", h.Chat.OpenConversation)
	chat.Get("/:other/messages", h.Chat.GetMessages)
	chat.Put("/:other/read", middleware.ModerateRateLimiter(), h.Chat.MarkAsRead)

	// Notification routes (protected)
	notifications := api.Group("/notifications", auth, middleware.RelaxedRateLimiter())
	notifications.Get("/", h.Notifications.List)
	notifications.Get("/unread-count", h.Notifications.UnreadCount)
	notifications.Put("/read-all", middleware.ModerateRateLimiter(), h.Notifications.MarkAllAsRead)
	notifications.Put("/:id/read", middleware.ModerateRateLimiter(), h.Notifications.MarkAsRead)
	notifications.Delete("/:id", middleware.ModerateRateLimiter(), h.Notifications.Delete)

	// Admin routes
	admin := api.Group("/admin", auth, middleware.RequireAdmin)
	admin.Post("/notifications", middleware.AdminRateLimiter(), h.Notifications.Create)
	admin.Post("/requests/:id/decision", h.Notifications.RequestDecision)
	admin.Post("/requests/:id/announce", middleware.AdminRateLimiter(), h.Notifications.AnnounceRequest)

	// Serve uploaded chat files to their two parties
	app.Get("/uploads/chat/:folder/:filename", auth, middleware.RelaxedRateLimiter(), h.Chat.GetFile)
}
