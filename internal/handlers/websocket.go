package handlers

import (
	"context"

	"souq/server/internal/logger"
	ws "souq/server/internal/websocket"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WebSocketHandler attaches upgraded connections to the chat and
// notification hubs.
type WebSocketHandler struct {
	ctx           context.Context
	chat          *ws.Hub
	notifications *ws.Hub
	events        ws.EventHandler
}

// NewWebSocketHandler builds the handler. ctx bounds every connection and
// events receives the frames of chat connections.
func NewWebSocketHandler(ctx context.Context, chatHub, notificationHub *ws.Hub, events ws.EventHandler) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:           ctx,
		chat:          chatHub,
		notifications: notificationHub,
		events:        events,
	}
}

// WebSocketUpgrade checks if the request should be upgraded to WebSocket
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"success": false,
		"error":   "WebSocket upgrade required",
	})
}

// Chat serves a chat connection
func (h *WebSocketHandler) Chat(c *websocket.Conn) {
	h.serve(h.chat, c, h.events)
}

// Notifications serves a push-only notification connection. Incoming
// frames are ignored.
func (h *WebSocketHandler) Notifications(c *websocket.Conn) {
	h.serve(h.notifications, c, nil)
}

func (h *WebSocketHandler) serve(hub *ws.Hub, c *websocket.Conn, events ws.EventHandler) {
	// Locals were set by the auth middleware before the upgrade
	key, _ := c.Locals("identity").(string)
	if key == "" {
		c.Close()
		return
	}

	client := ws.NewClient(key, c, hub, events)
	select {
	case hub.Register <- client:
	case <-h.ctx.Done():
		c.Close()
		return
	}

	logger.L().Debug().Str(logger.FieldIdentity, key).Str(logger.FieldHub, hub.Name()).Msg("websocket connected")

	go client.WritePump()
	client.ReadPump(h.ctx)
}

// Stats returns connection statistics of both hubs
func (h *WebSocketHandler) Stats(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"chat":          hubStats(h.chat),
		"notifications": hubStats(h.notifications),
	})
}

func hubStats(hub *ws.Hub) fiber.Map {
	return fiber.Map{
		"onlineUsers": hub.OnlineCount(),
		"connections": hub.ConnectionCount(),
		"identities":  hub.OnlineUsers(),
	}
}
