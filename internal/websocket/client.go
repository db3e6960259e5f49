package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"souq/server/internal/logger"

	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// EventHandler handles one decoded frame from identity. A returned error
// is reported back to the sending connection as an Error event.
type EventHandler func(ctx context.Context, identity string, msg IncomingMessage) error

// CodedError lets a handler choose the code of the Error event.
type CodedError interface {
	error
	Code() string
}

// Client represents a WebSocket client connection
type Client struct {
	Identity string // Canonical identity
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte

	handler EventHandler
}

// NewClient creates a client. A nil handler ignores incoming frames.
func NewClient(identity string, conn *websocket.Conn, hub *Hub, handler EventHandler) *Client {
	return &Client{
		Identity: identity,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan []byte, sendBuffer),
		handler:  handler,
	}
}

// ReadPump handles incoming messages from the client until the
// connection closes, then unregisters it.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.unregisterClient(c)
		c.Conn.Close()
	}()

	log := c.Hub.log.With().Str(logger.FieldIdentity, c.Identity).Logger()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		if c.handler == nil {
			continue
		}

		var incoming IncomingMessage
		if err := json.Unmarshal(data, &incoming); err != nil {
			c.SendError("bad_frame", "invalid message format")
			continue
		}

		if err := c.handler(logger.WithLogger(ctx, log), c.Identity, incoming); err != nil {
			log.Debug().Err(err).Str(logger.FieldEvent, string(incoming.Type)).Msg("event rejected")
			code := "error"
			var coded CodedError
			if errors.As(err, &coded) {
				code = coded.Code()
			}
			c.SendError(code, err.Error())
		}
	}
}

// WritePump handles outgoing messages to the client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.log.Debug().Err(err).Str(logger.FieldIdentity, c.Identity).Msg("write error")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendError queues an Error event on this connection only.
func (c *Client) SendError(code, message string) {
	c.SendMessage(NewMessage(EventError, ErrorPayload{Code: code, Message: message}))
}

// SendMessage queues msg on this connection only. A full queue drops
// the frame.
func (c *Client) SendMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()

	// Send is closed once the client leaves the hub.
	if _, ok := c.Hub.clients[c.Identity][c]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
		c.Hub.log.Warn().Str(logger.FieldIdentity, c.Identity).Msg("send queue full, dropping frame")
	}
}
