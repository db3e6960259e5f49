package websocket

import (
	"encoding/json"
	"time"
)

// EventType names a frame on the wire.
type EventType string

const (
	// Server to client
	EventReceiveMessage      EventType = "ReceiveMessage"
	EventUserTyping          EventType = "UserTyping"
	EventUserStoppedTyping   EventType = "UserStoppedTyping"
	EventMessagesRead        EventType = "MessagesRead"
	EventReceiveNotification EventType = "ReceiveNotification"
	EventError               EventType = "Error"

	// Client to server (chat hub)
	EventSendMessage EventType = "SendMessage"
	EventTyping      EventType = "Typing"
	EventStopTyping  EventType = "StopTyping"
	EventMarkAsRead  EventType = "MarkAsRead"
)

// WSMessage is an outgoing frame.
type WSMessage struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps an outgoing frame with the current time.
func NewMessage(t EventType, payload any) WSMessage {
	return WSMessage{Type: t, Payload: payload, Timestamp: time.Now()}
}

// MessagePayload carries a chat message to its receiver.
type MessagePayload struct {
	ID       int64     `json:"id"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Message  string    `json:"message"`
	Time     string    `json:"time"` // HH:MM, for display
	SentAt   time.Time `json:"sentAt"`
	FilePath *string   `json:"filePath,omitempty"`
	FileType *string   `json:"fileType,omitempty"`
}

// TypingPayload is sent with UserTyping and UserStoppedTyping.
type TypingPayload struct {
	Sender string `json:"sender"`
}

// ReadPayload tells a sender that reader has read their messages.
type ReadPayload struct {
	Reader string `json:"reader"`
	Count  int64  `json:"count"`
}

// NotificationPayload is the in-app rendition of a notification.
type NotificationPayload struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Link      *string   `json:"link,omitempty"`
	Icon      *string   `json:"icon,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrorPayload represents error event payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IncomingMessage represents messages received from clients
type IncomingMessage struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SendMessageRequest is the payload of SendMessage.
type SendMessageRequest struct {
	Receiver string `json:"receiver"`
	Message  string `json:"message"`
}

// TypingRequest is the payload of Typing and StopTyping.
type TypingRequest struct {
	Receiver string `json:"receiver"`
}

// MarkAsReadRequest is the payload of MarkAsRead.
type MarkAsReadRequest struct {
	Sender string `json:"sender"`
}
