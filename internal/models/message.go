package models

import "time"

// FileMessageBody is the body stored for messages that only carry an attachment.
const FileMessageBody = "[file]"

// ChatMessage is a direct message between two canonical identities.
// Sender and receiver are loose identity strings, not foreign keys.
type ChatMessage struct {
	ID         int64     `json:"id" db:"id"`
	SenderID   string    `json:"senderId" db:"sender_id"`
	ReceiverID string    `json:"receiverId" db:"receiver_id"`
	Message    string    `json:"message" db:"message"`
	SentAt     time.Time `json:"sentAt" db:"sent_at"`
	IsRead     bool      `json:"isRead" db:"is_read"`
	FilePath   *string   `json:"filePath,omitempty" db:"file_path"` // Only for attachments
	FileType   *string   `json:"fileType,omitempty" db:"file_type"`
}

// IsFile reports whether the message carries an attachment.
func (m *ChatMessage) IsFile() bool {
	return m.FilePath != nil && *m.FilePath != ""
}

// ChatMessageWithSender includes the sender's display name from the user directory
type ChatMessageWithSender struct {
	ChatMessage
	SenderName string `json:"senderName"`
	IsMine     bool   `json:"isMine"`
}

// ConversationSummary is one inbox entry: the latest message exchanged with
// a counterpart and how many of their messages are still unread.
type ConversationSummary struct {
	Counterpart     string      `json:"counterpart"`
	CounterpartName string      `json:"counterpartName,omitempty"`
	LastMessage     ChatMessage `json:"lastMessage"`
	UnreadCount     int         `json:"unreadCount"`
}
