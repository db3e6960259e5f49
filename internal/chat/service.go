// Package chat implements one-to-one messaging between canonical
// identities: persistence first, then push over the chat hub.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"souq/server/internal/identity"
	"souq/server/internal/logger"
	"souq/server/internal/models"
	"souq/server/internal/repository"
	"souq/server/internal/storage"
	ws "souq/server/internal/websocket"

	"github.com/google/uuid"
)

const (
	timeFormat      = "15:04"
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListUnreadFrom(ctx context.Context, sender, receiver string) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, ids []int64) (int64, error)
	CountUnreadFrom(ctx context.Context, sender, receiver string) (int, error)
	CountUnread(ctx context.Context, receiver string) (int, error)
	Conversation(ctx context.Context, a, b string, limit, offset int) ([]models.ChatMessage, int, error)
	Conversations(ctx context.Context, identity string) ([]models.ConversationSummary, error)
}

type Pusher interface {
	PushToUser(ctx context.Context, identity string, msg ws.WSMessage)
}

type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

type UserDirectory interface {
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
}

// Service is the chat surface shared by the hub and the HTTP handlers.
// Callers are canonical identities taken from the authenticated token.
type Service struct {
	messages MessageStore
	hub      Pusher
	files    FileStore
	users    UserDirectory
	norm     identity.Normalizer

	maxUpload int64
	now       func() time.Time
}

func NewService(messages MessageStore, hub Pusher, files FileStore, users UserDirectory, norm identity.Normalizer, maxUpload int64) *Service {
	return &Service{
		messages:  messages,
		hub:       hub,
		files:     files,
		users:     users,
		norm:      norm,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

func (s *Service) target(raw string) (string, error) {
	key := s.norm.Normalize(raw)
	if identity.IsBlank(key) {
		return "", ErrBlankReceiver
	}
	return key, nil
}

func messageEvent(m *models.ChatMessage) ws.WSMessage {
	payload := ws.MessagePayload{
		ID:       m.ID,
		Sender:   m.SenderID,
		Receiver: m.ReceiverID,
		Message:  m.Message,
		Time:     m.SentAt.Format(timeFormat),
		SentAt:   m.SentAt,
	}
	if m.IsFile() {
		payload.FilePath, payload.FileType = m.FilePath, m.FileType
	}
	return ws.NewMessage(ws.EventReceiveMessage, payload)
}

// SendMessage stores a text message and pushes it to the receiver's
// connections. The receiver does not have to be a registered user.
func (s *Service) SendMessage(ctx context.Context, caller, receiverRaw, body string) (*models.ChatMessage, error) {
	receiver, err := s.target(receiverRaw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}

	msg := &models.ChatMessage{
		SenderID:   caller,
		ReceiverID: receiver,
		Message:    body,
		SentAt:     s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	s.hub.PushToUser(ctx, receiver, messageEvent(msg))
	return msg, nil
}

// Typing signals the receiver that caller is typing. Nothing is stored.
func (s *Service) Typing(ctx context.Context, caller, receiverRaw string) error {
	return s.typing(ctx, ws.EventUserTyping, caller, receiverRaw)
}

func (s *Service) StopTyping(ctx context.Context, caller, receiverRaw string) error {
	return s.typing(ctx, ws.EventUserStoppedTyping, caller, receiverRaw)
}

func (s *Service) typing(ctx context.Context, t ws.EventType, caller, receiverRaw string) error {
	receiver, err := s.target(receiverRaw)
	if err != nil {
		return err
	}
	s.hub.PushToUser(ctx, receiver, ws.NewMessage(t, ws.TypingPayload{Sender: caller}))
	return nil
}

// MarkAsRead marks every unread message from senderRaw to caller as read
// and sends the read receipt to the sender. It returns how many messages
// changed, which is zero when repeated.
func (s *Service) MarkAsRead(ctx context.Context, caller, senderRaw string) (int64, error) {
	sender, err := s.target(senderRaw)
	if err != nil {
		return 0, err
	}

	unread, err := s.messages.ListUnreadFrom(ctx, sender, caller)
	if err != nil {
		return 0, fmt.Errorf("mark as read: %w", err)
	}

	ids := make([]int64, 0, len(unread))
	for _, m := range unread {
		ids = append(ids, m.ID)
	}

	n, err := s.messages.MarkRead(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mark as read: %w", err)
	}

	s.hub.PushToUser(ctx, sender, ws.NewMessage(ws.EventMessagesRead, ws.ReadPayload{Reader: caller, Count: n}))
	return n, nil
}

// FileUpload is an attachment received from a client.
type FileUpload struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// UploadFile stores the attachment under the folder shared by both
// parties and pushes the resulting message to both of them.
func (s *Service) UploadFile(ctx context.Context, caller, receiverRaw string, f FileUpload) (*models.ChatMessage, error) {
	if f.Body == nil || f.Size <= 0 {
		return nil, ErrEmptyFile
	}
	receiver, err := s.target(receiverRaw)
	if err != nil {
		return nil, err
	}
	if s.maxUpload > 0 && f.Size > s.maxUpload {
		return nil, ErrFileTooLarge
	}
	if !storage.Allowed(f.Filename) {
		return nil, ErrFileType
	}

	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentType(f.Filename)
	}

	key := "chat/" + identity.PairFolder(caller, receiver) + "/" + uuid.NewString() + storage.Ext(f.Filename)
	webPath, err := s.files.Save(ctx, key, f.Body, f.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	fileType := storage.Category(f.Filename)
	msg := &models.ChatMessage{
		SenderID:   caller,
		ReceiverID: receiver,
		Message:    models.FileMessageBody,
		SentAt:     s.now(),
		FilePath:   &webPath,
		FileType:   &fileType,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("send file: %w", err)
	}

	event := messageEvent(msg)
	s.hub.PushToUser(ctx, receiver, event)
	if receiver != caller {
		s.hub.PushToUser(ctx, caller, event)
	}
	return msg, nil
}

// HandleEvent dispatches one hub frame from caller.
func (s *Service) HandleEvent(ctx context.Context, caller string, in ws.IncomingMessage) error {
	var err error
	switch in.Type {
	case ws.EventSendMessage:
		var req ws.SendMessageRequest
		if err = decode(in.Payload, &req); err == nil {
			_, err = s.SendMessage(ctx, caller, req.Receiver, req.Message)
		}
	case ws.EventTyping, ws.EventStopTyping:
		var req ws.TypingRequest
		if err = decode(in.Payload, &req); err == nil {
			if in.Type == ws.EventTyping {
				err = s.Typing(ctx, caller, req.Receiver)
			} else {
				err = s.StopTyping(ctx, caller, req.Receiver)
			}
		}
	case ws.EventMarkAsRead:
		var req ws.MarkAsReadRequest
		if err = decode(in.Payload, &req); err == nil {
			_, err = s.MarkAsRead(ctx, caller, req.Sender)
		}
	default:
		return ErrUnknownEvent
	}

	if err != nil && !IsValidation(err) {
		logger.Ctx(ctx).Error().Err(err).Str(logger.FieldEvent, string(in.Type)).Msg("chat event failed")
		return errors.New("internal error")
	}
	return err
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrBadPayload
	}
	return nil
}

// Conversation is the result of opening a chat with a counterpart.
type Conversation struct {
	Counterpart models.UserResponse `json:"counterpart"`
	History     *HistoryPage        `json:"history"`
}

// OpenConversation checks that the counterpart is a registered user and
// returns them with the latest page of history.
func (s *Service) OpenConversation(ctx context.Context, caller, otherRaw string) (*Conversation, error) {
	other, err := s.target(otherRaw)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByPhone(ctx, other)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("open conversation: %w", err)
	}

	page, err := s.History(ctx, caller, other, 1, defaultPageSize)
	if err != nil {
		return nil, err
	}
	return &Conversation{Counterpart: user.ToResponse(), History: page}, nil
}

// HistoryPage is one page of a conversation, newest message first.
type HistoryPage struct {
	Messages []models.ChatMessageWithSender `json:"messages"`
	Total    int                            `json:"total"`
	Page     int                            `json:"page"`
	Limit    int                            `json:"limit"`
}

func (s *Service) History(ctx context.Context, caller, otherRaw string, page, limit int) (*HistoryPage, error) {
	other, err := s.target(otherRaw)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	msgs, total, err := s.messages.Conversation(ctx, caller, other, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	names := map[string]string{
		caller: s.displayName(ctx, caller),
		other:  s.displayName(ctx, other),
	}

	out := make([]models.ChatMessageWithSender, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, models.ChatMessageWithSender{
			ChatMessage: m,
			SenderName:  names[m.SenderID],
			IsMine:      m.SenderID == caller,
		})
	}
	return &HistoryPage{Messages: out, Total: total, Page: page, Limit: limit}, nil
}

// displayName falls back to the identity itself for unregistered users.
func (s *Service) displayName(ctx context.Context, key string) string {
	u, err := s.users.FindByPhone(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Str(logger.FieldIdentity, key).Msg("user lookup failed")
		}
		return key
	}
	return u.Name
}

// Conversations returns the caller's inbox.
func (s *Service) Conversations(ctx context.Context, caller string) ([]models.ConversationSummary, error) {
	list, err := s.messages.Conversations(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("conversations: %w", err)
	}
	return list, nil
}

// UnreadCount counts unread messages to caller from fromRaw, or from
// everyone when fromRaw is empty.
func (s *Service) UnreadCount(ctx context.Context, caller, fromRaw string) (int, error) {
	if strings.TrimSpace(fromRaw) == "" {
		return s.messages.CountUnread(ctx, caller)
	}
	from, err := s.target(fromRaw)
	if err != nil {
		return 0, err
	}
	return s.messages.CountUnreadFrom(ctx, from, caller)
}
