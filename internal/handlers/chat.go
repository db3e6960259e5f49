package handlers

import (
	"context"
	"errors"
	"io"
	"strings"

	"souq/server/internal/chat"
	"souq/server/internal/middleware"
	"souq/server/internal/models"
	"souq/server/internal/storage"

	"github.com/gofiber/fiber/v2"
)

type ChatService interface {
	UploadFile(ctx context.Context, caller, receiverRaw string, f chat.FileUpload) (*models.ChatMessage, error)
	OpenConversation(ctx context.Context, caller, otherRaw string) (*chat.Conversation, error)
	History(ctx context.Context, caller, otherRaw string, page, limit int) (*chat.HistoryPage, error)
	Conversations(ctx context.Context, caller string) ([]models.ConversationSummary, error)
	UnreadCount(ctx context.Context, caller, fromRaw string) (int, error)
	MarkAsRead(ctx context.Context, caller, senderRaw string) (int64, error)
}

type FileOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ChatHandler serves the HTTP side of chat. Messages themselves are sent
// over the chat hub.
type ChatHandler struct {
	chat  ChatService
	files FileOpener
}

func NewChatHandler(svc ChatService, files FileOpener) *ChatHandler {
	return &ChatHandler{chat: svc, files: files}
}

// UploadFile handles multipart uploads with a "file" and a "receiver" field
func (h *ChatHandler) UploadFile(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "No file uploaded")
	}

	file, err := fh.Open()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Failed to read file")
	}
	defer file.Close()

	msg, err := h.chat.UploadFile(c.UserContext(), middleware.GetIdentity(c), c.FormValue("receiver"), chat.FileUpload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Body:        file,
	})
	if err != nil {
		return failFor(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

// GetConversations returns the caller's inbox
func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	list, err := h.chat.Conversations(c.UserContext(), middleware.GetIdentity(c))
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, list)
}

// GetUnreadCount counts unread messages, optionally from one counterpart (?from=)
func (h *ChatHandler) GetUnreadCount(c *fiber.Ctx) error {
	n, err := h.chat.UnreadCount(c.UserContext(), middleware.GetIdentity(c), c.Query("from"))
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, fiber.Map{"count": n})
}

// OpenConversation checks the counterpart exists and returns the latest history
func (h *ChatHandler) OpenConversation(c *fiber.Ctx) error {
	conv, err := h.chat.OpenConversation(c.UserContext(), middleware.GetIdentity(c), c.Params("other"))
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, conv)
}

// GetMessages returns one page of messages with a counterpart (?page=&limit=)
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	page, err := h.chat.History(c.UserContext(), middleware.GetIdentity(c), c.Params("other"),
		queryInt(c, "page", 1), queryInt(c, "limit", 50))
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, page)
}

// MarkAsRead marks the counterpart's messages to the caller as read
func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	n, err := h.chat.MarkAsRead(c.UserContext(), middleware.GetIdentity(c), c.Params("other"))
	if err != nil {
		return failFor(c, err)
	}
	return ok(c, fiber.Map{"updated": n})
}

// GetFile serves a stored attachment to one of the two parties of its folder
func (h *ChatHandler) GetFile(c *fiber.Ctx) error {
	folder := c.Params("folder")
	filename := c.Params("filename")
	caller := middleware.GetIdentity(c)

	if !strings.HasPrefix(folder, caller+"_") && !strings.HasSuffix(folder, "_"+caller) {
		return fail(c, fiber.StatusNotFound, "File not found")
	}

	rc, err := h.files.Open(c.UserContext(), "chat/"+folder+"/"+filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "File not found")
		}
		return failFor(c, err)
	}

	c.Set(fiber.HeaderContentType, storage.ContentType(filename))
	return c.SendStream(rc)
}
