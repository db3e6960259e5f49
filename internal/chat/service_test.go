package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"souq/server/internal/identity"
	"souq/server/internal/models"
	"souq/server/internal/repository"
	ws "souq/server/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userA = "+9647700227210"
	userB = "+9647812345678"
)

type fakeMessages struct {
	mu     sync.Mutex
	rows   []models.ChatMessage
	nextID int64
	err    error
}

func (f *fakeMessages) Create(_ context.Context, m *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	m.ID = f.nextID
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMessages) ListUnreadFrom(_ context.Context, sender, receiver string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range f.rows {
		if m.SenderID == sender && m.ReceiverID == receiver && !m.IsRead {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		for i := range f.rows {
			if f.rows[i].ID == id && !f.rows[i].IsRead {
				f.rows[i].IsRead = true
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeMessages) CountUnreadFrom(ctx context.Context, sender, receiver string) (int, error) {
	list, _ := f.ListUnreadFrom(ctx, sender, receiver)
	return len(list), nil
}

func (f *fakeMessages) CountUnread(_ context.Context, receiver string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.rows {
		if m.ReceiverID == receiver && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessages) Conversation(_ context.Context, a, b string, limit, offset int) ([]models.ChatMessage, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.ChatMessage
	for _, m := range f.rows {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return []models.ChatMessage{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeMessages) Conversations(_ context.Context, id string) ([]models.ConversationSummary, error) {
	return []models.ConversationSummary{{Counterpart: id}}, nil
}

type push struct {
	identity string
	msg      ws.WSMessage
}

type fakeHub struct {
	mu     sync.Mutex
	pushes []push
}

func (h *fakeHub) PushToUser(_ context.Context, identity string, msg ws.WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushes = append(h.pushes, push{identity, msg})
}

func (h *fakeHub) to(identity string) []ws.WSMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []ws.WSMessage
	for _, p := range h.pushes {
		if p.identity == identity {
			out = append(out, p.msg)
		}
	}
	return out
}

type fakeFiles struct {
	keys []string
	data []string
}

func (f *fakeFiles) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.data = append(f.data, string(b))
	return "/uploads/" + key, nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	if u, ok := f[phone]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type fixture struct {
	svc   *Service
	store *fakeMessages
	hub   *fakeHub
	files *fakeFiles
}

func newFixture() *fixture {
	f := &fixture{store: &fakeMessages{}, hub: &fakeHub{}, files: &fakeFiles{}}
	users := fakeUsers{
		userA: {ID: 1, Name: "Ali", Phone: userA, UserType: models.UserTypeBuyer, IsActive: true},
		userB: {ID: 2, Name: "Bashir Store", Phone: userB, UserType: models.UserTypeSeller, IsActive: true},
	}
	f.svc = NewService(f.store, f.hub, f.files, users, identity.NewNormalizer("964"), 1024)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC) }
	return f
}

func TestSendMessage_PersistsAndPushesToReceiverOnly(t *testing.T) {
	f := newFixture()

	msg, err := f.svc.SendMessage(context.Background(), userA, "+9647812345678", "is the fridge still available?")
	require.NoError(t, err)

	require.Len(t, f.store.rows, 1)
	row := f.store.rows[0]
	assert.Equal(t, userA, row.SenderID)
	assert.Equal(t, "+9647812345678", row.ReceiverID)
	assert.False(t, row.IsRead)
	assert.Equal(t, msg.ID, row.ID)

	got := f.hub.to(userB)
	require.Len(t, got, 1)
	assert.Equal(t, ws.EventReceiveMessage, got[0].Type)
	p := got[0].Payload.(ws.MessagePayload)
	assert.Equal(t, "is the fridge still available?", p.Message)
	assert.Equal(t, userA, p.Sender)
	assert.Equal(t, "14:05", p.Time)
	assert.Nil(t, p.FilePath)

	assert.Empty(t, f.hub.to(userA))
}

func TestSendMessage_NormalizesReceiver(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SendMessage(context.Background(), userA, "&#x2B;9647812345678", "hi")
	require.NoError(t, err)
	assert.Equal(t, userB, f.store.rows[0].ReceiverID)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SendMessage(context.Background(), userA, userB, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.svc.SendMessage(context.Background(), userA, "  ", "hi")
	assert.ErrorIs(t, err, ErrBlankReceiver)
	assert.True(t, IsValidation(err))

	assert.Empty(t, f.store.rows)
	assert.Empty(t, f.hub.pushes)
}

func TestSendMessage_UnregisteredAndSelfArePermitted(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SendMessage(context.Background(), userA, "+9640000000000", "hello stranger")
	assert.NoError(t, err)
	_, err = f.svc.SendMessage(context.Background(), userA, userA, "note to self")
	assert.NoError(t, err)
	assert.Len(t, f.store.rows, 2)
}

func TestSendMessage_StoreFailureDoesNotPush(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("db down")

	_, err := f.svc.SendMessage(context.Background(), userA, userB, "hi")
	assert.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.Empty(t, f.hub.pushes)
}

func TestTyping_PushesOnlyToReceiver(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.Typing(ctx, userA, userB))
	require.NoError(t, f.svc.StopTyping(ctx, userA, userB))

	got := f.hub.to(userB)
	require.Len(t, got, 2)
	assert.Equal(t, ws.EventUserTyping, got[0].Type)
	assert.Equal(t, ws.EventUserStoppedTyping, got[1].Type)
	assert.Equal(t, ws.TypingPayload{Sender: userA}, got[0].Payload)
	assert.Empty(t, f.store.rows)
}

func TestMarkAsRead_ClearsUnreadAndNotifiesSender(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		_, err := f.svc.SendMessage(ctx, userA, userB, body)
		require.NoError(t, err)
	}
	n, err := f.svc.UnreadCount(ctx, userB, userA)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	changed, err := f.svc.MarkAsRead(ctx, userB, userA)
	require.NoError(t, err)
	assert.EqualValues(t, 3, changed)

	n, err = f.svc.UnreadCount(ctx, userB, userA)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	receipts := f.hub.to(userA)
	require.Len(t, receipts, 1)
	assert.Equal(t, ws.EventMessagesRead, receipts[0].Type)
	assert.Equal(t, userB, receipts[0].Payload.(ws.ReadPayload).Reader)
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, userA, userB, "hi")
	require.NoError(t, err)

	_, err = f.svc.MarkAsRead(ctx, userB, userA)
	require.NoError(t, err)

	changed, err := f.svc.MarkAsRead(ctx, userB, userA)
	require.NoError(t, err)
	assert.EqualValues(t, 0, changed)
	for _, row := range f.store.rows {
		assert.True(t, row.IsRead)
	}
}

func TestMarkAsRead_OnlyCounterpartMessages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _ = f.svc.SendMessage(ctx, userA, userB, "from a")
	_, _ = f.svc.SendMessage(ctx, "+9641111111111", userB, "from c")

	_, err := f.svc.MarkAsRead(ctx, userB, userA)
	require.NoError(t, err)

	total, err := f.svc.UnreadCount(ctx, userB, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestUploadFile_StoresInPairFolderAndPushesBoth(t *testing.T) {
	f := newFixture()

	msg, err := f.svc.UploadFile(context.Background(), userB, userA, FileUpload{
		Filename: "Invoice.PDF",
		Size:     4,
		Body:     strings.NewReader("%PDF"),
	})
	require.NoError(t, err)

	require.Len(t, f.files.keys, 1)
	key := f.files.keys[0]
	assert.True(t, strings.HasPrefix(key, "chat/"+identity.PairFolder(userA, userB)+"/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	assert.Equal(t, models.FileMessageBody, msg.Message)
	require.NotNil(t, msg.FilePath)
	assert.Equal(t, "/uploads/"+key, *msg.FilePath)
	assert.Equal(t, "file", *msg.FileType)

	assert.Len(t, f.hub.to(userA), 1)
	assert.Len(t, f.hub.to(userB), 1)
	p := f.hub.to(userA)[0].Payload.(ws.MessagePayload)
	require.NotNil(t, p.FilePath)
	assert.Equal(t, *msg.FilePath, *p.FilePath)
	require.NotNil(t, p.FileType)
	assert.Equal(t, "file", *p.FileType)
}

func TestMessageEvent_BlankFilePathIsNotAnAttachment(t *testing.T) {
	blank, kind := "", "image"
	ev := messageEvent(&models.ChatMessage{ID: 1, SenderID: userA, ReceiverID: userB, Message: "hi", FilePath: &blank, FileType: &kind})

	p := ev.Payload.(ws.MessagePayload)
	assert.Nil(t, p.FilePath)
	assert.Nil(t, p.FileType)
}

func TestUploadFile_SameFolderEitherDirection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	up := func() FileUpload { return FileUpload{Filename: "a.png", Size: 1, Body: strings.NewReader("x")} }

	_, err := f.svc.UploadFile(ctx, userA, userB, up())
	require.NoError(t, err)
	_, err = f.svc.UploadFile(ctx, userB, userA, up())
	require.NoError(t, err)

	dir := func(k string) string { return k[:strings.LastIndex(k, "/")] }
	assert.Equal(t, dir(f.files.keys[0]), dir(f.files.keys[1]))
	assert.NotEqual(t, f.files.keys[0], f.files.keys[1])
}

func TestUploadFile_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.UploadFile(ctx, userA, userB, FileUpload{Filename: "a.png", Size: 0, Body: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = f.svc.UploadFile(ctx, userA, "   ", FileUpload{Filename: "a.png", Size: 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrBlankReceiver)

	_, err = f.svc.UploadFile(ctx, userA, userB, FileUpload{Filename: "run.exe", Size: 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrFileType)

	_, err = f.svc.UploadFile(ctx, userA, userB, FileUpload{Filename: "big.png", Size: 2048, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	assert.Empty(t, f.files.keys)
	assert.Empty(t, f.store.rows)
	assert.Empty(t, f.hub.pushes)
}

func frame(t *testing.T, typ ws.EventType, payload any) ws.IncomingMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return ws.IncomingMessage{Type: typ, Payload: raw}
}

func TestHandleEvent_Routes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.HandleEvent(ctx, userA, frame(t, ws.EventSendMessage, ws.SendMessageRequest{Receiver: userB, Message: "hi"})))
	require.NoError(t, f.svc.HandleEvent(ctx, userA, frame(t, ws.EventTyping, ws.TypingRequest{Receiver: userB})))
	require.NoError(t, f.svc.HandleEvent(ctx, userA, frame(t, ws.EventStopTyping, ws.TypingRequest{Receiver: userB})))
	require.NoError(t, f.svc.HandleEvent(ctx, userB, frame(t, ws.EventMarkAsRead, ws.MarkAsReadRequest{Sender: userA})))

	types := []ws.EventType{}
	for _, m := range f.hub.to(userB) {
		types = append(types, m.Type)
	}
	assert.Equal(t, []ws.EventType{ws.EventReceiveMessage, ws.EventUserTyping, ws.EventUserStoppedTyping}, types)
	assert.Len(t, f.hub.to(userA), 1)
}

func TestHandleEvent_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.svc.HandleEvent(ctx, userA, ws.IncomingMessage{Type: "Dance"})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	err = f.svc.HandleEvent(ctx, userA, ws.IncomingMessage{Type: ws.EventSendMessage, Payload: json.RawMessage(`"nope"`)})
	assert.ErrorIs(t, err, ErrBadPayload)

	f.store.err = errors.New("connection reset")
	err = f.svc.HandleEvent(ctx, userA, frame(t, ws.EventSendMessage, ws.SendMessageRequest{Receiver: userB, Message: "hi"}))
	require.Error(t, err)
	assert.Equal(t, "internal error", err.Error())
}

func TestOpenConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _ = f.svc.SendMessage(ctx, userA, userB, "first")
	_, _ = f.svc.SendMessage(ctx, userB, userA, "reply")

	conv, err := f.svc.OpenConversation(ctx, userA, "9647812345678")
	require.NoError(t, err)
	assert.Equal(t, "Bashir Store", conv.Counterpart.Name)
	require.Len(t, conv.History.Messages, 2)
	assert.Equal(t, "reply", conv.History.Messages[0].Message)
	assert.False(t, conv.History.Messages[0].IsMine)
	assert.Equal(t, "Bashir Store", conv.History.Messages[0].SenderName)
	assert.True(t, conv.History.Messages[1].IsMine)

	_, err = f.svc.OpenConversation(ctx, userA, "+9640000000000")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHistory_Paging(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = f.svc.SendMessage(ctx, userA, userB, "m")
	}

	page, err := f.svc.History(ctx, userA, userB, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Messages, 2)
	assert.Equal(t, int64(3), page.Messages[0].ID)

	page, err = f.svc.History(ctx, userA, userB, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageSize, page.Limit)
}

func TestHistory_UnknownSenderNameFallsBackToIdentity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	stranger := "+9643333333333"
	_, _ = f.svc.SendMessage(ctx, stranger, userA, "hello")

	page, err := f.svc.History(ctx, userA, stranger, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, stranger, page.Messages[0].SenderName)
}
