package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"souq/server/internal/identity"
	"souq/server/internal/models"
	"souq/server/internal/notification"
	"souq/server/internal/repository"
	ws "souq/server/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps notifications in memory for end-to-end handler tests
// against the real notification service.
type memStore struct {
	mu   sync.Mutex
	rows map[int64]*models.Notification
	next int64
}

func (m *memStore) put(n *models.Notification) {
	m.next++
	n.ID = m.next
	cp := *n
	m.rows[n.ID] = &cp
}

func (m *memStore) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(n)
	return nil
}

func (m *memStore) CreateBatch(_ context.Context, ns []*models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range ns {
		m.put(n)
	}
	return nil
}

func (m *memStore) AssignRecipient(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.UserID = &userID
	return nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memStore) ListForUser(context.Context, int64, bool, int) ([]models.Notification, error) {
	return nil, nil
}

func (m *memStore) CountUnread(context.Context, int64) (int, error) { return 0, nil }

func (m *memStore) MarkRead(context.Context, int64, time.Time) error { return nil }

func (m *memStore) MarkAllRead(context.Context, int64, time.Time) (int64, error) { return 0, nil }

func (m *memStore) MarkEmailSent(context.Context, int64, time.Time) error { return nil }

func (m *memStore) MarkWhatsAppSent(context.Context, int64, time.Time) error { return nil }

func (m *memStore) Delete(context.Context, int64) error { return nil }

type memDirectory []models.User

func (d memDirectory) FindByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range d {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d memDirectory) ListActiveByType(_ context.Context, t models.UserType) ([]models.User, error) {
	var out []models.User
	for _, u := range d {
		if u.IsActive && u.UserType == t {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d memDirectory) ListActive(context.Context) ([]models.User, error) {
	return d, nil
}

type countingHub struct {
	mu     sync.Mutex
	pushes int
}

func (h *countingHub) PushToUser(context.Context, string, ws.WSMessage) {
	h.mu.Lock()
	h.pushes++
	h.mu.Unlock()
}

func newDispatchApp(userID int64, users memDirectory) (*fiber.App, *memStore, *countingHub) {
	store := &memStore{rows: map[int64]*models.Notification{}}
	hub := &countingHub{}
	svc := notification.NewService(notification.Options{
		Store:     store,
		Users:     users,
		Hub:       hub,
		Normalize: identity.NewNormalizer("964"),
	})

	app := newApp(userID)
	app.Post("/admin/notifications", NewNotificationHandler(svc).Create)
	return app, store, hub
}

func TestCreate_UnknownUserIsEmptyAudience(t *testing.T) {
	app, store, hub := newDispatchApp(5, nil)

	resp := postJSON(t, app, "/admin/notifications", `{"title":"Hello","message":"Hi","type":"general","userId":99}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	report := body["data"].(map[string]any)["report"].(map[string]any)
	assert.EqualValues(t, 0, report["recipients"])
	assert.EqualValues(t, 0, report["inApp"])
	assert.Zero(t, hub.pushes)
	assert.Len(t, store.rows, 1)
}

func TestCreate_AdminWithoutUserIDOmitsAdminID(t *testing.T) {
	users := memDirectory{{ID: 1, Phone: "+9647700000001", UserType: models.UserTypeBuyer, IsActive: true}}
	app, store, hub := newDispatchApp(0, users)

	resp := postJSON(t, app, "/admin/notifications", `{"title":"Hello","message":"Hi","type":"admin_announcement"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Len(t, store.rows, 1)
	n := store.rows[1]
	assert.True(t, n.IsFromAdmin)
	assert.Nil(t, n.AdminID)
	require.NotNil(t, n.UserID)
	assert.EqualValues(t, 1, *n.UserID)
	assert.Equal(t, 1, hub.pushes)
}
