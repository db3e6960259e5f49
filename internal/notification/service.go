// Package notification creates notifications, resolves their audience and
// delivers them in-app, by email and by WhatsApp.
package notification

import (
	"context"
	"fmt"
	"time"

	"souq/server/internal/identity"
	"souq/server/internal/models"
	ws "souq/server/internal/websocket"

	"github.com/go-playground/validator/v10"
)

const (
	defaultTake = 20
	maxTake     = 100
)

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, ns []*models.Notification) error
	AssignRecipient(ctx context.Context, id, userID int64) error
	FindByID(ctx context.Context, id int64) (*models.Notification, error)
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, take int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, id int64, at time.Time) error
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	MarkEmailSent(ctx context.Context, id int64, at time.Time) error
	MarkWhatsAppSent(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type Directory interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ListActiveByType(ctx context.Context, t models.UserType) ([]models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
}

type Pusher interface {
	PushToUser(ctx context.Context, identity string, msg ws.WSMessage)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Messenger interface {
	Send(ctx context.Context, phone, text string) error
}

// Options configures a Service. Mailer and Messenger may be nil, which
// disables that channel.
type Options struct {
	Store     Store
	Users     Directory
	Hub       Pusher
	Mailer    Mailer
	Messenger Messenger
	Normalize identity.Normalizer

	// Delay is the pause between two recipients during fan-out.
	Delay time.Duration
}

type Service struct {
	store     Store
	users     Directory
	hub       Pusher
	mailer    Mailer
	messenger Messenger
	norm      identity.Normalizer
	delay     time.Duration

	validator *validator.Validate
	now       func() time.Time
}

func NewService(opts Options) *Service {
	return &Service{
		store:     opts.Store,
		users:     opts.Users,
		hub:       opts.Hub,
		mailer:    opts.Mailer,
		messenger: opts.Messenger,
		norm:      opts.Normalize,
		delay:     opts.Delay,
		validator: newValidator(),
		now:       time.Now,
	}
}

// CreateNotification validates req and persists exactly one row. Delivery
// is a separate step, see Dispatch.
func (s *Service) CreateNotification(ctx context.Context, req CreateRequest) (*models.Notification, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	n := &models.Notification{
		Title:          req.Title,
		Message:        req.Message,
		Type:           req.Type,
		UserID:         req.UserID,
		TargetUserType: req.TargetUserType,
		RequestID:      req.RequestID,
		IsFromAdmin:    req.IsFromAdmin,
		AdminID:        req.AdminID,
		Link:           req.Link,
		Icon:           req.Icon,
		CreatedAt:      s.now(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// GetUserNotifications returns the newest notifications of userID. take
// is clamped to [1, 100] and defaults to 20.
func (s *Service) GetUserNotifications(ctx context.Context, userID int64, unreadOnly bool, take int) ([]models.Notification, error) {
	if take <= 0 {
		take = defaultTake
	}
	if take > maxTake {
		take = maxTake
	}
	return s.store.ListForUser(ctx, userID, unreadOnly, take)
}

func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	return s.store.FindByID(ctx, id)
}

// MarkAsRead sets IsRead and ReadAt. Marking an already read
// notification keeps its first ReadAt.
func (s *Service) MarkAsRead(ctx context.Context, id int64) error {
	return s.store.MarkRead(ctx, id, s.now())
}

// MarkAllAsRead returns how many notifications changed.
func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, userID, s.now())
}

func (s *Service) DeleteNotification(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
