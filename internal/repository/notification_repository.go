package repository

import (
	"context"
	"fmt"
	"time"

	"souq/server/internal/models"

	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, title, message, type, user_id, target_user_type, request_id,
	is_read, read_at, is_from_admin, admin_id, email_sent, email_sent_at,
	whatsapp_sent, whatsapp_sent_at, link, icon, created_at`

const insertNotification = `
	INSERT INTO notifications (title, message, type, user_id, target_user_type, request_id,
		is_from_admin, admin_id, link, icon, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id`

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func insertArgs(n *models.Notification) []any {
	return []any{n.Title, n.Message, n.Type, n.UserID, n.TargetUserType, n.RequestID,
		n.IsFromAdmin, n.AdminID, n.Link, n.Icon, n.CreatedAt}
}

// Create inserts n and fills in its id.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.QueryRow(ctx, insertNotification, insertArgs(n)...).Scan(&n.ID); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// CreateBatch inserts every notification in one round trip and fills in their ids.
func (r *NotificationRepository) CreateBatch(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(insertNotification, insertArgs(n)...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, n := range ns {
		if err := results.QueryRow().Scan(&n.ID); err != nil {
			return fmt.Errorf("batch insert notification: %w", err)
		}
	}
	return nil
}

// AssignRecipient addresses an existing notification to userID.
func (r *NotificationRepository) AssignRecipient(ctx context.Context, id, userID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET user_id = $2 WHERE id = $1`, id, userID)
	if err != nil {
		return fmt.Errorf("assign notification recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id int64) (*models.Notification, error) {
	row := r.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

// ListForUser returns up to take notifications of userID, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool, take int) ([]models.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR NOT is_read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, userID, unreadOnly, take)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $2) WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of userID read and returns the count.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE user_id = $1 AND NOT is_read
	`, userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) MarkEmailSent(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET email_sent = TRUE, email_sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("stamp email sent: %w", err)
	}
	return nil
}

func (r *NotificationRepository) MarkWhatsAppSent(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET whatsapp_sent = TRUE, whatsapp_sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("stamp whatsapp sent: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.UserID, &n.TargetUserType, &n.RequestID,
		&n.IsRead, &n.ReadAt, &n.IsFromAdmin, &n.AdminID, &n.EmailSent, &n.EmailSentAt,
		&n.WhatsAppSent, &n.WhatsAppSentAt, &n.Link, &n.Icon, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
