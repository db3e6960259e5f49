package repository

import (
	"context"
	"fmt"

	"souq/server/internal/models"

	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, sender_id, receiver_id, message, sent_at, is_read, file_path, file_type`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts msg and fills in its id.
func (r *MessageRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO chat_messages (sender_id, receiver_id, message, sent_at, is_read, file_path, file_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, msg.SenderID, msg.ReceiverID, msg.Message, msg.SentAt, msg.IsRead, msg.FilePath, msg.FileType).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// ListUnreadFrom returns the messages sender sent to receiver that are still unread.
func (r *MessageRepository) ListUnreadFrom(ctx context.Context, sender, receiver string) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE sender_id = $1 AND receiver_id = $2 AND NOT is_read
		ORDER BY sent_at
	`, sender, receiver)
	if err != nil {
		return nil, fmt.Errorf("query unread messages: %w", err)
	}
	return collectMessages(rows)
}

// MarkRead flips is_read on the given ids and returns how many rows changed.
func (r *MessageRepository) MarkRead(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `UPDATE chat_messages SET is_read = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnreadFrom counts unread messages sender sent to receiver.
func (r *MessageRepository) CountUnreadFrom(ctx context.Context, sender, receiver string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages
		WHERE sender_id = $1 AND receiver_id = $2 AND NOT is_read
	`, sender, receiver).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}

// CountUnread counts every unread message addressed to receiver.
func (r *MessageRepository) CountUnread(ctx context.Context, receiver string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages WHERE receiver_id = $1 AND NOT is_read
	`, receiver).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}

// Conversation returns the messages exchanged between a and b, newest first,
// together with the total count for pagination.
func (r *MessageRepository) Conversation(ctx context.Context, a, b string, limit, offset int) ([]models.ChatMessage, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	`, a, b).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count conversation: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, a, b, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query conversation: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// Conversations returns one summary per counterpart of identity, most
// recent conversation first.
func (r *MessageRepository) Conversations(ctx context.Context, identity string) ([]models.ConversationSummary, error) {
	rows, err := r.db.Query(ctx, `
		WITH ranked AS (
			SELECT m.*,
				CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END AS counterpart,
				ROW_NUMBER() OVER (
					PARTITION BY CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END
					ORDER BY m.sent_at DESC, m.id DESC
				) AS rn
			FROM chat_messages m
			WHERE m.sender_id = $1 OR m.receiver_id = $1
		)
		SELECT ranked.counterpart, COALESCE(u.name, ''),
			ranked.id, ranked.sender_id, ranked.receiver_id, ranked.message, ranked.sent_at,
			ranked.is_read, ranked.file_path, ranked.file_type,
			(SELECT COUNT(*) FROM chat_messages c
				WHERE c.sender_id = ranked.counterpart AND c.receiver_id = $1 AND NOT c.is_read)
		FROM ranked
		LEFT JOIN users u ON u.phone = ranked.counterpart
		WHERE ranked.rn = 1
		ORDER BY ranked.sent_at DESC
	`, identity)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	summaries := []models.ConversationSummary{}
	for rows.Next() {
		var s models.ConversationSummary
		m := &s.LastMessage
		if err := rows.Scan(&s.Counterpart, &s.CounterpartName,
			&m.ID, &m.SenderID, &m.ReceiverID, &m.Message, &m.SentAt, &m.IsRead, &m.FilePath, &m.FileType,
			&s.UnreadCount); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func collectMessages(rows pgx.Rows) ([]models.ChatMessage, error) {
	defer rows.Close()

	msgs := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Message, &m.SentAt, &m.IsRead, &m.FilePath, &m.FileType); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
