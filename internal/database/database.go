package database

import (
	"context"
	"fmt"

	"souq/server/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool on databaseURL and checks it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.L().Info().Msg("database connected")
	return pool, nil
}

// Migrate creates the tables this service writes to. The users table
// belongs to the main application and is only created here so a fresh
// database can run the service on its own.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL UNIQUE,
		email      TEXT NOT NULL DEFAULT '',
		user_type  TEXT NOT NULL DEFAULT 'buyer',
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id          BIGSERIAL PRIMARY KEY,
		sender_id   TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		message     TEXT NOT NULL,
		sent_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_read     BOOLEAN NOT NULL DEFAULT FALSE,
		file_path   TEXT,
		file_type   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_pair
		ON chat_messages (sender_id, receiver_id, sent_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_unread
		ON chat_messages (receiver_id, sender_id) WHERE NOT is_read`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id               BIGSERIAL PRIMARY KEY,
		title            TEXT NOT NULL,
		message          TEXT NOT NULL,
		type             TEXT NOT NULL,
		user_id          BIGINT REFERENCES users (id) ON DELETE CASCADE,
		target_user_type TEXT,
		request_id       BIGINT,
		is_read          BOOLEAN NOT NULL DEFAULT FALSE,
		read_at          TIMESTAMPTZ,
		is_from_admin    BOOLEAN NOT NULL DEFAULT FALSE,
		admin_id         BIGINT,
		email_sent       BOOLEAN NOT NULL DEFAULT FALSE,
		email_sent_at    TIMESTAMPTZ,
		whatsapp_sent    BOOLEAN NOT NULL DEFAULT FALSE,
		whatsapp_sent_at TIMESTAMPTZ,
		link             TEXT,
		icon             TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications (user_id, created_at DESC)`,
}
