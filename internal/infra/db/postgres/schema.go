package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS services (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    label       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    api_key     TEXT NOT NULL UNIQUE,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
    id          TEXT PRIMARY KEY,
    chat_id     BIGINT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    username    TEXT NOT NULL DEFAULT '',
    chat_type   TEXT NOT NULL DEFAULT 'private',
    label       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    is_tester   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS service_chat_grants (
    service_id TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
    chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    PRIMARY KEY (service_id, chat_id)
);

CREATE TABLE IF NOT EXISTS message_events (
    id                  TEXT PRIMARY KEY,
    service_id          TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
    chat_id             TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    message_content     TEXT NOT NULL,
    telegram_message_id BIGINT,
    success             BOOLEAN NOT NULL,
    error_message       TEXT,
    sent_at             TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_message_events_sent_at ON message_events (sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_message_events_service ON message_events (service_id);
`

// EnsureSchema creates the relay tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
