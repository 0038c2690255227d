package repository

import (
	"context"

	"telegram-notify-relay/internal/domain/model"
)

// ChatRepository persists known Telegram chats.
type ChatRepository interface {
	Create(ctx context.Context, tx Tx, c *model.Chat) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Chat, error)
	// FindByChatID looks up by the external Telegram identifier.
	FindByChatID(ctx context.Context, tx Tx, chatID int64) (*model.Chat, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Chat, error)
	// Upsert inserts by Telegram chat ID or refreshes the mutable fields
	// (title, username, chat type) of an existing row. Admin-entered label,
	// description and tester flag are preserved.
	Upsert(ctx context.Context, tx Tx, c *model.Chat) (created bool, err error)
	UpdateDetails(ctx context.Context, tx Tx, c *model.Chat) error
	// DeleteAll clears the chat collection; chats are otherwise never deleted.
	DeleteAll(ctx context.Context, tx Tx) error
}
