package adapter

import (
	"context"

	"telegram-notify-relay/internal/domain/model"
)

// SendResult carries the Telegram-assigned message ID of a delivered message.
type SendResult struct {
	TelegramMessageID int64
}

// ChatInfo is what discovery learns about a chat from the Bot API.
type ChatInfo struct {
	ChatID   int64
	Title    string
	Username string
	Type     model.ChatType
}

// BotInfo identifies the shared bot account.
type BotInfo struct {
	ID       int64
	Username string
	Name     string
}

// TelegramClient wraps the outbound Bot API surface. Implementations flatten
// transport failures and API-level errors into plain error values with a
// human-readable message; callers never see raw transport errors. Each call
// carries its own bounded timeout.
type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) (SendResult, error)
	// DiscoverChats reads recent bot updates and returns the distinct chats
	// the bot has observed activity in.
	DiscoverChats(ctx context.Context) ([]ChatInfo, error)
	BotInfo(ctx context.Context) (BotInfo, error)
}
