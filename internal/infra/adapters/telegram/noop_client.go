package telegram

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"telegram-notify-relay/internal/domain/ports/adapter"
)

var _ adapter.TelegramClient = (*NoopClient)(nil)

// NoopClient logs sends instead of calling Telegram. Used in dev mode so the
// whole relay can run without a real bot token.
type NoopClient struct {
	log    *zerolog.Logger
	nextID int64
}

func NewNoopClient(logger *zerolog.Logger) *NoopClient {
	l := logger.With().Str("component", "NoopClient").Logger()
	return &NoopClient{log: &l}
}

func (c *NoopClient) SendMessage(ctx context.Context, chatID int64, text string) (adapter.SendResult, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	c.log.Info().Int64("chat_id", chatID).Str("text", text).Int64("message_id", id).Msg("noop send")
	return adapter.SendResult{TelegramMessageID: id}, nil
}

func (c *NoopClient) DiscoverChats(ctx context.Context) ([]adapter.ChatInfo, error) {
	return nil, nil
}

func (c *NoopClient) BotInfo(ctx context.Context) (adapter.BotInfo, error) {
	return adapter.BotInfo{ID: 0, Username: "noop_bot", Name: "Noop"}, nil
}
