package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-notify-relay/internal/config"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/adapter"
)

var _ adapter.TelegramClient = (*BotClient)(nil)

// BotClient talks to the Telegram Bot API through tgbotapi. The bot token is
// held here and never leaves the process; every outbound call is bounded by
// the HTTP client timeout so one stuck chat cannot hang a fan-out.
type BotClient struct {
	bot *tgbotapi.BotAPI
	cfg *config.BotConfig
	log *zerolog.Logger
}

func NewBotClient(cfg *config.BotConfig, logger *zerolog.Logger) (*BotClient, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	httpClient := &http.Client{Timeout: cfg.SendTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	l := logger.With().Str("component", "BotClient").Logger()
	return &BotClient{bot: bot, cfg: cfg, log: &l}, nil
}

// SendMessage delivers text to one chat. The three possible outcomes
// (transport failure, API-level rejection, success) collapse into either a
// SendResult or an error carrying a readable message; raw transport errors
// never cross this boundary.
func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string) (adapter.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return adapter.SendResult{}, errors.New("send cancelled")
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	sent, err := c.bot.Send(msg)
	if err != nil {
		c.log.Warn().Int64("chat_id", chatID).Err(err).Msg("sendMessage failed")
		return adapter.SendResult{}, sanitize(err)
	}
	return adapter.SendResult{TelegramMessageID: int64(sent.MessageID)}, nil
}

// DiscoverChats reads recent updates and resolves the distinct chats the bot
// has observed activity in. Chats whose detail lookup fails are skipped with
// a warning rather than failing the whole discovery.
func (c *BotClient) DiscoverChats(ctx context.Context) ([]adapter.ChatInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New("discovery cancelled")
	}
	updates, err := c.bot.GetUpdates(tgbotapi.UpdateConfig{Timeout: int(c.cfg.PollTimeout.Seconds())})
	if err != nil {
		return nil, sanitize(err)
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, up := range updates {
		for _, m := range []*tgbotapi.Message{up.Message, up.EditedMessage, up.ChannelPost} {
			if m == nil || m.Chat == nil {
				continue
			}
			if _, ok := seen[m.Chat.ID]; !ok {
				seen[m.Chat.ID] = struct{}{}
				ids = append(ids, m.Chat.ID)
			}
		}
	}

	out := make([]adapter.ChatInfo, 0, len(ids))
	for _, id := range ids {
		chat, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: id}})
		if err != nil {
			c.log.Warn().Int64("chat_id", id).Err(err).Msg("getChat failed during discovery")
			continue
		}
		out = append(out, adapter.ChatInfo{
			ChatID:   chat.ID,
			Title:    chatTitle(&chat),
			Username: chat.UserName,
			Type:     model.ChatType(chat.Type),
		})
	}
	return out, nil
}

func (c *BotClient) BotInfo(ctx context.Context) (adapter.BotInfo, error) {
	if err := ctx.Err(); err != nil {
		return adapter.BotInfo{}, errors.New("request cancelled")
	}
	me, err := c.bot.GetMe()
	if err != nil {
		return adapter.BotInfo{}, sanitize(err)
	}
	return adapter.BotInfo{ID: me.ID, Username: me.UserName, Name: me.FirstName}, nil
}

// chatTitle mirrors the title fallback chain for private chats, which carry a
// first name instead of a title.
func chatTitle(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	if chat.FirstName != "" {
		return chat.FirstName
	}
	return chat.UserName
}

// sanitize flattens tgbotapi and transport errors into plain messages.
func sanitize(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return errors.New(apiErr.Message)
	}
	return fmt.Errorf("telegram request failed: %v", err)
}
