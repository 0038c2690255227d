package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/adapter"
	"telegram-notify-relay/internal/domain/ports/repository"
)

// RefreshSummary reports one discovery pass.
type RefreshSummary struct {
	Discovered int
	Created    int
	Updated    int
}

// ChatUseCase backs the admin surface for known chats, including the
// refresh-from-Telegram discovery flow.
type ChatUseCase interface {
	Add(ctx context.Context, chatID int64, title, username string, chatType model.ChatType, label, description string) (*model.Chat, error)
	Get(ctx context.Context, id string) (*model.Chat, error)
	List(ctx context.Context) ([]*model.Chat, error)
	UpdateDetails(ctx context.Context, c *model.Chat) error
	ToggleTester(ctx context.Context, id string) (*model.Chat, error)
	// Refresh discovers chats from recent bot updates and upserts them keyed
	// by the Telegram chat ID. Chats absent from the result are kept.
	Refresh(ctx context.Context) (*RefreshSummary, error)
	Clear(ctx context.Context) error
}

var _ ChatUseCase = (*chatUC)(nil)

type chatUC struct {
	chats  repository.ChatRepository
	client adapter.TelegramClient
	log    *zerolog.Logger
}

func NewChatUseCase(chats repository.ChatRepository, client adapter.TelegramClient, logger *zerolog.Logger) *chatUC {
	return &chatUC{chats: chats, client: client, log: logger}
}

func (uc *chatUC) Add(ctx context.Context, chatID int64, title, username string, chatType model.ChatType, label, description string) (*model.Chat, error) {
	chat, err := model.NewChat("", chatID, title, username, chatType, label, description)
	if err != nil {
		return nil, err
	}
	if err := uc.chats.Create(ctx, repository.NoTX, chat); err != nil {
		return nil, err
	}
	uc.log.Info().Int64("chat_id", chatID).Str("title", title).Msg("chat added")
	return chat, nil
}

func (uc *chatUC) Get(ctx context.Context, id string) (*model.Chat, error) {
	return uc.chats.FindByID(ctx, repository.NoTX, id)
}

func (uc *chatUC) List(ctx context.Context) ([]*model.Chat, error) {
	return uc.chats.ListAll(ctx, repository.NoTX)
}

func (uc *chatUC) UpdateDetails(ctx context.Context, c *model.Chat) error {
	c.Touch()
	return uc.chats.UpdateDetails(ctx, repository.NoTX, c)
}

func (uc *chatUC) ToggleTester(ctx context.Context, id string) (*model.Chat, error) {
	chat, err := uc.chats.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	chat.IsTester = !chat.IsTester
	chat.Touch()
	if err := uc.chats.UpdateDetails(ctx, repository.NoTX, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (uc *chatUC) Refresh(ctx context.Context) (*RefreshSummary, error) {
	infos, err := uc.client.DiscoverChats(ctx)
	if err != nil {
		return nil, err
	}

	sum := &RefreshSummary{Discovered: len(infos)}
	for _, info := range infos {
		chat, err := model.NewChat("", info.ChatID, info.Title, info.Username, info.Type, "", "")
		if err != nil {
			uc.log.Warn().Int64("chat_id", info.ChatID).Err(err).Msg("skipping malformed discovered chat")
			continue
		}
		created, err := uc.chats.Upsert(ctx, repository.NoTX, chat)
		if err != nil {
			return nil, err
		}
		if created {
			sum.Created++
		} else {
			sum.Updated++
		}
	}
	uc.log.Info().
		Int("discovered", sum.Discovered).
		Int("created", sum.Created).
		Int("updated", sum.Updated).
		Msg("chat discovery refresh finished")
	return sum, nil
}

func (uc *chatUC) Clear(ctx context.Context) error {
	if err := uc.chats.DeleteAll(ctx, repository.NoTX); err != nil {
		return err
	}
	uc.log.Info().Msg("all chats cleared")
	return nil
}
