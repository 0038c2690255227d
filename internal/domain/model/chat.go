package model

import (
	"strconv"
	"time"

	"telegram-notify-relay/internal/domain"

	"github.com/google/uuid"
)

// ChatType mirrors Telegram's chat type field.
type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

func (t ChatType) Valid() bool {
	switch t {
	case ChatTypePrivate, ChatTypeGroup, ChatTypeSupergroup, ChatTypeChannel:
		return true
	}
	return false
}

// Chat is a Telegram conversation the shared bot can message. Chats are
// created by manual admin entry or by discovery; they are never auto-deleted.
type Chat struct {
	ID          string
	ChatID      int64 // Telegram-assigned identifier, unique
	Title       string
	Username    string
	ChatType    ChatType
	Label       string
	Description string
	IsTester    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Chat) IsZero() bool { return c == nil || c.ID == "" }

func (c *Chat) Touch() { c.UpdatedAt = time.Now() }

// DisplayTitle falls back to the username or the raw chat ID so that result
// rows always carry something readable.
func (c *Chat) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return c.Username
	}
	return "Chat " + strconv.FormatInt(c.ChatID, 10)
}

// NewChat validates and constructs a chat entry.
func NewChat(id string, chatID int64, title, username string, chatType ChatType, label, description string) (*Chat, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if chatID == 0 || title == "" {
		return nil, domain.ErrInvalidArgument
	}
	if chatType == "" {
		chatType = ChatTypePrivate
	}
	if !chatType.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Chat{
		ID:          id,
		ChatID:      chatID,
		Title:       title,
		Username:    username,
		ChatType:    chatType,
		Label:       label,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
