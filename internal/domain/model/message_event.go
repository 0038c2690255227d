package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// MessageEvent is an immutable audit record of one attempted send. Exactly one
// event exists per (notify request, authorized chat) pair; events are never
// mutated or deleted after creation.
type MessageEvent struct {
	ID                string
	ServiceID         string
	ChatID            string // internal Chat ID, not the Telegram identifier
	MessageContent    string
	TelegramMessageID *int64 // set only on success
	Success           bool
	ErrorMessage      *string // set only on failure
	SentAt            time.Time
}

// NewSuccessEvent records a delivered message.
func NewSuccessEvent(serviceID, chatID, content string, telegramMessageID int64) *MessageEvent {
	return &MessageEvent{
		ID:                newEventID(),
		ServiceID:         serviceID,
		ChatID:            chatID,
		MessageContent:    content,
		TelegramMessageID: &telegramMessageID,
		Success:           true,
		SentAt:            time.Now(),
	}
}

// NewFailureEvent records a failed attempt with the sanitized error text.
func NewFailureEvent(serviceID, chatID, content, errMsg string) *MessageEvent {
	return &MessageEvent{
		ID:             newEventID(),
		ServiceID:      serviceID,
		ChatID:         chatID,
		MessageContent: content,
		Success:        false,
		ErrorMessage:   &errMsg,
		SentAt:         time.Now(),
	}
}

// newEventID returns a ULID so the event log sorts lexicographically by time.
func newEventID() string {
	return ulid.Make().String()
}
