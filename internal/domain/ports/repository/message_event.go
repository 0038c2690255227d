package repository

import (
	"context"
	"time"

	"telegram-notify-relay/internal/domain/model"
)

// EventFilter narrows List queries over the event log.
type EventFilter struct {
	ServiceID string
	ChatID    string
	Success   *bool
	Since     time.Time
	Offset    int
	Limit     int
}

// EventStats aggregates delivery tallies for the history view.
type EventStats struct {
	Total      int
	Successful int
	Failed     int
}

// MessageEventRepository is an append-only log of send attempts.
type MessageEventRepository interface {
	Record(ctx context.Context, tx Tx, e *model.MessageEvent) error
	// List returns events newest first.
	List(ctx context.Context, tx Tx, f EventFilter) ([]*model.MessageEvent, error)
	Stats(ctx context.Context, tx Tx) (*EventStats, error)
}
