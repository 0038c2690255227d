package usecase

import (
	"context"

	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
)

// EventHistory is one page of the audit log plus overall delivery tallies.
type EventHistory struct {
	Events []*model.MessageEvent
	Stats  repository.EventStats
}

// EventUseCase exposes the immutable send history to the admin surface.
type EventUseCase interface {
	History(ctx context.Context, f repository.EventFilter) (*EventHistory, error)
}

var _ EventUseCase = (*eventUC)(nil)

type eventUC struct {
	events repository.MessageEventRepository
}

func NewEventUseCase(events repository.MessageEventRepository) *eventUC {
	return &eventUC{events: events}
}

func (uc *eventUC) History(ctx context.Context, f repository.EventFilter) (*EventHistory, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	events, err := uc.events.List(ctx, repository.NoTX, f)
	if err != nil {
		return nil, err
	}
	stats, err := uc.events.Stats(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &EventHistory{Events: events, Stats: *stats}, nil
}
