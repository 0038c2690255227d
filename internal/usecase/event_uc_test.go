package usecase

import (
	"context"
	"testing"

	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
)

func TestEventHistory_FiltersAndStats(t *testing.T) {
	t.Parallel()
	events := newMemEventRepo()
	ctx := context.Background()

	_ = events.Record(ctx, repository.NoTX, model.NewSuccessEvent("svc-a", "chat-1", "a: hi", 10))
	_ = events.Record(ctx, repository.NoTX, model.NewFailureEvent("svc-a", "chat-2", "a: hi", "bot blocked"))
	_ = events.Record(ctx, repository.NoTX, model.NewSuccessEvent("svc-b", "chat-1", "b: yo", 11))

	uc := NewEventUseCase(events)

	all, err := uc.History(ctx, repository.EventFilter{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all.Events) != 3 {
		t.Errorf("expected 3 events, got %d", len(all.Events))
	}
	if all.Stats.Total != 3 || all.Stats.Successful != 2 || all.Stats.Failed != 1 {
		t.Errorf("stats = %+v", all.Stats)
	}

	byService, err := uc.History(ctx, repository.EventFilter{ServiceID: "svc-a"})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(byService.Events) != 2 {
		t.Errorf("service filter: expected 2 events, got %d", len(byService.Events))
	}

	failed := false
	byOutcome, err := uc.History(ctx, repository.EventFilter{Success: &failed})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(byOutcome.Events) != 1 || byOutcome.Events[0].ErrorMessage == nil {
		t.Errorf("outcome filter: %+v", byOutcome.Events)
	}
}

func TestEventHistory_ClampsLimit(t *testing.T) {
	t.Parallel()
	uc := NewEventUseCase(newMemEventRepo())

	for _, limit := range []int{-1, 0, 201} {
		if _, err := uc.History(context.Background(), repository.EventFilter{Limit: limit}); err != nil {
			t.Errorf("limit %d: %v", limit, err)
		}
	}
}
