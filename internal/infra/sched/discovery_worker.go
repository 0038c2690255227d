package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-notify-relay/internal/usecase"
)

// DiscoveryWorker periodically refreshes the chat list from recent bot
// updates so manually-triggered refreshes are not the only discovery path.
type DiscoveryWorker struct {
	interval time.Duration
	chatUC   usecase.ChatUseCase
	log      *zerolog.Logger
}

func NewDiscoveryWorker(interval time.Duration, chatUC usecase.ChatUseCase, logger *zerolog.Logger) *DiscoveryWorker {
	l := logger.With().Str("component", "DiscoveryWorker").Logger()
	return &DiscoveryWorker{interval: interval, chatUC: chatUC, log: &l}
}

func (w *DiscoveryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting discovery worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping discovery worker")
			return ctx.Err()
		case <-ticker.C:
			sum, err := w.chatUC.Refresh(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("discovery refresh failed")
				continue
			}
			if sum.Created > 0 {
				w.log.Info().Int("new_chats", sum.Created).Msg("discovery found new chats")
			}
		}
	}
}
