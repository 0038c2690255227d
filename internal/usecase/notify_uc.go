package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/adapter"
	"telegram-notify-relay/internal/domain/ports/repository"
	"telegram-notify-relay/internal/infra/logging"
	"telegram-notify-relay/internal/infra/metrics"
	"telegram-notify-relay/internal/infra/worker"
)

// ChatResult is one per-chat outcome inside an aggregate notify response.
type ChatResult struct {
	ChatID            int64   `json:"chat_id"`
	ChatTitle         string  `json:"chat_title"`
	Success           bool    `json:"success"`
	TelegramMessageID *int64  `json:"telegram_message_id"`
	Error             *string `json:"error"`
}

// NotifyResult aggregates every per-chat outcome of one fan-out. Success is
// true only when all sends succeeded (or the grant set was empty); failed
// chats are enumerated, never omitted.
type NotifyResult struct {
	Success bool
	Results []ChatResult
}

// RateLimiter gates notify requests per service. Implementations live in
// infra; a nil limiter disables the check.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit carries the limiter policy into the dispatcher.
type RateLimit struct {
	Limiter RateLimiter
	Limit   int
	Window  time.Duration
}

type NotifyDispatcher interface {
	Notify(ctx context.Context, apiKey, message string) (*NotifyResult, error)
}

var _ NotifyDispatcher = (*notifyDispatcher)(nil)

// notifyDispatcher is the fan-out orchestrator: resolve the key, dispatch one
// independent send per granted chat, persist one event per attempt, wait for
// every outcome, aggregate. No retries anywhere in this flow.
type notifyDispatcher struct {
	resolver PermissionResolver
	chats    repository.ChatRepository
	events   repository.MessageEventRepository
	client   adapter.TelegramClient
	pool     *worker.Pool
	limit    RateLimit
	log      *zerolog.Logger
}

func NewNotifyDispatcher(
	resolver PermissionResolver,
	chats repository.ChatRepository,
	events repository.MessageEventRepository,
	client adapter.TelegramClient,
	pool *worker.Pool,
	limit RateLimit,
	logger *zerolog.Logger,
) *notifyDispatcher {
	return &notifyDispatcher{
		resolver: resolver,
		chats:    chats,
		events:   events,
		client:   client,
		pool:     pool,
		limit:    limit,
		log:      logger,
	}
}

func (d *notifyDispatcher) Notify(ctx context.Context, apiKey, message string) (*NotifyResult, error) {
	grant, err := d.resolver.Resolve(ctx, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			metrics.IncNotifyRequest("unauthorized")
		}
		return nil, err
	}
	ctx = logging.WithServiceID(ctx, grant.ServiceID)
	log := logging.With(ctx, d.log)

	message = strings.TrimSpace(message)
	if message == "" {
		metrics.IncNotifyRequest("invalid")
		return nil, domain.ErrInvalidArgument
	}

	if d.limit.Limiter != nil {
		ok, err := d.limit.Limiter.Allow(ctx, "rate_limit:notify:"+grant.ServiceID, d.limit.Limit, d.limit.Window)
		if err != nil {
			// A broken limiter backend must not take notifications down.
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			metrics.IncNotifyRequest("rate_limited")
			return nil, domain.ErrRateLimited
		}
	}

	// Prefix with the service name so recipients can tell senders apart.
	formatted := grant.ServiceName + ": " + message

	targets := d.loadTargets(ctx, grant.ChatIDs, log)
	if len(targets) == 0 {
		// A service with no granted chats is a valid, if useless, configuration.
		metrics.IncNotifyRequest("ok")
		metrics.ObserveFanout(0, 0)
		return &NotifyResult{Success: true, Results: []ChatResult{}}, nil
	}

	start := time.Now()
	results := make([]ChatResult, len(targets))
	var wg sync.WaitGroup
	for i, chat := range targets {
		i, chat := i, chat
		wg.Add(1)
		task := func(taskCtx context.Context) {
			defer wg.Done()
			results[i] = d.sendOne(ctx, grant.ServiceID, chat, formatted, log)
		}
		if err := d.pool.Submit(ctx, task); err != nil {
			// Pool shutting down: run inline so this chat still gets exactly
			// one attempt, one result and one event.
			task(ctx)
		}
	}
	wg.Wait()
	metrics.ObserveFanout(len(targets), float64(time.Since(start).Milliseconds()))

	overall := true
	for _, r := range results {
		if !r.Success {
			overall = false
			break
		}
	}
	metrics.IncNotifyRequest("ok")
	log.Info().
		Int("chats", len(targets)).
		Bool("success", overall).
		Dur("duration", time.Since(start)).
		Msg("notification fan-out finished")
	return &NotifyResult{Success: overall, Results: results}, nil
}

// loadTargets resolves granted chat IDs to chat rows. A grant pointing at a
// vanished chat is skipped with a warning instead of failing the request.
func (d *notifyDispatcher) loadTargets(ctx context.Context, chatIDs []string, log *zerolog.Logger) []*model.Chat {
	targets := make([]*model.Chat, 0, len(chatIDs))
	for _, id := range chatIDs {
		chat, err := d.chats.FindByID(ctx, repository.NoTX, id)
		if err != nil {
			log.Warn().Str("chat", id).Err(err).Msg("granted chat not loadable, skipping")
			continue
		}
		targets = append(targets, chat)
	}
	return targets
}

// sendOne performs a single independent send and records exactly one event,
// success or failure. One chat's failure never aborts or retries siblings.
func (d *notifyDispatcher) sendOne(ctx context.Context, serviceID string, chat *model.Chat, text string, log *zerolog.Logger) ChatResult {
	res := ChatResult{ChatID: chat.ChatID, ChatTitle: chat.DisplayTitle()}

	sent, err := d.client.SendMessage(ctx, chat.ChatID, text)
	var event *model.MessageEvent
	if err != nil {
		msg := err.Error()
		res.Error = &msg
		event = model.NewFailureEvent(serviceID, chat.ID, text, msg)
	} else {
		res.Success = true
		res.TelegramMessageID = &sent.TelegramMessageID
		event = model.NewSuccessEvent(serviceID, chat.ID, text, sent.TelegramMessageID)
	}
	metrics.IncSend(res.Success)

	if err := d.events.Record(ctx, repository.NoTX, event); err != nil {
		log.Error().Int64("chat_id", chat.ChatID).Err(err).Msg("failed to record message event")
	}
	return res
}
