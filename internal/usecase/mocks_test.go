package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/adapter"
	"telegram-notify-relay/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

// memServiceRepo is a small in-memory implementation used by unit tests.
type memServiceRepo struct {
	mu    sync.RWMutex
	byID  map[string]*model.Service
	byKey map[string]*model.Service
}

func newMemServiceRepo() *memServiceRepo {
	return &memServiceRepo{byID: map[string]*model.Service{}, byKey: map[string]*model.Service{}}
}

func copyService(s *model.Service) *model.Service {
	cp := *s
	cp.AuthorizedChatIDs = append([]string(nil), s.AuthorizedChatIDs...)
	return &cp
}

func (m *memServiceRepo) Create(ctx context.Context, tx repository.Tx, s *model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Name == s.Name {
			return domain.ErrAlreadyExists
		}
	}
	cp := copyService(s)
	m.byID[s.ID] = cp
	m.byKey[s.APIKey] = cp
	return nil
}

func (m *memServiceRepo) FindByAPIKey(ctx context.Context, tx repository.Tx, apiKey string) (*model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byKey[apiKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyService(s), nil
}

func (m *memServiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyService(s), nil
}

func (m *memServiceRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Service, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, copyService(s))
	}
	return out, nil
}

func (m *memServiceRepo) UpdateAuthorizations(ctx context.Context, tx repository.Tx, serviceID string, chatIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[serviceID]
	if !ok {
		return domain.ErrNotFound
	}
	s.AuthorizedChatIDs = append([]string(nil), chatIDs...)
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memServiceRepo) UpdateDetails(ctx context.Context, tx repository.Tx, s *model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Name = s.Name
	cur.Label = s.Label
	cur.Description = s.Description
	cur.UpdatedAt = s.UpdatedAt
	return nil
}

func (m *memServiceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byKey, s.APIKey)
	delete(m.byID, id)
	return nil
}

// memChatRepo provides in-memory chats for tests.
type memChatRepo struct {
	mu   sync.RWMutex
	byID map[string]*model.Chat
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{byID: map[string]*model.Chat{}}
}

func (m *memChatRepo) Create(ctx context.Context, tx repository.Tx, c *model.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.ChatID == c.ChatID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memChatRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memChatRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.byID {
		if c.ChatID == chatID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memChatRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Chat, 0, len(m.byID))
	for _, c := range m.byID {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memChatRepo) Upsert(ctx context.Context, tx repository.Tx, c *model.Chat) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.ChatID == c.ChatID {
			existing.Title = c.Title
			existing.Username = c.Username
			existing.ChatType = c.ChatType
			existing.UpdatedAt = time.Now()
			return false, nil
		}
	}
	cp := *c
	m.byID[c.ID] = &cp
	return true, nil
}

func (m *memChatRepo) UpdateDetails(ctx context.Context, tx repository.Tx, c *model.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	*cur = *c
	return nil
}

func (m *memChatRepo) DeleteAll(ctx context.Context, tx repository.Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = map[string]*model.Chat{}
	return nil
}

// memEventRepo is an append-only in-memory event log.
type memEventRepo struct {
	mu     sync.RWMutex
	events []*model.MessageEvent
}

func newMemEventRepo() *memEventRepo { return &memEventRepo{} }

func (m *memEventRepo) Record(ctx context.Context, tx repository.Tx, e *model.MessageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

func (m *memEventRepo) List(ctx context.Context, tx repository.Tx, f repository.EventFilter) ([]*model.MessageEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.MessageEvent
	for _, e := range m.events {
		if f.ServiceID != "" && e.ServiceID != f.ServiceID {
			continue
		}
		if f.ChatID != "" && e.ChatID != f.ChatID {
			continue
		}
		if f.Success != nil && e.Success != *f.Success {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memEventRepo) Stats(ctx context.Context, tx repository.Tx) (*repository.EventStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := repository.EventStats{Total: len(m.events)}
	for _, e := range m.events {
		if e.Success {
			st.Successful++
		} else {
			st.Failed++
		}
	}
	return &st, nil
}

func (m *memEventRepo) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// memTxManager runs the callback without a real transaction.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// fakeTelegramClient scripts per-chat outcomes for fan-out tests.
type fakeTelegramClient struct {
	mu sync.Mutex
	// messageIDs maps chat ID to the Telegram message ID to return.
	messageIDs map[int64]int64
	// failures maps chat ID to the error message to fail with.
	failures map[int64]string
	sent     []int64
	chats    []adapter.ChatInfo
}

func newFakeTelegramClient() *fakeTelegramClient {
	return &fakeTelegramClient{messageIDs: map[int64]int64{}, failures: map[int64]string{}}
}

func (f *fakeTelegramClient) SendMessage(ctx context.Context, chatID int64, text string) (adapter.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, chatID)
	if msg, ok := f.failures[chatID]; ok {
		return adapter.SendResult{}, errors.New(msg)
	}
	id, ok := f.messageIDs[chatID]
	if !ok {
		id = 1
	}
	return adapter.SendResult{TelegramMessageID: id}, nil
}

func (f *fakeTelegramClient) DiscoverChats(ctx context.Context) ([]adapter.ChatInfo, error) {
	return f.chats, nil
}

func (f *fakeTelegramClient) BotInfo(ctx context.Context) (adapter.BotInfo, error) {
	return adapter.BotInfo{ID: 42, Username: "relay_bot", Name: "Relay"}, nil
}

func (f *fakeTelegramClient) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// denyAllLimiter rejects every request.
type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}
