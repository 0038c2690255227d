package postgres

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
	red "telegram-notify-relay/internal/infra/redis"
)

// mockRedisClient is an in-memory stand-in for the redis cache.
type mockRedisClient struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{data: map[string]string{}}
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	default:
		m.data[key] = fmt.Sprintf("%v", v)
	}
	return nil
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", red.Nil
	}
	return v, nil
}

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *mockRedisClient) Expire(ctx context.Context, key string, _ time.Duration) error { return nil }

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }

func (m *mockRedisClient) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// countingServiceRepo tracks how often the backing store is actually hit.
type countingServiceRepo struct {
	mu       sync.Mutex
	byID     map[string]*model.Service
	keyReads int
	idReads  int
}

func newCountingServiceRepo() *countingServiceRepo {
	return &countingServiceRepo{byID: map[string]*model.Service{}}
}

func (r *countingServiceRepo) Create(ctx context.Context, tx repository.Tx, s *model.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *countingServiceRepo) FindByAPIKey(ctx context.Context, tx repository.Tx, apiKey string) (*model.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyReads++
	for _, s := range r.byID {
		if s.APIKey == apiKey {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *countingServiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idReads++
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *countingServiceRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Service, error) {
	return nil, nil
}

func (r *countingServiceRepo) UpdateAuthorizations(ctx context.Context, tx repository.Tx, serviceID string, chatIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[serviceID]
	if !ok {
		return domain.ErrNotFound
	}
	s.AuthorizedChatIDs = append([]string(nil), chatIDs...)
	return nil
}

func (r *countingServiceRepo) UpdateDetails(ctx context.Context, tx repository.Tx, s *model.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	*cur = *s
	return nil
}

func (r *countingServiceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func seedCachedService(t *testing.T, inner *countingServiceRepo) *model.Service {
	t.Helper()
	svc, err := model.NewService("", "billing", "", "")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.AuthorizedChatIDs = []string{"c1"}
	if err := inner.Create(context.Background(), repository.NoTX, svc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc
}

func TestCacheDecorator_SecondLookupHitsCache(t *testing.T) {
	t.Parallel()
	inner := newCountingServiceRepo()
	cache := newMockRedisClient()
	repo := NewServiceRepoCacheDecorator(inner, cache, time.Hour)
	svc := seedCachedService(t, inner)
	ctx := context.Background()

	first, err := repo.FindByAPIKey(ctx, repository.NoTX, svc.APIKey)
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := repo.FindByAPIKey(ctx, repository.NoTX, svc.APIKey)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if first.ID != svc.ID || second.ID != svc.ID {
		t.Errorf("lookup returned wrong service: %v / %v", first.ID, second.ID)
	}
	if inner.keyReads != 1 {
		t.Errorf("backing store hit %d times, want 1", inner.keyReads)
	}
}

func TestCacheDecorator_WarmsIDKeyFromAPIKeyLookup(t *testing.T) {
	t.Parallel()
	inner := newCountingServiceRepo()
	cache := newMockRedisClient()
	repo := NewServiceRepoCacheDecorator(inner, cache, time.Hour)
	svc := seedCachedService(t, inner)
	ctx := context.Background()

	if _, err := repo.FindByAPIKey(ctx, repository.NoTX, svc.APIKey); err != nil {
		t.Fatalf("FindByAPIKey: %v", err)
	}
	if _, err := repo.FindByID(ctx, repository.NoTX, svc.ID); err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if inner.idReads != 0 {
		t.Errorf("FindByID hit the store %d times after key lookup warmed the cache", inner.idReads)
	}
}

func TestCacheDecorator_WriteInvalidates(t *testing.T) {
	t.Parallel()
	inner := newCountingServiceRepo()
	cache := newMockRedisClient()
	repo := NewServiceRepoCacheDecorator(inner, cache, time.Hour)
	svc := seedCachedService(t, inner)
	ctx := context.Background()

	if _, err := repo.FindByAPIKey(ctx, repository.NoTX, svc.APIKey); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if err := repo.UpdateAuthorizations(ctx, repository.NoTX, svc.ID, []string{"c1", "c2"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if cache.has(serviceKeyByAPIKey(svc.APIKey)) || cache.has(serviceKeyByID(svc.ID)) {
		t.Error("write must drop both cache keys")
	}

	got, err := repo.FindByAPIKey(ctx, repository.NoTX, svc.APIKey)
	if err != nil {
		t.Fatalf("lookup after write: %v", err)
	}
	if len(got.AuthorizedChatIDs) != 2 {
		t.Errorf("stale grants after write: %v", got.AuthorizedChatIDs)
	}
}

func TestCacheDecorator_MissFallsThrough(t *testing.T) {
	t.Parallel()
	inner := newCountingServiceRepo()
	repo := NewServiceRepoCacheDecorator(inner, newMockRedisClient(), time.Hour)

	if _, err := repo.FindByAPIKey(context.Background(), repository.NoTX, "nope"); err != domain.ErrNotFound {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}
