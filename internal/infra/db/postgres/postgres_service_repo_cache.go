package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/repository"
	"telegram-notify-relay/internal/infra/metrics"
	red "telegram-notify-relay/internal/infra/redis"
)

var _ repository.ServiceRepository = (*serviceRepoCacheDecorator)(nil)

// serviceRepoCacheDecorator caches API-key and ID lookups in redis. Reads may
// be served from cache; every write invalidates both keys first so lookups
// after a write always observe the linearized store state.
type serviceRepoCacheDecorator struct {
	inner repository.ServiceRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewServiceRepoCacheDecorator(inner repository.ServiceRepository, cache red.RedisClient, ttl time.Duration) repository.ServiceRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &serviceRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func serviceKeyByAPIKey(apiKey string) string { return fmt.Sprintf("service:key:%s", apiKey) }
func serviceKeyByID(id string) string         { return fmt.Sprintf("service:id:%s", id) }

func (d *serviceRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, s *model.Service) error {
	d.invalidate(ctx, s)
	return d.inner.Create(ctx, tx, s)
}

func (d *serviceRepoCacheDecorator) FindByAPIKey(ctx context.Context, tx repository.Tx, apiKey string) (*model.Service, error) {
	key := serviceKeyByAPIKey(apiKey)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var s model.Service
		if json.Unmarshal([]byte(val), &s) == nil {
			metrics.IncCacheRequest("service", "hit")
			return &s, nil
		}
	}
	metrics.IncCacheRequest("service", "miss")

	s, err := d.inner.FindByAPIKey(ctx, tx, apiKey)
	if err != nil {
		return nil, err
	}
	d.store(ctx, s)
	return s, nil
}

func (d *serviceRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Service, error) {
	key := serviceKeyByID(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var s model.Service
		if json.Unmarshal([]byte(val), &s) == nil {
			metrics.IncCacheRequest("service", "hit")
			return &s, nil
		}
	}
	metrics.IncCacheRequest("service", "miss")

	s, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, s)
	return s, nil
}

func (d *serviceRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Service, error) {
	return d.inner.ListAll(ctx, tx)
}

func (d *serviceRepoCacheDecorator) UpdateAuthorizations(ctx context.Context, tx repository.Tx, serviceID string, chatIDs []string) error {
	d.invalidateByID(ctx, tx, serviceID)
	return d.inner.UpdateAuthorizations(ctx, tx, serviceID, chatIDs)
}

func (d *serviceRepoCacheDecorator) UpdateDetails(ctx context.Context, tx repository.Tx, s *model.Service) error {
	d.invalidate(ctx, s)
	return d.inner.UpdateDetails(ctx, tx, s)
}

func (d *serviceRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id string) error {
	d.invalidateByID(ctx, tx, id)
	return d.inner.Delete(ctx, tx, id)
}

func (d *serviceRepoCacheDecorator) store(ctx context.Context, s *model.Service) {
	bytes, err := json.Marshal(s)
	if err != nil {
		return
	}
	// Warm both keys so FindByID after FindByAPIKey hits.
	_ = d.cache.Set(ctx, serviceKeyByAPIKey(s.APIKey), bytes, d.ttl)
	_ = d.cache.Set(ctx, serviceKeyByID(s.ID), bytes, d.ttl)
}

func (d *serviceRepoCacheDecorator) invalidate(ctx context.Context, s *model.Service) {
	_ = d.cache.Del(ctx, serviceKeyByAPIKey(s.APIKey), serviceKeyByID(s.ID))
}

// invalidateByID resolves the API key via the inner repo so both cache keys
// can be dropped before the write lands.
func (d *serviceRepoCacheDecorator) invalidateByID(ctx context.Context, tx repository.Tx, id string) {
	_ = d.cache.Del(ctx, serviceKeyByID(id))
	if s, err := d.inner.FindByID(ctx, tx, id); err == nil {
		_ = d.cache.Del(ctx, serviceKeyByAPIKey(s.APIKey))
	}
}
