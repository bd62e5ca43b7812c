package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/cache"
	"github.com/andreasstove999/labtest-storefront/internal/logging"
)

func testKey(id string) string  { return "catalog:test:" + id }
func panelKey(id string) string { return "catalog:panel:" + id }

// CachedRepository reads single tests and panels through the cache and drops
// the affected keys on writes. Lists always hit the database.
type CachedRepository struct {
	Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedRepository(next Repository, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedRepository {
	return &CachedRepository{Repository: next, cache: c, ttl: ttl, logger: logger}
}

func (r *CachedRepository) GetTest(ctx context.Context, id string) (*Test, error) {
	var t Test
	if r.load(ctx, testKey(id), &t) {
		return &t, nil
	}
	got, err := r.Repository.GetTest(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, testKey(id), got)
	return got, nil
}

func (r *CachedRepository) GetPanel(ctx context.Context, id string) (*Panel, error) {
	var p Panel
	if r.load(ctx, panelKey(id), &p) {
		return &p, nil
	}
	got, err := r.Repository.GetPanel(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, panelKey(id), got)
	return got, nil
}

func (r *CachedRepository) UpdateTest(ctx context.Context, t *Test) error {
	if err := r.Repository.UpdateTest(ctx, t); err != nil {
		return err
	}
	r.invalidateTest(ctx, t.ID)
	return nil
}

func (r *CachedRepository) DeleteTest(ctx context.Context, id string) error {
	if err := r.Repository.DeleteTest(ctx, id); err != nil {
		return err
	}
	r.invalidateTest(ctx, id)
	return nil
}

func (r *CachedRepository) UpdatePanel(ctx context.Context, p *Panel) error {
	if err := r.Repository.UpdatePanel(ctx, p); err != nil {
		return err
	}
	r.drop(ctx, panelKey(p.ID))
	return nil
}

func (r *CachedRepository) DeletePanel(ctx context.Context, id string) error {
	if err := r.Repository.DeletePanel(ctx, id); err != nil {
		return err
	}
	r.drop(ctx, panelKey(id))
	return nil
}

// invalidateTest also drops every panel bundling the test, since a panel's
// original price is derived from its tests.
func (r *CachedRepository) invalidateTest(ctx context.Context, id string) {
	keys := []string{testKey(id)}
	panels, err := r.Repository.ListPanels(ctx, PanelFilter{TestID: id})
	if err != nil {
		logging.Warn(ctx, r.logger, "list panels for cache invalidation", zap.String("test_id", id), zap.Error(err))
	}
	for _, p := range panels {
		keys = append(keys, panelKey(p.ID))
	}
	r.drop(ctx, keys...)
}

func (r *CachedRepository) load(ctx context.Context, key string, dst any) bool {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logging.Warn(ctx, r.logger, "catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logging.Warn(ctx, r.logger, "catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		r.drop(ctx, key)
		return false
	}
	return true
}

func (r *CachedRepository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		logging.Warn(ctx, r.logger, "catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedRepository) drop(ctx context.Context, keys ...string) {
	if err := r.cache.Del(ctx, keys...); err != nil {
		logging.Warn(ctx, r.logger, "catalog cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
