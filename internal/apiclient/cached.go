package apiclient

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"edencore/marketrun/internal/cache"
	"edencore/marketrun/internal/domain"
)

type Backend interface {
	GetConsolidation(ctx context.Context) ([]domain.ConsolidatedItem, error)
	SubmitBatch(ctx context.Context, batch domain.BatchCreate) (*domain.BatchResponse, error)
}

// CachedClient serves consolidation reads from a cache and drops the cached
// list whenever a batch is accepted.
type CachedClient struct {
	next   Backend
	cache  cache.ConsolidationCache
	ttl    time.Duration
	key    string
	logger *zap.Logger
}

func NewCachedClient(next Backend, cacheStore cache.ConsolidationCache, ttl time.Duration, identity string, logger *zap.Logger) *CachedClient {
	if cacheStore == nil {
		cacheStore = cache.NoopConsolidationCache{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClient{
		next:   next,
		cache:  cacheStore,
		ttl:    ttl,
		key:    buildCacheKey(identity),
		logger: logger,
	}
}

func (c *CachedClient) GetConsolidation(ctx context.Context) ([]domain.ConsolidatedItem, error) {
	cached, ok, err := c.cache.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("consolidation cache read failed", zap.Error(err))
	}
	if err == nil && ok {
		return cached, nil
	}

	items, err := c.next.GetConsolidation(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, c.key, items, c.ttl); err != nil {
		c.logger.Warn("consolidation cache write failed", zap.Error(err))
	}
	return items, nil
}

func (c *CachedClient) SubmitBatch(ctx context.Context, batch domain.BatchCreate) (*domain.BatchResponse, error) {
	resp, err := c.next.SubmitBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Delete(ctx, c.key); err != nil {
		c.logger.Warn("consolidation cache invalidation failed", zap.Error(err))
	}
	return resp, nil
}

func buildCacheKey(identity string) string {
	sum := sha1.Sum([]byte(identity))
	return "edencore:consolidation:" + hex.EncodeToString(sum[:])
}
