package cache

import (
	"context"
	"time"

	"edencore/marketrun/internal/domain"
)

type ConsolidationCache interface {
	Get(ctx context.Context, key string) ([]domain.ConsolidatedItem, bool, error)
	Set(ctx context.Context, key string, items []domain.ConsolidatedItem, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopConsolidationCache struct{}

func (NoopConsolidationCache) Get(_ context.Context, _ string) ([]domain.ConsolidatedItem, bool, error) {
	return nil, false, nil
}

func (NoopConsolidationCache) Set(_ context.Context, _ string, _ []domain.ConsolidatedItem, _ time.Duration) error {
	return nil
}

func (NoopConsolidationCache) Delete(_ context.Context, _ string) error {
	return nil
}
