package apiclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"edencore/marketrun/internal/domain"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]domain.ConsolidatedItem
	getErr  error
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]domain.ConsolidatedItem)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]domain.ConsolidatedItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	items, ok := m.entries[key]
	return items, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, items []domain.ConsolidatedItem, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = items
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.deletes++
	return nil
}

type countingBackend struct {
	fetches   int
	submits   int
	submitErr error
}

func (b *countingBackend) GetConsolidation(context.Context) ([]domain.ConsolidatedItem, error) {
	b.fetches++
	return []domain.ConsolidatedItem{{ProductID: "p1"}}, nil
}

func (b *countingBackend) SubmitBatch(context.Context, domain.BatchCreate) (*domain.BatchResponse, error) {
	b.submits++
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return &domain.BatchResponse{ID: "b1"}, nil
}

func TestCachedClientReadsThrough(t *testing.T) {
	backend := &countingBackend{}
	store := newMemoryCache()
	client := NewCachedClient(backend, store, time.Minute, "dev:1", nil)
	ctx := context.Background()

	_, err := client.GetConsolidation(ctx)
	require.NoError(t, err)
	_, err = client.GetConsolidation(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, backend.fetches)
}

func TestCachedClientInvalidatesOnSuccessfulSubmit(t *testing.T) {
	backend := &countingBackend{}
	store := newMemoryCache()
	client := NewCachedClient(backend, store, time.Minute, "dev:1", nil)
	ctx := context.Background()

	_, err := client.GetConsolidation(ctx)
	require.NoError(t, err)

	backend.submitErr = errors.New("boom")
	_, err = client.SubmitBatch(ctx, domain.BatchCreate{})
	require.Error(t, err)
	require.Zero(t, store.deletes)

	backend.submitErr = nil
	_, err = client.SubmitBatch(ctx, domain.BatchCreate{})
	require.NoError(t, err)
	require.Equal(t, 1, store.deletes)

	_, err = client.GetConsolidation(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, backend.fetches)
}

func TestCachedClientBypassesBrokenCache(t *testing.T) {
	backend := &countingBackend{}
	store := newMemoryCache()
	store.getErr = errors.New("redis down")
	client := NewCachedClient(backend, store, time.Minute, "dev:1", nil)

	items, err := client.GetConsolidation(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, backend.fetches)
}

func TestCacheKeyDependsOnIdentity(t *testing.T) {
	require.NotEqual(t, buildCacheKey("dev:1"), buildCacheKey("dev:2"))
	require.Equal(t, buildCacheKey("dev:1"), buildCacheKey("dev:1"))
}
