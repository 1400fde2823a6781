package store

import (
	"context"
	"errors"
	"time"

	"edencore/marketrun/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidBatch = errors.New("invalid batch")
)

// Repository is the storage behind the stub purchasing backend.
type Repository interface {
	ListDemand(ctx context.Context) ([]domain.DemandLine, error)
	RecordBatch(ctx context.Context, purchaserID string, batch domain.BatchCreate, at time.Time) (*domain.BatchResponse, error)
}
