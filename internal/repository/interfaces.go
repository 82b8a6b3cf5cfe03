package repository

import (
	"context"

	"github.com/jafarshop/storefront-checkout/internal/domain"
)

// IdempotencyKeyRepository defines idempotency key data access methods
type IdempotencyKeyRepository interface {
	// GetByKey returns nil, nil for an unknown key
	GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	Create(ctx context.Context, key *domain.IdempotencyKey) error
}

// CheckoutEventRepository defines checkout audit event data access methods
type CheckoutEventRepository interface {
	Create(ctx context.Context, event *domain.CheckoutEvent) error
	GetByOrderID(ctx context.Context, orderID string) ([]*domain.CheckoutEvent, error)
	ListRecentByType(ctx context.Context, eventType string, limit int) ([]*domain.CheckoutEvent, error)
}

// Repositories aggregates all repositories
type Repositories struct {
	IdempotencyKey IdempotencyKeyRepository
	CheckoutEvent  CheckoutEventRepository
}
