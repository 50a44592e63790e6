package repository

import (
	"context"
	"sync"
	"time"

	"staybook/internal/models"
)

type memoryCartEntry struct {
	cart      *models.Cart
	expiresAt time.Time
}

// MemoryCartRepository is the in-process fallback store. Entries expire
// lazily on read, matching the redis TTL semantics closely enough for a
// degraded mode.
type MemoryCartRepository struct {
	carts sync.Map
	ttl   time.Duration
}

func NewMemoryCartRepository(ttl time.Duration) *MemoryCartRepository {
	return &MemoryCartRepository{
		ttl: ttl,
	}
}

func (r *MemoryCartRepository) GetCart(ctx context.Context, key string) (*models.Cart, error) {
	val, ok := r.carts.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryCartEntry)
	if time.Now().After(entry.expiresAt) {
		r.carts.Delete(key)
		return nil, nil
	}
	return entry.cart, nil
}

func (r *MemoryCartRepository) SetCart(ctx context.Context, key string, cart *models.Cart) error {
	r.carts.Store(key, &memoryCartEntry{
		cart:      cart,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryCartRepository) ClearCart(ctx context.Context, key string) error {
	r.carts.Delete(key)
	return nil
}
