package repository

import (
	"context"
	"sync/atomic"
	"time"

	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverCartRepository keeps carts in redis and degrades to the memory
// store when redis is unreachable. Recovery is retried at most once a minute.
type FailoverCartRepository struct {
	primary   domain.CartRepository
	fallback  domain.CartRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverCartRepository(primary, fallback domain.CartRepository, logger *zerolog.Logger) *FailoverCartRepository {
	return &FailoverCartRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCartRepository) GetCart(ctx context.Context, key string) (*models.Cart, error) {
	if !r.isDown.Load() {
		cart, err := r.primary.GetCart(ctx, key)
		if err == nil {
			return cart, nil
		}
		r.logger.Error().Err(err).Msg("Primary cart repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		cart, err := r.primary.GetCart(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return cart, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetCart(ctx, key)
}

func (r *FailoverCartRepository) SetCart(ctx context.Context, key string, cart *models.Cart) error {
	if !r.isDown.Load() {
		err := r.primary.SetCart(ctx, key, cart)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary cart repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetCart(ctx, key, cart)
}

func (r *FailoverCartRepository) ClearCart(ctx context.Context, key string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearCart(ctx, key)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary cart repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearCart(ctx, key)
}
