package service

import (
	"context"
	"time"

	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartKeyForUser returns the cart key for an authenticated guest.
func CartKeyForUser(userID string) string {
	return "user:" + userID
}

// NewSessionKey mints a cart key for an anonymous visitor.
func NewSessionKey() string {
	return "session:" + uuid.NewString()
}

// CartService manages the pre-checkout cart. Carts live in redis (with a
// memory fallback) and expire on their own; nothing here touches bookings.
type CartService struct {
	repo      domain.CartRepository
	store     domain.Store
	validator *BookingValidator
	logger    *zerolog.Logger
}

func NewCartService(repo domain.CartRepository, store domain.Store, validator *BookingValidator, logger *zerolog.Logger) *CartService {
	return &CartService{
		repo:      repo,
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

func (s *CartService) Get(ctx context.Context, key string) (*models.Cart, error) {
	cart, err := s.repo.GetCart(ctx, key)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &models.Cart{}
	}
	return cart, nil
}

// Add puts a stay for the given room into the cart. Price and room details
// come from storage, not from the client.
func (s *CartService) Add(ctx context.Context, key string, roomID int64, checkIn, checkOut time.Time) (*models.Cart, error) {
	if rej := s.validator.ValidateRange(checkIn, checkOut); rej != nil {
		return nil, rej
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// Окно между добавлением и оформлением все равно закрывается
	// повторной проверкой при коммите; здесь отсекаем заведомо занятое.
	if err := s.validator.ValidateAvailability(ctx, room.ID, room.RoomNum, checkIn, checkOut); err != nil {
		return nil, err
	}

	cart, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	line := models.CartLine{
		RoomID:        room.ID,
		RoomNum:       room.RoomNum,
		Title:         room.TypeName,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		PricePerNight: room.Price,
	}
	line.TotalPrice = line.PricePerNight * float64(line.Nights())

	// Гость не может держать две пересекающиеся брони, даже в разных номерах
	for _, existing := range cart.Lines {
		if existing.Same(line) {
			return nil, reject(RejectCartOverlap, "room %s is already in the cart for these dates", room.RoomNum)
		}
		if Overlaps(existing.CheckIn, existing.CheckOut, line.CheckIn, line.CheckOut) {
			return nil, reject(RejectCartOverlap, "cart already holds room %s for overlapping dates", existing.RoomNum)
		}
	}

	cart.Lines = append(cart.Lines, line)
	cart.UpdatedAt = time.Now()

	if err := s.repo.SetCart(ctx, key, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Remove drops the line matching room and dates; a no-op if absent.
func (s *CartService) Remove(ctx context.Context, key string, roomID int64, checkIn, checkOut time.Time) (*models.Cart, error) {
	cart, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	target := models.CartLine{RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut}
	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		if !line.Same(target) {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(cart.Lines) {
		return cart, nil
	}
	cart.Lines = kept
	cart.UpdatedAt = time.Now()

	if len(cart.Lines) == 0 {
		if err := s.repo.ClearCart(ctx, key); err != nil {
			return nil, err
		}
		return cart, nil
	}

	if err := s.repo.SetCart(ctx, key, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, key string) error {
	return s.repo.ClearCart(ctx, key)
}

func (s *CartService) Count(ctx context.Context, key string) (int, error) {
	cart, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return cart.Count(), nil
}

func (s *CartService) Total(ctx context.Context, key string) (float64, error) {
	cart, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return cart.Total(), nil
}

// Merge folds an anonymous session cart into the user cart on login. Lines
// already present in the user cart win; the session cart is cleared.
func (s *CartService) Merge(ctx context.Context, sessionKey, userKey string) (*models.Cart, error) {
	sessionCart, err := s.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	userCart, err := s.Get(ctx, userKey)
	if err != nil {
		return nil, err
	}

	changed := false
	for _, line := range sessionCart.Lines {
		conflict := false
		for _, existing := range userCart.Lines {
			if Overlaps(existing.CheckIn, existing.CheckOut, line.CheckIn, line.CheckOut) {
				conflict = true
				break
			}
		}
		if !conflict {
			userCart.Lines = append(userCart.Lines, line)
			changed = true
		}
	}

	if changed {
		userCart.UpdatedAt = time.Now()
		if err := s.repo.SetCart(ctx, userKey, userCart); err != nil {
			return nil, err
		}
	}

	if len(sessionCart.Lines) > 0 {
		if err := s.repo.ClearCart(ctx, sessionKey); err != nil {
			s.logger.Warn().Err(err).Str("key", sessionKey).Msg("failed to clear session cart after merge")
		}
	}

	return userCart, nil
}
