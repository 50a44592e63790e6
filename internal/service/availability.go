package service

import (
	"context"
	"time"

	"staybook/internal/domain"

	"github.com/rs/zerolog"
)

// Overlaps reports whether two half-open [checkIn, checkOut) stays intersect.
// Back-to-back stays (a.checkOut == b.checkIn) do not overlap.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

// AvailabilityOracle answers whether a room can take a stay. Canceled
// bookings never block a room.
type AvailabilityOracle struct {
	store  domain.Store
	logger *zerolog.Logger
}

func NewAvailabilityOracle(store domain.Store, logger *zerolog.Logger) *AvailabilityOracle {
	return &AvailabilityOracle{
		store:  store,
		logger: logger,
	}
}

func (o *AvailabilityOracle) IsRoomAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error) {
	count, err := o.store.CountRoomOverlaps(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
