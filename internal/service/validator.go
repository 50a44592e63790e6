package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staybook/internal/domain"
	"staybook/internal/models"
)

// Rejection codes returned to clients. Stable strings, do not rename.
const (
	RejectInvalidRange    = "invalid_range"
	RejectPastCheckIn     = "past_checkin"
	RejectTooFarAhead     = "too_far_ahead"
	RejectRoomUnavailable = "room_unavailable"
	RejectUserOverlap     = "user_overlap"
	RejectEmptyCart       = "empty_cart"
	RejectCartOverlap     = "cart_overlap"
)

// Rejection is a business-rule refusal, as opposed to an infrastructure
// failure. Handlers map it to 4xx, everything else to 5xx.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps a Rejection from err, nil if it is not one.
func AsRejection(err error) *Rejection {
	var r *Rejection
	if errors.As(err, &r) {
		return r
	}
	return nil
}

// BookingValidator runs the ordered business checks for a single booking
// line: date range sanity, then the actual availability lookups.
type BookingValidator struct {
	store          domain.Store
	oracle         *AvailabilityOracle
	maxAdvanceDays int
	now            func() time.Time
}

func NewBookingValidator(store domain.Store, oracle *AvailabilityOracle, maxAdvanceDays int) *BookingValidator {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	return &BookingValidator{
		store:          store,
		oracle:         oracle,
		maxAdvanceDays: maxAdvanceDays,
		now:            time.Now,
	}
}

// ValidateRange checks the dates alone, without touching storage.
func (v *BookingValidator) ValidateRange(checkIn, checkOut time.Time) *Rejection {
	if !checkOut.After(checkIn) {
		return reject(RejectInvalidRange, "check-out %s must be after check-in %s",
			checkOut.Format(models.DateLayout), checkIn.Format(models.DateLayout))
	}

	today := truncateToDay(v.now())
	if checkIn.Before(today) {
		return reject(RejectPastCheckIn, "check-in %s is in the past", checkIn.Format(models.DateLayout))
	}

	if checkIn.After(today.AddDate(0, 0, v.maxAdvanceDays)) {
		return reject(RejectTooFarAhead, "check-in %s is more than %d days ahead",
			checkIn.Format(models.DateLayout), v.maxAdvanceDays)
	}

	return nil
}

// ValidateAvailability asks the oracle whether the room is free for the range.
func (v *BookingValidator) ValidateAvailability(ctx context.Context, roomID int64, roomNum string, checkIn, checkOut time.Time) error {
	available, err := v.oracle.IsRoomAvailable(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return err
	}
	if !available {
		return reject(RejectRoomUnavailable, "room %s is not available for %s to %s",
			roomNum, checkIn.Format(models.DateLayout), checkOut.Format(models.DateLayout))
	}
	return nil
}

// ValidateLine runs the full ordered check for one line: range, room
// availability, then the guest's own bookings.
func (v *BookingValidator) ValidateLine(ctx context.Context, userID string, line models.CartLine) error {
	if rej := v.ValidateRange(line.CheckIn, line.CheckOut); rej != nil {
		return rej
	}

	if err := v.ValidateAvailability(ctx, line.RoomID, line.RoomNum, line.CheckIn, line.CheckOut); err != nil {
		return err
	}

	count, err := v.store.CountUserOverlaps(ctx, userID, line.CheckIn, line.CheckOut, 0)
	if err != nil {
		return err
	}
	if count > 0 {
		return reject(RejectUserOverlap, "guest already has a booking overlapping %s to %s",
			line.CheckIn.Format(models.DateLayout), line.CheckOut.Format(models.DateLayout))
	}

	return nil
}

// ValidateCart checks the cart as a whole: non-empty, internally consistent,
// then every line against storage.
func (v *BookingValidator) ValidateCart(ctx context.Context, userID string, lines []models.CartLine) error {
	if len(lines) == 0 {
		return reject(RejectEmptyCart, "cart is empty")
	}

	// Гость не может держать две пересекающиеся брони, даже в разных номерах
	for i := range lines {
		for j := i + 1; j < len(lines); j++ {
			if Overlaps(lines[i].CheckIn, lines[i].CheckOut, lines[j].CheckIn, lines[j].CheckOut) {
				return reject(RejectCartOverlap, "cart holds overlapping stays for rooms %s and %s",
					lines[i].RoomNum, lines[j].RoomNum)
			}
		}
	}

	for _, line := range lines {
		if err := v.ValidateLine(ctx, userID, line); err != nil {
			return err
		}
	}

	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
