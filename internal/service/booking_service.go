package service

import (
	"context"
	"time"

	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/events"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

// BookingService owns the commit path: every booking in the system is born
// through Checkout or CommitPaid, which validate the lines and write them in
// a single transaction.
type BookingService struct {
	store          domain.Store
	validator      *BookingValidator
	eventBus       domain.EventPublisher
	sheetsWorker   domain.SyncWorker
	allowPastEdits bool
	logger         *zerolog.Logger
}

func NewBookingService(store domain.Store, validator *BookingValidator, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, allowPastEdits bool, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:          store,
		validator:      validator,
		eventBus:       eventBus,
		sheetsWorker:   sheetsWorker,
		allowPastEdits: allowPastEdits,
		logger:         logger,
	}
}

// Checkout turns a cart into pending bookings awaiting payment.
func (s *BookingService) Checkout(ctx context.Context, userID string, lines []models.CartLine) ([]*models.Booking, error) {
	return s.commit(ctx, userID, lines, models.PaymentNotPaid, models.StatusPending, "")
}

// CommitPaid records bookings that arrived already paid through the payment
// provider. The ledger row for eventID is finalized in the same transaction,
// so a crash between commit and acknowledgment cannot double-book on retry.
func (s *BookingService) CommitPaid(ctx context.Context, userID string, lines []models.CartLine, eventID string) ([]*models.Booking, error) {
	return s.commit(ctx, userID, lines, models.PaymentPaid, models.StatusApproved, eventID)
}

func (s *BookingService) commit(ctx context.Context, userID string, lines []models.CartLine, paymentStatus, status, eventID string) ([]*models.Booking, error) {
	if err := s.validator.ValidateCart(ctx, userID, lines); err != nil {
		return nil, err
	}

	bookings := make([]*models.Booking, 0, len(lines))
	for _, line := range lines {
		total := line.TotalPrice
		if total == 0 {
			total = line.PricePerNight * float64(line.Nights())
		}
		bookings = append(bookings, &models.Booking{
			RoomID:        line.RoomID,
			RoomNum:       line.RoomNum,
			UserID:        userID,
			CheckIn:       line.CheckIn,
			CheckOut:      line.CheckOut,
			TotalPrice:    total,
			PaymentStatus: paymentStatus,
			Status:        status,
		})
	}

	// Все строки записываются одной транзакцией с повторной проверкой пересечений
	if _, err := s.store.CommitBookings(ctx, bookings, eventID); err != nil {
		switch err {
		case database.ErrNotAvailable:
			return nil, reject(RejectRoomUnavailable, "room was booked by someone else during checkout")
		case database.ErrUserOverlap:
			return nil, reject(RejectUserOverlap, "guest booking overlap detected during checkout")
		}
		return nil, err
	}

	eventType := events.EventBookingCreated
	if paymentStatus == models.PaymentPaid {
		eventType = events.EventBookingPaid
	}
	for _, booking := range bookings {
		s.publishEvent(eventType, booking, "system")
		s.enqueueUpsert(ctx, booking)
	}

	return bookings, nil
}

// UpdatePaymentStatus is the admin path for flipping payment and workflow
// status. Optimistic versioning: fromVersion must match the stored row.
func (s *BookingService) UpdatePaymentStatus(ctx context.Context, id, fromVersion int64, paymentStatus, status, changedBy string) error {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	if !s.allowPastEdits && booking.CheckOut.Before(truncateToDay(time.Now())) {
		return database.ErrRestricted
	}

	if err := s.store.UpdateBookingPayment(ctx, id, fromVersion, paymentStatus, status); err != nil {
		return err
	}

	updated, err := s.store.GetBooking(ctx, id)
	if err == nil {
		if paymentStatus == models.PaymentPaid {
			s.publishEvent(events.EventBookingPaid, updated, changedBy)
		}
		s.enqueueStatus(ctx, updated.ID, updated.Status)
	}

	return nil
}

// CancelBooking soft-cancels: the row stays but no longer blocks the room.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) error {
	if err := s.store.CancelBooking(ctx, id); err != nil {
		return err
	}

	booking, err := s.store.GetBooking(ctx, id)
	if err == nil {
		s.publishEvent(events.EventBookingCanceled, booking, "system")
		s.enqueueStatus(ctx, booking.ID, booking.Status)
	}

	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) GetBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.store.GetBookings(ctx)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	return s.store.GetUserBookings(ctx, userID)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.store.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		RoomID:        booking.RoomID,
		RoomNum:       booking.RoomNum,
		CheckIn:       booking.CheckIn,
		CheckOut:      booking.CheckOut,
		TotalPrice:    booking.TotalPrice,
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		ChangedBy:     changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueUpsert(ctx context.Context, booking *models.Booking) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueUpsert(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sheets enqueue error")
	}
}

func (s *BookingService) enqueueStatus(ctx context.Context, bookingID int64, status string) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueStatus(ctx, bookingID, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("sheets enqueue error")
	}
}
