package domain

import (
	"context"
	"time"

	"staybook/internal/models"
)

// Store is the persistence contract the services consume. *database.DB is
// the production implementation.
type Store interface {
	CreateRoomType(ctx context.Context, rt *models.RoomType) error
	GetRoomType(ctx context.Context, id int64) (*models.RoomType, error)
	GetRoomTypes(ctx context.Context) ([]*models.RoomType, error)
	UpdateRoomType(ctx context.Context, rt *models.RoomType) error
	DeleteRoomType(ctx context.Context, id int64) error

	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetRooms(ctx context.Context) ([]*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, id int64) error

	CountRoomOverlaps(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (int, error)
	CountUserOverlaps(ctx context.Context, userID string, checkIn, checkOut time.Time, excludeID int64) (int, error)
	CommitBookings(ctx context.Context, bookings []*models.Booking, eventID string) ([]int64, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookings(ctx context.Context) ([]*models.Booking, error)
	GetRoomBookings(ctx context.Context, roomID int64) ([]*models.Booking, error)
	GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	UpdateBookingPayment(ctx context.Context, id, fromVersion int64, paymentStatus, status string) error
	CancelBooking(ctx context.Context, id int64) error

	UpsertProfile(ctx context.Context, p *models.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error)

	ClaimEvent(ctx context.Context, eventID string) (*models.PaymentEvent, error)
	FinalizeEvent(ctx context.Context, eventID, outcome string, bookingIDs []int64) error
	ReleaseEvent(ctx context.Context, eventID string) error
	CreateDiscrepancy(ctx context.Context, d *models.Discrepancy) error
	GetOpenDiscrepancies(ctx context.Context) ([]*models.Discrepancy, error)
	ResolveDiscrepancy(ctx context.Context, id int64) error
}

// CartRepository stores carts by an explicit key; no ambient session state.
type CartRepository interface {
	GetCart(ctx context.Context, key string) (*models.Cart, error)
	SetCart(ctx context.Context, key string, cart *models.Cart) error
	ClearCart(ctx context.Context, key string) error
}

// Notifier delivers operator alerts (reconciliation discrepancies).
type Notifier interface {
	Alert(ctx context.Context, text string) error
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker schedules back-office sheet synchronization.
type SyncWorker interface {
	EnqueueUpsert(ctx context.Context, booking *models.Booking) error
	EnqueueStatus(ctx context.Context, bookingID int64, status string) error
}

// SheetsWriter applies booking rows to the back-office spreadsheet.
type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
	ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error
}
