package models

import "time"

// Booking is a persisted reservation of one room for a half-open
// [CheckIn, CheckOut) interval. RoomNum is denormalized for display and
// export. UserID is the opaque identity token of the owner.
type Booking struct {
	ID            int64     `json:"id"`
	RoomID        int64     `json:"room_id"`
	RoomNum       string    `json:"room_num"`
	UserID        string    `json:"user_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	TotalPrice    float64   `json:"total_price"`
	PaymentStatus string    `json:"payment_status"` // Paid, Pending, Not Paid
	Status        string    `json:"status"`         // Pending, Approved, Canceled
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// Active reports whether the booking participates in overlap checks.
func (b *Booking) Active() bool {
	return b.Status != StatusCanceled
}
