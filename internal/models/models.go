package models

import "time"

// RoomType groups rooms sharing a nightly price and capacity.
type RoomType struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Capacity  int64     `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room is a bookable unit. Availability is always derived from bookings,
// never stored on the room itself.
type Room struct {
	ID          int64     `json:"id"`
	RoomTypeID  int64     `json:"room_type_id"`
	RoomNum     string    `json:"room_num"`
	Description string    `json:"description"`
	Images      []string  `json:"images,omitempty"`
	TypeName    string    `json:"type_name,omitempty"`
	Price       float64   `json:"price,omitempty"`
	Capacity    int64     `json:"capacity,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserProfile is the optional display extension of an identity. Email is
// also used to resolve the payer when webhook metadata carries no user id.
type UserProfile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentEvent is one processed provider webhook event; the unique event id
// makes webhook retries idempotent.
type PaymentEvent struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"event_id"`
	Outcome    string    `json:"outcome"`
	BookingIDs string    `json:"booking_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Discrepancy records a payment that arrived without a bookable state:
// funds captured, booking not created. Never silently dropped.
type Discrepancy struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Lines     string    `json:"lines"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// SyncTask is a persisted unit of back-office sheet synchronization.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	BookingID   int64      `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   string     `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}
