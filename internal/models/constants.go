package models

// Workflow statuses of a booking. Canceled is terminal and excluded
// from every availability calculation.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusCanceled = "Canceled"
)

// Payment statuses of a booking.
const (
	PaymentPaid    = "Paid"
	PaymentPending = "Pending"
	PaymentNotPaid = "Not Paid"
)

// DateLayout is the wire and storage format for check-in/check-out dates.
const DateLayout = "2006-01-02"

// Outcomes recorded in the payment event ledger.
const (
	OutcomeProcessing  = "processing"
	OutcomeBooked      = "booked"
	OutcomeDiscrepancy = "discrepancy"
)

const (
	// DefaultCartTTL время жизни корзины в Redis
	DefaultCartTTL = 24 * 60 * 60 // 24 часа в секундах

	// MaxRoomImages максимальное количество изображений номера
	MaxRoomImages = 3

	// DefaultMaxAdvanceDays максимальный горизонт бронирования
	DefaultMaxAdvanceDays = 365

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000
)
