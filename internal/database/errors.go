package database

import "errors"

var (
	// ErrNotAvailable is returned when the room is already booked for an
	// overlapping date range.
	ErrNotAvailable = errors.New("room is not available for the selected dates")

	// ErrUserOverlap is returned when the user already holds a
	// non-canceled booking overlapping the requested range.
	ErrUserOverlap = errors.New("user already has an overlapping booking")

	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrRestricted is returned when a delete would orphan referencing rows.
	ErrRestricted = errors.New("record is referenced and cannot be deleted")

	// ErrDuplicateEvent is returned when a payment event id was already
	// recorded in the ledger.
	ErrDuplicateEvent = errors.New("payment event already processed")

	// ErrConcurrentModification is returned when a versioned update lost
	// the race to another writer.
	ErrConcurrentModification = errors.New("booking was modified concurrently")
)
