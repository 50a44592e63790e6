package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"staybook/internal/models"
)

// CountRoomOverlaps returns the number of non-canceled bookings for the room
// whose half-open [check_in, check_out) interval overlaps the given range.
func (db *DB) CountRoomOverlaps(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE room_id = ? AND status != ? AND check_in < ? AND check_out > ?`
	var count int
	err := db.QueryRowContext(ctx, query, roomID, models.StatusCanceled,
		checkOut.Format(models.DateLayout), checkIn.Format(models.DateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count room overlaps: %w", err)
	}
	return count, nil
}

// CountUserOverlaps is CountRoomOverlaps scoped to a user instead of a room.
// excludeID skips one booking, for edits against the booking's own interval.
func (db *DB) CountUserOverlaps(ctx context.Context, userID string, checkIn, checkOut time.Time, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE user_id = ? AND status != ? AND id != ? AND check_in < ? AND check_out > ?`
	var count int
	err := db.QueryRowContext(ctx, query, userID, models.StatusCanceled, excludeID,
		checkOut.Format(models.DateLayout), checkIn.Format(models.DateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user overlaps: %w", err)
	}
	return count, nil
}

// CommitBookings inserts all bookings in one transaction, or none of them.
// Availability and user-overlap are re-checked inside the transaction to
// close the gap between pre-validation and insert. When eventID is not
// empty the payment_events ledger row is finalized in the same transaction,
// so a webhook replay after a crash cannot produce a second booking.
func (db *DB) CommitBookings(ctx context.Context, bookings []*models.Booking, eventID string) ([]int64, error) {
	if len(bookings) == 0 {
		return nil, fmt.Errorf("no bookings to commit")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	queryRoom := `SELECT COUNT(*) FROM bookings
                  WHERE room_id = ? AND status != ? AND check_in < ? AND check_out > ?`
	queryUser := `SELECT COUNT(*) FROM bookings
                  WHERE user_id = ? AND status != ? AND check_in < ? AND check_out > ?`
	queryInsert := `INSERT INTO bookings (
                room_id, room_num, user_id, check_in, check_out,
                total_price, payment_status, status, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	ids := make([]int64, 0, len(bookings))

	for _, b := range bookings {
		checkIn := b.CheckIn.Format(models.DateLayout)
		checkOut := b.CheckOut.Format(models.DateLayout)

		var count int
		if err := tx.QueryRowContext(ctx, queryRoom, b.RoomID, models.StatusCanceled, checkOut, checkIn).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to check availability in tx: %w", err)
		}
		if count > 0 {
			return nil, ErrNotAvailable
		}

		if err := tx.QueryRowContext(ctx, queryUser, b.UserID, models.StatusCanceled, checkOut, checkIn).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to check user overlap in tx: %w", err)
		}
		if count > 0 {
			return nil, ErrUserOverlap
		}

		result, err := tx.ExecContext(ctx, queryInsert,
			b.RoomID, b.RoomNum, b.UserID, checkIn, checkOut,
			b.TotalPrice, b.PaymentStatus, b.Status, now, now, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to insert booking in tx: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get last insert id in tx: %w", err)
		}
		b.ID = id
		b.CreatedAt = now
		b.UpdatedAt = now
		b.Version = 1
		ids = append(ids, id)
	}

	if eventID != "" {
		if err := finalizeEventTx(ctx, tx, eventID, models.OutcomeBooked, ids); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bookings: %w", err)
	}
	return ids, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT id, room_id, room_num, user_id, check_in, check_out,
                     total_price, payment_status, status, created_at, updated_at, version
              FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT id, room_id, room_num, user_id, check_in, check_out,
                     total_price, payment_status, status, created_at, updated_at, version
              FROM bookings ORDER BY check_in, created_at`
	return db.queryBookings(ctx, query)
}

func (db *DB) GetRoomBookings(ctx context.Context, roomID int64) ([]*models.Booking, error) {
	query := `SELECT id, room_id, room_num, user_id, check_in, check_out,
                     total_price, payment_status, status, created_at, updated_at, version
              FROM bookings WHERE room_id = ? ORDER BY check_in`
	return db.queryBookings(ctx, query, roomID)
}

func (db *DB) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	query := `SELECT id, room_id, room_num, user_id, check_in, check_out,
                     total_price, payment_status, status, created_at, updated_at, version
              FROM bookings WHERE user_id = ? ORDER BY check_in DESC`
	return db.queryBookings(ctx, query, userID)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT id, room_id, room_num, user_id, check_in, check_out,
                     total_price, payment_status, status, created_at, updated_at, version
              FROM bookings WHERE check_in < ? AND check_out > ? ORDER BY check_in`
	return db.queryBookings(ctx, query, end.Format(models.DateLayout), start.Format(models.DateLayout))
}

// UpdateBookingPayment updates payment and workflow status with optimistic
// version control.
func (db *DB) UpdateBookingPayment(ctx context.Context, id, fromVersion int64, paymentStatus, status string) error {
	query := `UPDATE bookings SET payment_status = ?, status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, paymentStatus, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking payment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// CancelBooking soft-cancels: status becomes Canceled and the booking drops
// out of every overlap check. Bookings are never hard-deleted.
func (db *DB) CancelBooking(ctx context.Context, id int64) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, models.StatusCanceled, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var checkIn, checkOut string
	err := row.Scan(
		&b.ID, &b.RoomID, &b.RoomNum, &b.UserID, &checkIn, &checkOut,
		&b.TotalPrice, &b.PaymentStatus, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	if b.CheckIn, err = time.Parse(models.DateLayout, checkIn); err != nil {
		return nil, fmt.Errorf("failed to parse check_in %s: %w", checkIn, err)
	}
	if b.CheckOut, err = time.Parse(models.DateLayout, checkOut); err != nil {
		return nil, fmt.Errorf("failed to parse check_out %s: %w", checkOut, err)
	}
	return b, nil
}
