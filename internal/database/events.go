package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"staybook/internal/models"
)

// ClaimEvent inserts a ledger row for the provider event id. A second claim
// of the same id returns ErrDuplicateEvent together with the recorded row,
// which is how webhook retries short-circuit.
func (db *DB) ClaimEvent(ctx context.Context, eventID string) (*models.PaymentEvent, error) {
	query := `INSERT INTO payment_events (event_id, outcome, created_at) VALUES (?, ?, ?)`
	_, err := db.ExecContext(ctx, query, eventID, models.OutcomeProcessing, time.Now())
	if err == nil {
		return nil, nil
	}

	if !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return nil, fmt.Errorf("failed to claim payment event: %w", err)
	}

	existing, getErr := db.GetEvent(ctx, eventID)
	if getErr != nil {
		return nil, fmt.Errorf("failed to load duplicate payment event: %w", getErr)
	}
	return existing, ErrDuplicateEvent
}

func (db *DB) GetEvent(ctx context.Context, eventID string) (*models.PaymentEvent, error) {
	var ev models.PaymentEvent
	var bookingIDs sql.NullString
	query := `SELECT id, event_id, outcome, booking_ids, created_at FROM payment_events WHERE event_id = ?`
	err := db.QueryRowContext(ctx, query, eventID).Scan(&ev.ID, &ev.EventID, &ev.Outcome, &bookingIDs, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment event: %w", err)
	}
	ev.BookingIDs = bookingIDs.String
	return &ev, nil
}

// FinalizeEvent records the terminal outcome of a claimed event.
func (db *DB) FinalizeEvent(ctx context.Context, eventID, outcome string, bookingIDs []int64) error {
	query := `UPDATE payment_events SET outcome = ?, booking_ids = ? WHERE event_id = ?`
	result, err := db.ExecContext(ctx, query, outcome, encodeBookingIDs(bookingIDs), eventID)
	if err != nil {
		return fmt.Errorf("failed to finalize payment event: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func finalizeEventTx(ctx context.Context, tx *sql.Tx, eventID, outcome string, bookingIDs []int64) error {
	query := `UPDATE payment_events SET outcome = ?, booking_ids = ? WHERE event_id = ?`
	if _, err := tx.ExecContext(ctx, query, outcome, encodeBookingIDs(bookingIDs), eventID); err != nil {
		return fmt.Errorf("failed to finalize payment event in tx: %w", err)
	}
	return nil
}

// ReleaseEvent removes a claimed but unfinished ledger row so the provider
// retry can reprocess the event after a transient fault.
func (db *DB) ReleaseEvent(ctx context.Context, eventID string) error {
	query := `DELETE FROM payment_events WHERE event_id = ? AND outcome = ?`
	if _, err := db.ExecContext(ctx, query, eventID, models.OutcomeProcessing); err != nil {
		return fmt.Errorf("failed to release payment event: %w", err)
	}
	return nil
}

func encodeBookingIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	raw, _ := json.Marshal(ids)
	return string(raw)
}

// Discrepancies

func (db *DB) CreateDiscrepancy(ctx context.Context, d *models.Discrepancy) error {
	query := `INSERT INTO discrepancies (event_id, user_id, reason, lines, resolved, created_at)
              VALUES (?, ?, ?, ?, 0, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, d.EventID, d.UserID, d.Reason, d.Lines, now)
	if err != nil {
		return fmt.Errorf("failed to create discrepancy: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	d.CreatedAt = now
	return nil
}

func (db *DB) GetOpenDiscrepancies(ctx context.Context) ([]*models.Discrepancy, error) {
	query := `SELECT id, event_id, user_id, reason, lines, resolved, created_at
              FROM discrepancies WHERE resolved = 0 ORDER BY created_at`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get discrepancies: %w", err)
	}
	defer rows.Close()

	var out []*models.Discrepancy
	for rows.Next() {
		d := &models.Discrepancy{}
		var userID, lines sql.NullString
		if err := rows.Scan(&d.ID, &d.EventID, &userID, &d.Reason, &lines, &d.Resolved, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan discrepancy: %w", err)
		}
		d.UserID = userID.String
		d.Lines = lines.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (db *DB) ResolveDiscrepancy(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `UPDATE discrepancies SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve discrepancy: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
