package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"

	"github.com/shopspring/decimal"
)

func lineAmounts(ctx context.Context, q querier, query string, bookingID int64) ([]decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var d decimal.Decimal
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		amounts = append(amounts, d)
	}
	return amounts, rows.Err()
}

func (db *DB) summarize(ctx context.Context, q querier, b *models.Booking, at time.Time) (models.Summary, error) {
	payments, err := lineAmounts(ctx, q, `SELECT amount FROM payments WHERE booking_id = ?`, b.ID)
	if err != nil {
		return models.Summary{}, err
	}
	meals, err := lineAmounts(ctx, q, `SELECT line_total FROM meal_charges WHERE booking_id = ?`, b.ID)
	if err != nil {
		return models.Summary{}, err
	}
	return ledger.Summarize(b, payments, meals, at, db.rules), nil
}

// applyStatus recomputes the booking's payment status and writes it when it changed.
func (db *DB) applyStatus(ctx context.Context, q querier, b *models.Booking, at time.Time) (models.Summary, error) {
	sum, err := db.summarize(ctx, q, b, at)
	if err != nil {
		return sum, err
	}
	if sum.PaymentStatus == b.PaymentStatus {
		return sum, nil
	}
	if _, err := q.ExecContext(ctx, `UPDATE bookings SET payment_status = ?, updated_at = ? WHERE id = ?`,
		sum.PaymentStatus, ts(at), b.ID); err != nil {
		return sum, fmt.Errorf("failed to update payment status: %w", err)
	}
	b.PaymentStatus = sum.PaymentStatus
	return sum, nil
}

// Summary computes the financial view of a booking from its current rows.
func (db *DB) Summary(ctx context.Context, bookingID int64) (models.Summary, error) {
	b, err := getBooking(ctx, db, bookingID)
	if err != nil {
		return models.Summary{}, err
	}
	return db.summarize(ctx, db, b, db.now())
}

// RecomputePaymentStatus derives the booking's payment status. With apply=false it
// only reports what the status would be; changed tells whether it differs from the
// stored one.
func (db *DB) RecomputePaymentStatus(ctx context.Context, bookingID int64, apply bool) (string, bool, error) {
	if !apply {
		b, err := getBooking(ctx, db, bookingID)
		if err != nil {
			return "", false, err
		}
		sum, err := db.summarize(ctx, db, b, db.now())
		if err != nil {
			return "", false, err
		}
		return sum.PaymentStatus, sum.PaymentStatus != b.PaymentStatus, nil
	}

	var (
		status  string
		changed bool
	)
	err := db.inTx(ctx, "recompute_status", func(tx *sql.Tx) error {
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		old := b.PaymentStatus
		sum, err := db.applyStatus(ctx, tx, b, db.now())
		if err != nil {
			return err
		}
		status, changed = sum.PaymentStatus, sum.PaymentStatus != old
		return nil
	})
	return status, changed, err
}

// RecalculateTotals re-derives the room charge from the room's current rate and the
// stay dates, then persists the payment status, in one transaction.
func (db *DB) RecalculateTotals(ctx context.Context, bookingID int64) (models.Summary, error) {
	var sum models.Summary
	err := db.inTx(ctx, "recalculate_totals", func(tx *sql.Tx) error {
		at := db.now()
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		room, err := getRoom(ctx, tx, b.RoomID)
		if err != nil {
			return err
		}
		if err := updateRoomCharge(ctx, tx, b, room.Rate, at); err != nil {
			return err
		}
		sum, err = db.applyStatus(ctx, tx, b, at)
		return err
	})
	return sum, err
}

func updateRoomCharge(ctx context.Context, q querier, b *models.Booking, rate decimal.Decimal, at time.Time) error {
	charge := ledger.ComputeRoomCharge(rate, b.CheckIn, b.CheckOut)
	if charge.Equal(b.RoomCharge) {
		return nil
	}
	if _, err := q.ExecContext(ctx, `UPDATE bookings SET room_charge = ?, updated_at = ? WHERE id = ?`,
		charge.String(), ts(at), b.ID); err != nil {
		return fmt.Errorf("failed to update room charge: %w", err)
	}
	b.RoomCharge = charge
	return nil
}
