package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"

	"github.com/shopspring/decimal"
)

func groupedAmounts(ctx context.Context, q querier, query string) (map[int64][]decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]decimal.Decimal)
	for rows.Next() {
		var (
			id     int64
			amount decimal.Decimal
		)
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		out[id] = append(out[id], amount)
	}
	return out, rows.Err()
}

// views loads every booking with its own line items only.
func views(ctx context.Context, q querier) ([]ledger.View, error) {
	bookings, err := listBookings(ctx, q)
	if err != nil {
		return nil, err
	}
	payments, err := groupedAmounts(ctx, q, `SELECT booking_id, amount FROM payments`)
	if err != nil {
		return nil, err
	}
	meals, err := groupedAmounts(ctx, q, `SELECT booking_id, line_total FROM meal_charges`)
	if err != nil {
		return nil, err
	}

	out := make([]ledger.View, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, ledger.View{Booking: b, Payments: payments[b.ID], Meals: meals[b.ID]})
	}
	return out, nil
}

// ValidateAll reports every booking whose stored payment status is stale. It never writes.
func (db *DB) ValidateAll(ctx context.Context) (map[int64]models.StatusMismatch, error) {
	vs, err := views(ctx, db)
	if err != nil {
		return nil, err
	}
	return ledger.Validate(vs, db.now(), db.rules), nil
}

// FixAll rewrites every stale payment status in one transaction. A dry run executes
// the same statements and rolls them back.
func (db *DB) FixAll(ctx context.Context, dryRun bool) (models.FixResult, error) {
	var result models.FixResult
	err := db.inTx(ctx, "fix_all", func(tx *sql.Tx) error {
		result = models.FixResult{DryRun: dryRun}
		at := db.now()
		vs, err := views(ctx, tx)
		if err != nil {
			return err
		}
		result.Mismatches = ledger.Validate(vs, at, db.rules)

		for id, m := range result.Mismatches {
			_, err := tx.ExecContext(ctx, `UPDATE bookings SET payment_status = ?, updated_at = ? WHERE id = ?`,
				m.Expected, ts(at), id)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("booking %d: %v", id, err))
				continue
			}
			result.Updated++
		}

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}
	if err != nil {
		return models.FixResult{}, err
	}

	db.logger.Info().
		Int("mismatches", len(result.Mismatches)).
		Int("updated", result.Updated).
		Int("errors", len(result.Errors)).
		Bool("dry_run", dryRun).
		Msg("payment statuses reconciled")
	return result, nil
}

// FixRoomCharges re-derives every stored room charge from rate × nights and then
// recomputes the payment status of each corrected booking.
func (db *DB) FixRoomCharges(ctx context.Context, dryRun bool) ([]models.ChargeMismatch, error) {
	var fixed []models.ChargeMismatch
	err := db.inTx(ctx, "fix_room_charges", func(tx *sql.Tx) error {
		fixed = nil
		at := db.now()
		bookings, err := listBookings(ctx, tx)
		if err != nil {
			return err
		}
		rooms, err := listRooms(ctx, tx)
		if err != nil {
			return err
		}
		rates := make(map[int64]decimal.Decimal, len(rooms))
		for _, r := range rooms {
			rates[r.ID] = r.Rate
		}

		for i := range bookings {
			b := &bookings[i]
			rate := rates[b.RoomID]
			computed := ledger.ComputeRoomCharge(rate, b.CheckIn, b.CheckOut)
			if computed.Equal(b.RoomCharge) {
				continue
			}
			fixed = append(fixed, models.ChargeMismatch{
				BookingID: b.ID,
				RoomID:    b.RoomID,
				Nights:    ledger.Nights(b.CheckIn, b.CheckOut),
				Rate:      rate,
				Stored:    b.RoomCharge,
				Computed:  computed,
			})
			if err := updateRoomCharge(ctx, tx, b, rate, at); err != nil {
				return err
			}
			if _, err := db.applyStatus(ctx, tx, b, at); err != nil {
				return err
			}
		}

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}
	if err != nil {
		return nil, err
	}

	db.logger.Info().Int("fixed", len(fixed)).Bool("dry_run", dryRun).Msg("room charges reconciled")
	return fixed, nil
}

// SyncRoomAvailability recomputes every room's cached flag: a room is unavailable
// while a Pending or Checked In booking covers the instant at. Running it twice
// changes nothing the second time.
func (db *DB) SyncRoomAvailability(ctx context.Context, at time.Time, dryRun bool) ([]models.RoomDrift, error) {
	var drift []models.RoomDrift
	err := db.inTx(ctx, "sync_rooms", func(tx *sql.Tx) error {
		drift = nil
		rooms, err := listRooms(ctx, tx)
		if err != nil {
			return err
		}
		bookings, err := listBookings(ctx, tx)
		if err != nil {
			return err
		}

		holder := make(map[int64]int64)
		for i := range bookings {
			b := &bookings[i]
			if _, ok := holder[b.RoomID]; !ok && ledger.Covers(b, at) {
				holder[b.RoomID] = b.ID
			}
		}

		for _, r := range rooms {
			bookingID, held := holder[r.ID]
			expected := !held
			if r.IsAvailable == expected {
				continue
			}
			drift = append(drift, models.RoomDrift{
				RoomID:          r.ID,
				RoomNumber:      r.Number,
				Cached:          r.IsAvailable,
				Expected:        expected,
				ActiveBookingID: bookingID,
			})
			if err := setRoomAvailable(ctx, tx, r.ID, expected, ts(at)); err != nil {
				return err
			}
		}

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}
	if err != nil {
		return nil, err
	}

	db.logger.Info().Int("drift", len(drift)).Bool("dry_run", dryRun).Msg("room availability synced")
	return drift, nil
}
