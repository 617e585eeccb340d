package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"
)

const bookingColumns = `id, room_id, guest_id, check_in, check_out, status, is_checked_in,
        checked_out_at, room_charge, payment_status, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *models.Booking) error {
	var checkedOut sql.NullTime
	err := row.Scan(&b.ID, &b.RoomID, &b.GuestID, &b.CheckIn, &b.CheckOut, &b.Status, &b.IsCheckedIn,
		&checkedOut, &b.RoomCharge, &b.PaymentStatus, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return err
	}
	b.CheckedOutAt = nil
	if checkedOut.Valid {
		t := checkedOut.Time
		b.CheckedOutAt = &t
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, db, id)
}

func getBooking(ctx context.Context, q querier, id int64) (*models.Booking, error) {
	var b models.Booking
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	if err := scanBooking(row, &b); err != nil {
		return nil, notFound(err, "booking", id)
	}
	return &b, nil
}

func (db *DB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return listBookings(ctx, db)
}

func listBookings(ctx context.Context, q querier) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY check_in, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// FindRoomConflict returns the first booking of the room that overlaps [checkIn, checkOut)
// and still holds it, or nil. excludeBookingID lets an edited booking skip itself.
func (db *DB) FindRoomConflict(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (*models.Booking, error) {
	return findRoomConflict(ctx, db, roomID, checkIn, checkOut, excludeBookingID)
}

func findRoomConflict(ctx context.Context, q querier, roomID int64, checkIn, checkOut time.Time, excludeID int64) (*models.Booking, error) {
	var b models.Booking
	row := q.QueryRowContext(ctx, `
        SELECT `+bookingColumns+` FROM bookings
        WHERE room_id = ? AND check_in < ? AND check_out > ? AND status != ? AND id != ?
        ORDER BY check_in, id LIMIT 1`,
		roomID, ts(checkOut), ts(checkIn), models.StatusCheckedOut, excludeID)
	err := scanBooking(row, &b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check room conflict: %w", err)
	}
	return &b, nil
}

// CreateBooking validates the stay and inserts the booking with its room charge.
// The conflict check runs inside the write transaction. New bookings start
// Pending or Checked In; the other statuses are reached through transitions.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}
	if !models.IsBookingStatus(booking.Status) {
		return fmt.Errorf("unknown booking status %q: %w", booking.Status, ErrInvalidTransition)
	}
	if booking.Status != models.StatusPending && booking.Status != models.StatusCheckedIn {
		return fmt.Errorf("cannot create booking with status %q: %w", booking.Status, ErrInvalidTransition)
	}
	booking.CheckedOutAt = nil

	return db.inTx(ctx, "create_booking", func(tx *sql.Tx) error {
		at := db.now()
		if err := ledger.ValidateStay(booking.CheckIn, booking.CheckOut, at, db.rules); err != nil {
			return err
		}

		room, err := getRoom(ctx, tx, booking.RoomID)
		if err != nil {
			return err
		}
		if _, err := getGuestID(ctx, tx, booking.GuestID); err != nil {
			return err
		}

		conflict, err := findRoomConflict(ctx, tx, booking.RoomID, booking.CheckIn, booking.CheckOut, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ledger.RoomConflictError{Booking: *conflict}
		}

		booking.RoomCharge = ledger.ComputeRoomCharge(room.Rate, booking.CheckIn, booking.CheckOut)
		booking.IsCheckedIn = booking.Status == models.StatusCheckedIn
		booking.PaymentStatus = ledger.Summarize(booking, nil, nil, at, db.rules).PaymentStatus

		res, err := tx.ExecContext(ctx, `
            INSERT INTO bookings (room_id, guest_id, check_in, check_out, status, is_checked_in,
                checked_out_at, room_charge, payment_status, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			booking.RoomID, booking.GuestID, ts(booking.CheckIn), ts(booking.CheckOut),
			booking.Status, booking.IsCheckedIn, nullTS(booking.CheckedOutAt),
			booking.RoomCharge.String(), booking.PaymentStatus, ts(at), ts(at))
		if err != nil {
			return fmt.Errorf("failed to insert booking in tx: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id in tx: %w", err)
		}
		booking.ID = id
		booking.CreatedAt = stamp(at)
		booking.UpdatedAt = booking.CreatedAt

		if booking.Status == models.StatusPending || booking.Status == models.StatusCheckedIn {
			if err := setRoomAvailable(ctx, tx, booking.RoomID, false, ts(at)); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStay moves a booking to another room or dates with the same checks as
// CreateBooking, then recomputes its totals.
func (db *DB) UpdateStay(ctx context.Context, bookingID, roomID int64, checkIn, checkOut time.Time) (*models.Booking, error) {
	var updated *models.Booking
	err := db.inTx(ctx, "update_stay", func(tx *sql.Tx) error {
		at := db.now()
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == models.StatusCheckedOut {
			return fmt.Errorf("booking %d is checked out: %w", bookingID, ErrInvalidTransition)
		}
		if err := ledger.ValidateStay(checkIn, checkOut, at, db.rules); err != nil {
			return err
		}

		room, err := getRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		conflict, err := findRoomConflict(ctx, tx, roomID, checkIn, checkOut, bookingID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ledger.RoomConflictError{Booking: *conflict}
		}

		oldRoomID := b.RoomID
		b.RoomID = roomID
		b.CheckIn = checkIn
		b.CheckOut = checkOut
		b.RoomCharge = ledger.ComputeRoomCharge(room.Rate, checkIn, checkOut)
		_, err = tx.ExecContext(ctx, `
            UPDATE bookings SET room_id = ?, check_in = ?, check_out = ?, room_charge = ?, updated_at = ?
            WHERE id = ?`,
			roomID, ts(checkIn), ts(checkOut), b.RoomCharge.String(), ts(at), bookingID)
		if err != nil {
			return fmt.Errorf("failed to update booking stay: %w", err)
		}

		if _, err := db.applyStatus(ctx, tx, b, at); err != nil {
			return err
		}
		if b.Status == models.StatusPending || b.Status == models.StatusCheckedIn {
			if err := setRoomAvailable(ctx, tx, roomID, false, ts(at)); err != nil {
				return err
			}
		}
		if oldRoomID != roomID {
			if err := releaseRoom(ctx, tx, oldRoomID, at); err != nil {
				return err
			}
		}
		b.UpdatedAt = stamp(at)
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (db *DB) CheckIn(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return db.transition(ctx, "check_in", bookingID, func(ctx context.Context, tx *sql.Tx, b *models.Booking, at time.Time) error {
		if b.Status != models.StatusPending && b.Status != models.StatusNoShow {
			return fmt.Errorf("cannot check in booking %d with status %q: %w", b.ID, b.Status, ErrInvalidTransition)
		}
		b.Status = models.StatusCheckedIn
		b.IsCheckedIn = true
		return setRoomAvailable(ctx, tx, b.RoomID, false, ts(at))
	})
}

// CheckOut closes the booking; the grace window for late charges starts now.
func (db *DB) CheckOut(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return db.transition(ctx, "check_out", bookingID, func(ctx context.Context, tx *sql.Tx, b *models.Booking, at time.Time) error {
		if b.Status != models.StatusCheckedIn {
			return fmt.Errorf("cannot check out booking %d with status %q: %w", b.ID, b.Status, ErrInvalidTransition)
		}
		out := stamp(at)
		b.Status = models.StatusCheckedOut
		b.IsCheckedIn = false
		b.CheckedOutAt = &out
		return setRoomAvailable(ctx, tx, b.RoomID, true, ts(at))
	})
}

// MarkNoShow keeps the room reserved; the booking still counts for conflicts.
func (db *DB) MarkNoShow(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return db.transition(ctx, "mark_no_show", bookingID, func(_ context.Context, _ *sql.Tx, b *models.Booking, _ time.Time) error {
		if b.Status != models.StatusPending {
			return fmt.Errorf("cannot mark booking %d with status %q as no show: %w", b.ID, b.Status, ErrInvalidTransition)
		}
		b.Status = models.StatusNoShow
		return nil
	})
}

type transitionFunc func(ctx context.Context, tx *sql.Tx, b *models.Booking, at time.Time) error

func (db *DB) transition(ctx context.Context, op string, bookingID int64, fn transitionFunc) (*models.Booking, error) {
	var updated *models.Booking
	err := db.inTx(ctx, op, func(tx *sql.Tx) error {
		at := db.now()
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, b, at); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE bookings SET status = ?, is_checked_in = ?, checked_out_at = ?, updated_at = ?
            WHERE id = ?`,
			b.Status, b.IsCheckedIn, nullTS(b.CheckedOutAt), ts(at), b.ID)
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		if _, err := db.applyStatus(ctx, tx, b, at); err != nil {
			return err
		}
		b.UpdatedAt = stamp(at)
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBooking removes the booking; payments and meal charges go with it.
// The room is released when no other booking holds it now.
func (db *DB) DeleteBooking(ctx context.Context, bookingID int64) error {
	return db.inTx(ctx, "delete_booking", func(tx *sql.Tx) error {
		var roomID int64
		if err := tx.QueryRowContext(ctx, `SELECT room_id FROM bookings WHERE id = ?`, bookingID).Scan(&roomID); err != nil {
			return notFound(err, "booking", bookingID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, bookingID); err != nil {
			return fmt.Errorf("failed to delete booking: %w", err)
		}
		return releaseRoom(ctx, tx, roomID, db.now())
	})
}

func getGuestID(ctx context.Context, q querier, id int64) (int64, error) {
	var got int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM guests WHERE id = ?`, id).Scan(&got); err != nil {
		return 0, notFound(err, "guest", id)
	}
	return got, nil
}
