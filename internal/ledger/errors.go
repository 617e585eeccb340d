package ledger

import (
	"errors"
	"fmt"

	"frontdesk/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrOverpayment          = errors.New("payment exceeds outstanding balance")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")
	ErrBookingClosed        = errors.New("booking is closed for new charges")
	ErrDateRangeInvalid     = errors.New("invalid stay date range")
	ErrRoomConflict         = errors.New("room already booked for the selected dates")
)

// OverpaymentError reports the balance that was actually left to pay.
type OverpaymentError struct {
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds outstanding balance %s", e.Amount.StringFixed(2), e.Remaining.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// DateRangeError names the stay rule that was violated.
type DateRangeError struct {
	Reason string
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid stay date range: %s", e.Reason)
}

func (e *DateRangeError) Unwrap() error { return ErrDateRangeInvalid }

// RoomConflictError carries the booking already holding the room.
type RoomConflictError struct {
	Booking models.Booking
}

func (e *RoomConflictError) Error() string {
	return fmt.Sprintf("room %d is booked from %s to %s (booking %d)",
		e.Booking.RoomID,
		e.Booking.CheckIn.Format("2006-01-02"),
		e.Booking.CheckOut.Format("2006-01-02"),
		e.Booking.ID)
}

func (e *RoomConflictError) Unwrap() error { return ErrRoomConflict }

// DuplicateTransactionError carries the colliding transaction id.
type DuplicateTransactionError struct {
	TransactionID string
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("transaction id %q already recorded", e.TransactionID)
}

func (e *DuplicateTransactionError) Unwrap() error { return ErrDuplicateTransaction }

// Reason returns a short machine label for a ledger rejection, or "" for other errors.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrOverpayment):
		return "overpayment"
	case errors.Is(err, ErrDuplicateTransaction):
		return "duplicate_transaction"
	case errors.Is(err, ErrBookingClosed):
		return "booking_closed"
	case errors.Is(err, ErrDateRangeInvalid):
		return "date_range_invalid"
	case errors.Is(err, ErrRoomConflict):
		return "room_conflict"
	default:
		return ""
	}
}
