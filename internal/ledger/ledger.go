// Package ledger holds the booking financial rules. Everything here is pure:
// callers load the aggregates, pass them in, and persist what comes back.
package ledger

import (
	"fmt"
	"time"

	"frontdesk/internal/models"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

// Tolerance absorbs rounding when payment totals are compared.
var Tolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Rules are the configurable limits applied by the ledger.
type Rules struct {
	GracePeriod    time.Duration
	Tolerance      decimal.Decimal
	MinNights      int64
	MaxNights      int64
	MaxAdvanceDays int
}

// DefaultRules returns the limits used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		GracePeriod:    models.DefaultGracePeriod * time.Second,
		Tolerance:      Tolerance,
		MinNights:      models.DefaultMinNights,
		MaxNights:      models.DefaultMaxNights,
		MaxAdvanceDays: models.DefaultMaxAdvanceDays,
	}
}

func (r Rules) tolerance() decimal.Decimal {
	if r.Tolerance.IsPositive() {
		return r.Tolerance
	}
	return Tolerance
}

// Nights is the whole-day length of [checkIn, checkOut), never negative.
func Nights(checkIn, checkOut time.Time) int64 {
	if checkIn.IsZero() || checkOut.IsZero() || !checkOut.After(checkIn) {
		return 0
	}
	return int64(checkOut.Sub(checkIn) / (24 * time.Hour))
}

// ComputeRoomCharge returns rate × nights, or zero for an empty or inverted stay.
func ComputeRoomCharge(rate decimal.Decimal, checkIn, checkOut time.Time) decimal.Decimal {
	nights := Nights(checkIn, checkOut)
	if nights <= 0 || rate.IsNegative() {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromInt(nights))
}

// Summarize derives the booking totals from its line items.
func Summarize(booking *models.Booking, payments []decimal.Decimal, meals []decimal.Decimal, at time.Time, rules Rules) models.Summary {
	sum := models.Summary{
		BookingID:  booking.ID,
		RoomCharge: booking.RoomCharge,
		MealTotal:  decimal.Sum(decimal.Zero, meals...),
		TotalPaid:  decimal.Sum(decimal.Zero, payments...),
	}
	sum.GrandTotal = sum.RoomCharge.Add(sum.MealTotal)
	sum.Outstanding = decimal.Max(sum.GrandTotal.Sub(sum.TotalPaid), decimal.Zero)
	if sum.GrandTotal.IsPositive() {
		pct := sum.TotalPaid.Div(sum.GrandTotal).Mul(hundred)
		sum.PaymentPercentage = decimal.Min(pct, hundred).Round(2)
	}
	sum.PaymentStatus = PaymentStatusFor(sum, booking.CheckOut, at, rules)
	return sum
}

// PaymentStatusFor applies the status decision order; the first match wins.
// A late booking that is partly paid reports partial so staff see money is owed.
func PaymentStatusFor(sum models.Summary, checkOut, at time.Time, rules Rules) string {
	paid := sum.TotalPaid
	if sum.GrandTotal.IsPositive() && paid.Add(rules.tolerance()).GreaterThanOrEqual(sum.GrandTotal) {
		return models.PaymentPaid
	}
	late := !checkOut.IsZero() && checkoutDayBefore(checkOut, at)
	switch {
	case late && paid.IsZero():
		return models.PaymentOverdue
	case late && paid.IsPositive():
		return models.PaymentPartial
	case paid.IsPositive():
		return models.PaymentPartial
	default:
		return models.PaymentPending
	}
}

func checkoutDayBefore(checkOut, at time.Time) bool {
	day := now.With(checkOut.In(at.Location())).BeginningOfDay()
	return day.Before(now.With(at).BeginningOfDay())
}

// CanAcceptCharges reports whether payments and meal charges may still be added.
func CanAcceptCharges(booking *models.Booking, at time.Time, rules Rules) bool {
	if booking.Status != models.StatusCheckedOut {
		return true
	}
	if booking.CheckedOutAt == nil {
		return false
	}
	return at.Before(booking.CheckedOutAt.Add(rules.GracePeriod))
}

// CheckAmount rejects money values that are not positive whole cents.
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// CheckRate accepts a zero or positive nightly rate in whole cents.
func CheckRate(rate decimal.Decimal) error {
	if rate.IsNegative() || !rate.Equal(rate.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// CheckPayment validates amount against the current totals. excluded is the old amount
// of a payment being edited, zero for a new payment.
func CheckPayment(sum models.Summary, amount, excluded decimal.Decimal, rules Rules) error {
	if err := CheckAmount(amount); err != nil {
		return err
	}
	paid := sum.TotalPaid.Sub(excluded)
	remaining := decimal.Max(sum.GrandTotal.Sub(paid), decimal.Zero)
	if amount.GreaterThan(remaining.Add(rules.tolerance())) {
		return &OverpaymentError{Amount: amount, Remaining: remaining}
	}
	return nil
}

// CheckMealCharge validates a meal line and returns its total.
func CheckMealCharge(in models.MealInput) (decimal.Decimal, error) {
	if in.Quantity <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckAmount(in.UnitPrice); err != nil {
		return decimal.Zero, err
	}
	return in.UnitPrice.Mul(decimal.NewFromInt(in.Quantity)), nil
}

// ValidateStay checks the date range of a new or edited booking.
func ValidateStay(checkIn, checkOut, at time.Time, rules Rules) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return &DateRangeError{Reason: "check-in and check-out are required"}
	}
	if !checkOut.After(checkIn) {
		return &DateRangeError{Reason: "check-out must be after check-in"}
	}
	nights := Nights(checkIn, checkOut)
	if rules.MinNights > 0 && nights < rules.MinNights {
		return &DateRangeError{Reason: fmt.Sprintf("minimum stay is %d night(s)", rules.MinNights)}
	}
	if rules.MaxNights > 0 && nights > rules.MaxNights {
		return &DateRangeError{Reason: fmt.Sprintf("maximum stay is %d nights", rules.MaxNights)}
	}
	if rules.MaxAdvanceDays > 0 && checkIn.After(at.AddDate(0, 0, rules.MaxAdvanceDays)) {
		return &DateRangeError{Reason: fmt.Sprintf("bookings cannot be made more than %d days in advance", rules.MaxAdvanceDays)}
	}
	return nil
}

// Covers reports whether the booking holds its room at the given instant.
func Covers(booking *models.Booking, at time.Time) bool {
	if booking.Status != models.StatusPending && booking.Status != models.StatusCheckedIn {
		return false
	}
	return !at.Before(booking.CheckIn) && at.Before(booking.CheckOut)
}
