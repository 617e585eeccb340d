package ledger

import (
	"time"

	"frontdesk/internal/models"

	"github.com/shopspring/decimal"
)

// View is a booking with its own line-item amounts, enough to recompute its status.
type View struct {
	Booking  models.Booking
	Payments []decimal.Decimal
	Meals    []decimal.Decimal
}

// Validate returns every booking whose stored payment status differs from the
// recomputed one. It never writes.
func Validate(views []View, at time.Time, rules Rules) map[int64]models.StatusMismatch {
	mismatches := make(map[int64]models.StatusMismatch)
	for i := range views {
		v := &views[i]
		sum := Summarize(&v.Booking, v.Payments, v.Meals, at, rules)
		if sum.PaymentStatus == v.Booking.PaymentStatus {
			continue
		}
		mismatches[v.Booking.ID] = models.StatusMismatch{
			BookingID: v.Booking.ID,
			Current:   v.Booking.PaymentStatus,
			Expected:  sum.PaymentStatus,
			Summary:   sum,
		}
	}
	return mismatches
}
