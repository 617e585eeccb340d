package ledger

import (
	"errors"
	"testing"
	"time"

	"frontdesk/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var today = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestNightsAndRoomCharge(t *testing.T) {
	in := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		out    time.Time
		nights int64
		charge string
	}{
		{"three nights", in.AddDate(0, 0, 3), 3, "300"},
		{"partial day floors", in.Add(47 * time.Hour), 1, "100"},
		{"same instant", in, 0, "0"},
		{"inverted", in.AddDate(0, 0, -2), 0, "0"},
		{"missing checkout", time.Time{}, 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.nights, Nights(in, tt.out))
			assert.True(t, d(tt.charge).Equal(ComputeRoomCharge(d("100"), in, tt.out)))
		})
	}
}

func TestPaymentStatusDecisionOrder(t *testing.T) {
	rules := DefaultRules()
	future := today.AddDate(0, 0, 2)
	past := today.AddDate(0, 0, -2)

	tests := []struct {
		name     string
		grand    string
		paid     string
		checkOut time.Time
		want     string
	}{
		{"fully paid", "300", "300", future, models.PaymentPaid},
		{"fully paid after checkout", "300", "300", past, models.PaymentPaid},
		{"paid within tolerance", "300.00", "299.995", future, models.PaymentPaid},
		{"late and unpaid", "300", "0", past, models.PaymentOverdue},
		{"late and partly paid reports partial", "300", "100", past, models.PaymentPartial},
		{"partly paid", "300", "100", future, models.PaymentPartial},
		{"nothing paid", "300", "0", future, models.PaymentPending},
		{"zero total is never paid", "0", "0", future, models.PaymentPending},
		{"checkout earlier today is not late", "300", "0", today.Add(-time.Hour), models.PaymentPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := models.Summary{GrandTotal: d(tt.grand), TotalPaid: d(tt.paid)}
			assert.Equal(t, tt.want, PaymentStatusFor(sum, tt.checkOut, today, rules))
		})
	}
}

func TestSummarize(t *testing.T) {
	booking := &models.Booking{
		ID:         7,
		CheckIn:    today,
		CheckOut:   today.AddDate(0, 0, 3),
		RoomCharge: d("300"),
	}

	sum := Summarize(booking, []decimal.Decimal{d("150")}, []decimal.Decimal{d("20"), d("10")}, today, DefaultRules())

	assert.True(t, d("30").Equal(sum.MealTotal))
	assert.True(t, d("330").Equal(sum.GrandTotal))
	assert.True(t, d("150").Equal(sum.TotalPaid))
	assert.True(t, d("180").Equal(sum.Outstanding))
	assert.True(t, d("45.45").Equal(sum.PaymentPercentage))
	assert.Equal(t, models.PaymentPartial, sum.PaymentStatus)

	t.Run("PercentageCapped", func(t *testing.T) {
		sum := Summarize(booking, []decimal.Decimal{d("300"), d("0.005")}, nil, today, DefaultRules())
		assert.True(t, d("100").Equal(sum.PaymentPercentage))
		assert.True(t, sum.Outstanding.IsZero())
	})

	t.Run("ZeroTotal", func(t *testing.T) {
		empty := &models.Booking{CheckIn: today, CheckOut: today.AddDate(0, 0, 1)}
		sum := Summarize(empty, nil, nil, today, DefaultRules())
		assert.True(t, sum.PaymentPercentage.IsZero())
		assert.Equal(t, models.PaymentPending, sum.PaymentStatus)
	})
}

func TestMealChargeRevertsPaidToPartial(t *testing.T) {
	booking := &models.Booking{CheckIn: today, CheckOut: today.AddDate(0, 0, 3), RoomCharge: d("300")}
	payments := []decimal.Decimal{d("300")}

	before := Summarize(booking, payments, nil, today, DefaultRules())
	require.Equal(t, models.PaymentPaid, before.PaymentStatus)

	after := Summarize(booking, payments, []decimal.Decimal{d("30")}, today, DefaultRules())
	assert.Equal(t, models.PaymentPartial, after.PaymentStatus)
	assert.True(t, d("330").Equal(after.GrandTotal))
}

func TestCanAcceptCharges(t *testing.T) {
	rules := DefaultRules()
	checkedOut := today.Add(-2 * time.Hour)

	assert.True(t, CanAcceptCharges(&models.Booking{Status: models.StatusPending}, today, rules))
	assert.True(t, CanAcceptCharges(&models.Booking{Status: models.StatusCheckedIn}, today, rules))
	assert.True(t, CanAcceptCharges(&models.Booking{Status: models.StatusNoShow}, today, rules))

	closed := &models.Booking{Status: models.StatusCheckedOut, CheckedOutAt: &checkedOut}
	assert.True(t, CanAcceptCharges(closed, today, rules))
	assert.False(t, CanAcceptCharges(closed, checkedOut.Add(24*time.Hour), rules))
	assert.False(t, CanAcceptCharges(closed, checkedOut.Add(25*time.Hour), rules))

	assert.False(t, CanAcceptCharges(&models.Booking{Status: models.StatusCheckedOut}, today, rules))
}

func TestCheckPayment(t *testing.T) {
	rules := DefaultRules()
	sum := models.Summary{GrandTotal: d("300"), TotalPaid: d("200")}

	t.Run("NonPositive", func(t *testing.T) {
		assert.ErrorIs(t, CheckPayment(sum, d("0"), decimal.Zero, rules), ErrInvalidAmount)
		assert.ErrorIs(t, CheckPayment(sum, d("-5"), decimal.Zero, rules), ErrInvalidAmount)
	})

	t.Run("SubCent", func(t *testing.T) {
		assert.ErrorIs(t, CheckPayment(sum, d("0.0001"), decimal.Zero, rules), ErrInvalidAmount)
		assert.ErrorIs(t, CheckPayment(sum, d("50.005"), decimal.Zero, rules), ErrInvalidAmount)
		assert.NoError(t, CheckPayment(sum, d("50.50"), decimal.Zero, rules))
	})

	t.Run("ExactBalance", func(t *testing.T) {
		assert.NoError(t, CheckPayment(sum, d("100"), decimal.Zero, rules))
	})

	t.Run("WithinTolerance", func(t *testing.T) {
		assert.NoError(t, CheckPayment(sum, d("100.01"), decimal.Zero, rules))
	})

	t.Run("Overpayment", func(t *testing.T) {
		err := CheckPayment(sum, d("100.02"), decimal.Zero, rules)
		require.ErrorIs(t, err, ErrOverpayment)

		var over *OverpaymentError
		require.True(t, errors.As(err, &over))
		assert.True(t, d("100").Equal(over.Remaining))
	})

	t.Run("EditExcludesOldAmount", func(t *testing.T) {
		// editing the 200 payment up to 300 fits the 300 total
		assert.NoError(t, CheckPayment(sum, d("300"), d("200"), rules))
		assert.ErrorIs(t, CheckPayment(sum, d("300.50"), d("200"), rules), ErrOverpayment)
	})
}

func TestCheckMealCharge(t *testing.T) {
	total, err := CheckMealCharge(models.MealInput{Item: "Omelette", Quantity: 2, UnitPrice: d("15.00")})
	require.NoError(t, err)
	assert.True(t, d("30").Equal(total))

	_, err = CheckMealCharge(models.MealInput{Quantity: 0, UnitPrice: d("15")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = CheckMealCharge(models.MealInput{Quantity: 1, UnitPrice: d("0")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = CheckMealCharge(models.MealInput{Quantity: 3, UnitPrice: d("0.333")})
	assert.ErrorIs(t, err, ErrInvalidAmount, "unit price below a cent")
}

func TestCheckRate(t *testing.T) {
	assert.NoError(t, CheckRate(d("0")))
	assert.NoError(t, CheckRate(d("1500.50")))
	assert.ErrorIs(t, CheckRate(d("-1")), ErrInvalidAmount)
	assert.ErrorIs(t, CheckRate(d("100.005")), ErrInvalidAmount)
}

func TestValidateStay(t *testing.T) {
	rules := DefaultRules()
	in := today.AddDate(0, 0, 1)

	assert.NoError(t, ValidateStay(in, in.AddDate(0, 0, 3), today, rules))
	assert.ErrorIs(t, ValidateStay(in, in, today, rules), ErrDateRangeInvalid)
	assert.ErrorIs(t, ValidateStay(in, in.AddDate(0, 0, -1), today, rules), ErrDateRangeInvalid)
	assert.ErrorIs(t, ValidateStay(in, in.Add(5*time.Hour), today, rules), ErrDateRangeInvalid)
	assert.ErrorIs(t, ValidateStay(in, in.AddDate(0, 0, 91), today, rules), ErrDateRangeInvalid)
	assert.ErrorIs(t, ValidateStay(today.AddDate(0, 0, 400), today.AddDate(0, 0, 401), today, rules), ErrDateRangeInvalid)

	var rangeErr *DateRangeError
	require.True(t, errors.As(ValidateStay(in, in, today, rules), &rangeErr))
	assert.Contains(t, rangeErr.Reason, "after check-in")
}

func TestValidate(t *testing.T) {
	views := []View{
		{
			Booking:  models.Booking{ID: 1, CheckOut: today.AddDate(0, 0, 1), RoomCharge: d("100"), PaymentStatus: models.PaymentPending},
			Payments: []decimal.Decimal{d("100")},
		},
		{
			Booking: models.Booking{ID: 2, CheckOut: today.AddDate(0, 0, 1), RoomCharge: d("100"), PaymentStatus: models.PaymentPending},
		},
		{
			Booking:  models.Booking{ID: 3, CheckOut: today.AddDate(0, 0, -3), RoomCharge: d("100"), PaymentStatus: models.PaymentOverdue},
			Payments: []decimal.Decimal{d("40")},
		},
	}

	got := Validate(views, today, DefaultRules())
	require.Len(t, got, 2)
	assert.Equal(t, models.PaymentPaid, got[1].Expected)
	assert.Equal(t, models.PaymentPending, got[1].Current)
	assert.Equal(t, models.PaymentPartial, got[3].Expected)
	assert.NotContains(t, got, int64(2))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "overpayment", Reason(&OverpaymentError{}))
	assert.Equal(t, "room_conflict", Reason(&RoomConflictError{}))
	assert.Equal(t, "date_range_invalid", Reason(&DateRangeError{}))
	assert.Equal(t, "duplicate_transaction", Reason(&DuplicateTransactionError{}))
	assert.Equal(t, "booking_closed", Reason(ErrBookingClosed))
	assert.Equal(t, "", Reason(errors.New("boom")))
}
