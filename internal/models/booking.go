package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID            int64           `json:"id"`
	RoomID        int64           `json:"room_id"`
	GuestID       int64           `json:"guest_id"`
	CheckIn       time.Time       `json:"check_in"`
	CheckOut      time.Time       `json:"check_out"`
	Status        string          `json:"status"` // Pending, Checked In, Checked Out, No Show
	IsCheckedIn   bool            `json:"is_checked_in"`
	CheckedOutAt  *time.Time      `json:"checked_out_at"`
	RoomCharge    decimal.Decimal `json:"room_charge"`
	PaymentStatus string          `json:"payment_status"` // pending, partial, paid, overdue
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Payment struct {
	ID            int64           `json:"id"`
	BookingID     int64           `json:"booking_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id"`
	PaidAt        time.Time       `json:"paid_at"`
}

type MealCharge struct {
	ID        int64           `json:"id"`
	BookingID int64           `json:"booking_id"`
	Item      string          `json:"item"`
	Category  string          `json:"category"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	ChargedAt time.Time       `json:"charged_at"`
}

// Summary is the derived financial view of a booking. It is never stored.
type Summary struct {
	BookingID         int64           `json:"booking_id"`
	RoomCharge        decimal.Decimal `json:"room_charge"`
	MealTotal         decimal.Decimal `json:"meal_total"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	Outstanding       decimal.Decimal `json:"outstanding_balance"`
	PaymentPercentage decimal.Decimal `json:"payment_percentage"`
	PaymentStatus     string          `json:"payment_status"`
}

// PaymentInput carries the caller-supplied fields of a new or edited payment.
type PaymentInput struct {
	Amount        decimal.Decimal
	Method        string
	TransactionID string
	PaidAt        time.Time
}

// MealInput carries the caller-supplied fields of a meal charge.
type MealInput struct {
	Item      string
	Category  string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// StatusMismatch describes a booking whose stored payment status is stale.
type StatusMismatch struct {
	BookingID int64   `json:"booking_id"`
	Current   string  `json:"current"`
	Expected  string  `json:"expected"`
	Summary   Summary `json:"summary"`
}

// ChargeMismatch describes a booking whose stored room charge disagrees with rate × nights.
type ChargeMismatch struct {
	BookingID int64           `json:"booking_id"`
	RoomID    int64           `json:"room_id"`
	Nights    int64           `json:"nights"`
	Rate      decimal.Decimal `json:"rate"`
	Stored    decimal.Decimal `json:"stored"`
	Computed  decimal.Decimal `json:"computed"`
}

// RoomDrift describes a room whose cached availability flag disagrees with its bookings.
type RoomDrift struct {
	RoomID          int64  `json:"room_id"`
	RoomNumber      string `json:"room_number"`
	Cached          bool   `json:"cached"`
	Expected        bool   `json:"expected"`
	ActiveBookingID int64  `json:"active_booking_id,omitempty"`
}

// FixResult reports a bulk payment-status reconciliation. In a dry run Updated
// counts the writes that were made and then rolled back.
type FixResult struct {
	Mismatches map[int64]StatusMismatch `json:"mismatches"`
	Updated    int                      `json:"updated"`
	Errors     []string                 `json:"errors,omitempty"`
	DryRun     bool                     `json:"dry_run"`
}
