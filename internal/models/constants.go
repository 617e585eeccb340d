package models

// Booking lifecycle statuses.
const (
	StatusPending    = "Pending"
	StatusCheckedIn  = "Checked In"
	StatusCheckedOut = "Checked Out"
	StatusNoShow     = "No Show"
)

// Payment statuses derived from the booking's line items.
const (
	PaymentPending = "pending"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
	PaymentOverdue = "overdue"
)

const (
	RoomSingle = "single"
	RoomDouble = "double"
	RoomSuite  = "suite"
)

const (
	MealBreakfast = "Breakfast"
	MealLunch     = "Lunch"
	MealDinner    = "Dinner"
	MealSnacks    = "Snacks"
)

const (
	// DefaultGracePeriod окно после выезда, в течение которого ещё можно добавлять начисления
	DefaultGracePeriod = 24 * 60 * 60 // 24 часа в секундах

	DefaultMinNights      = 1
	DefaultMaxNights      = 90
	DefaultMaxAdvanceDays = 365

	// DefaultSummaryTTL время жизни кэша финансовой сводки
	DefaultSummaryTTL = 10 * 60 // 10 минут в секундах

	// DefaultReconcileInterval период фоновой сверки
	DefaultReconcileInterval = 15 * 60 // 15 минут в секундах
)

// IsBookingStatus reports whether s is one of the booking lifecycle statuses.
func IsBookingStatus(s string) bool {
	switch s {
	case StatusPending, StatusCheckedIn, StatusCheckedOut, StatusNoShow:
		return true
	}
	return false
}

// IsMealCategory reports whether c is one of the meal categories.
func IsMealCategory(c string) bool {
	switch c {
	case MealBreakfast, MealLunch, MealDinner, MealSnacks:
		return true
	}
	return false
}
