package domain

import (
	"context"
	"time"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"

	"github.com/shopspring/decimal"
)

// LedgerStore is the transactional booking ledger.
type LedgerStore interface {
	Rules() ledger.Rules
	Now() time.Time

	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	UpdateRoomRate(ctx context.Context, id int64, rate decimal.Decimal) error
	CreateGuest(ctx context.Context, guest *models.Guest) error
	GetGuest(ctx context.Context, id int64) (*models.Guest, error)

	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	UpdateStay(ctx context.Context, bookingID, roomID int64, checkIn, checkOut time.Time) (*models.Booking, error)
	CheckIn(ctx context.Context, bookingID int64) (*models.Booking, error)
	CheckOut(ctx context.Context, bookingID int64) (*models.Booking, error)
	MarkNoShow(ctx context.Context, bookingID int64) (*models.Booking, error)
	DeleteBooking(ctx context.Context, bookingID int64) error
	FindRoomConflict(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (*models.Booking, error)

	Summary(ctx context.Context, bookingID int64) (models.Summary, error)
	ListPayments(ctx context.Context, bookingID int64) ([]models.Payment, error)
	ListMealCharges(ctx context.Context, bookingID int64) ([]models.MealCharge, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetMealCharge(ctx context.Context, id int64) (*models.MealCharge, error)
	ApplyPayment(ctx context.Context, bookingID int64, in models.PaymentInput) (*models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID int64, in models.PaymentInput) (*models.Payment, error)
	RetractPayment(ctx context.Context, paymentID int64) (models.Summary, error)
	ApplyMealCharge(ctx context.Context, bookingID int64, in models.MealInput) (*models.MealCharge, error)
	UpdateMealCharge(ctx context.Context, chargeID int64, in models.MealInput) (*models.MealCharge, error)
	RetractMealCharge(ctx context.Context, chargeID int64) (models.Summary, error)
	RecomputePaymentStatus(ctx context.Context, bookingID int64, apply bool) (string, bool, error)
	RecalculateTotals(ctx context.Context, bookingID int64) (models.Summary, error)
}

// Reconciler is the bulk drift detection and repair surface of the store.
type Reconciler interface {
	Now() time.Time
	ValidateAll(ctx context.Context) (map[int64]models.StatusMismatch, error)
	FixAll(ctx context.Context, dryRun bool) (models.FixResult, error)
	FixRoomCharges(ctx context.Context, dryRun bool) ([]models.ChargeMismatch, error)
	SyncRoomAvailability(ctx context.Context, at time.Time, dryRun bool) ([]models.RoomDrift, error)
}

// SummaryCache stores derived booking summaries. Get returns nil, nil on a miss.
type SummaryCache interface {
	Get(ctx context.Context, bookingID int64) (*models.Summary, error)
	Set(ctx context.Context, sum *models.Summary) error
	Invalidate(ctx context.Context, bookingID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type Snapshotter interface {
	Snapshot(ctx context.Context, label string) (string, error)
}
