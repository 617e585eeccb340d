package service

import (
	"context"
	"time"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Rules() ledger.Rules { return ledger.DefaultRules() }
func (m *mockStore) Now() time.Time {
	return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
}

func (m *mockStore) CreateRoom(ctx context.Context, r *models.Room) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockStore) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}
func (m *mockStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}
func (m *mockStore) UpdateRoomRate(ctx context.Context, id int64, rate decimal.Decimal) error {
	return m.Called(ctx, id, rate).Error(0)
}
func (m *mockStore) CreateGuest(ctx context.Context, g *models.Guest) error {
	return m.Called(ctx, g).Error(0)
}
func (m *mockStore) GetGuest(ctx context.Context, id int64) (*models.Guest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Guest), args.Error(1)
}

func (m *mockStore) bookingResult(args mock.Arguments) (*models.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, id))
}
func (m *mockStore) ListBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}
func (m *mockStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockStore) UpdateStay(ctx context.Context, id, roomID int64, in, out time.Time) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, id, roomID, in, out))
}
func (m *mockStore) CheckIn(ctx context.Context, id int64) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, id))
}
func (m *mockStore) CheckOut(ctx context.Context, id int64) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, id))
}
func (m *mockStore) MarkNoShow(ctx context.Context, id int64) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, id))
}
func (m *mockStore) DeleteBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) FindRoomConflict(ctx context.Context, roomID int64, in, out time.Time, exclude int64) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, roomID, in, out, exclude))
}

func (m *mockStore) Summary(ctx context.Context, id int64) (models.Summary, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Summary), args.Error(1)
}
func (m *mockStore) ListPayments(ctx context.Context, id int64) ([]models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}
func (m *mockStore) ListMealCharges(ctx context.Context, id int64) ([]models.MealCharge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MealCharge), args.Error(1)
}
func (m *mockStore) paymentResult(args mock.Arguments) (*models.Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *mockStore) mealResult(args mock.Arguments) (*models.MealCharge, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MealCharge), args.Error(1)
}
func (m *mockStore) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return m.paymentResult(m.Called(ctx, id))
}
func (m *mockStore) GetMealCharge(ctx context.Context, id int64) (*models.MealCharge, error) {
	return m.mealResult(m.Called(ctx, id))
}
func (m *mockStore) ApplyPayment(ctx context.Context, id int64, in models.PaymentInput) (*models.Payment, error) {
	return m.paymentResult(m.Called(ctx, id, in))
}
func (m *mockStore) UpdatePayment(ctx context.Context, id int64, in models.PaymentInput) (*models.Payment, error) {
	return m.paymentResult(m.Called(ctx, id, in))
}
func (m *mockStore) RetractPayment(ctx context.Context, id int64) (models.Summary, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Summary), args.Error(1)
}
func (m *mockStore) ApplyMealCharge(ctx context.Context, id int64, in models.MealInput) (*models.MealCharge, error) {
	return m.mealResult(m.Called(ctx, id, in))
}
func (m *mockStore) UpdateMealCharge(ctx context.Context, id int64, in models.MealInput) (*models.MealCharge, error) {
	return m.mealResult(m.Called(ctx, id, in))
}
func (m *mockStore) RetractMealCharge(ctx context.Context, id int64) (models.Summary, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Summary), args.Error(1)
}
func (m *mockStore) RecomputePaymentStatus(ctx context.Context, id int64, apply bool) (string, bool, error) {
	args := m.Called(ctx, id, apply)
	return args.String(0), args.Bool(1), args.Error(2)
}
func (m *mockStore) RecalculateTotals(ctx context.Context, id int64) (models.Summary, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Summary), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, id int64) (*models.Summary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Summary), args.Error(1)
}
func (m *mockCache) Set(ctx context.Context, sum *models.Summary) error {
	return m.Called(ctx, sum).Error(0)
}
func (m *mockCache) Invalidate(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockReconcileStore struct {
	mock.Mock
}

func (m *mockReconcileStore) Now() time.Time {
	return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
}
func (m *mockReconcileStore) ValidateAll(ctx context.Context) (map[int64]models.StatusMismatch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]models.StatusMismatch), args.Error(1)
}
func (m *mockReconcileStore) FixAll(ctx context.Context, dryRun bool) (models.FixResult, error) {
	args := m.Called(ctx, dryRun)
	return args.Get(0).(models.FixResult), args.Error(1)
}
func (m *mockReconcileStore) FixRoomCharges(ctx context.Context, dryRun bool) ([]models.ChargeMismatch, error) {
	args := m.Called(ctx, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChargeMismatch), args.Error(1)
}
func (m *mockReconcileStore) SyncRoomAvailability(ctx context.Context, at time.Time, dryRun bool) ([]models.RoomDrift, error) {
	args := m.Called(ctx, at, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoomDrift), args.Error(1)
}

type mockSnapshotter struct {
	mock.Mock
}

func (m *mockSnapshotter) Snapshot(ctx context.Context, label string) (string, error) {
	args := m.Called(ctx, label)
	return args.String(0), args.Error(1)
}
