package service

import (
	"context"
	"errors"
	"time"

	"frontdesk/internal/database"
	"frontdesk/internal/domain"
	"frontdesk/internal/events"
	"frontdesk/internal/ledger"
	"frontdesk/internal/metrics"
	"frontdesk/internal/models"

	"github.com/rs/zerolog"
)

// LedgerService is the entry point the front desk uses for every financial change
// to a booking. The store owns the transactions; the service adds logging,
// metrics, events and the summary cache.
type LedgerService struct {
	store    domain.LedgerStore
	cache    domain.SummaryCache
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewLedgerService(store domain.LedgerStore, cache domain.SummaryCache, eventBus domain.EventPublisher, logger *zerolog.Logger) *LedgerService {
	return &LedgerService{
		store:    store,
		cache:    cache,
		eventBus: eventBus,
		logger:   logger,
	}
}

// reason extends ledger.Reason with the store's own recoverable errors.
func reason(err error) string {
	if r := ledger.Reason(err); r != "" {
		return r
	}
	switch {
	case errors.Is(err, database.ErrNotFound):
		return "not_found"
	case errors.Is(err, database.ErrInvalidTransition):
		return "invalid_transition"
	}
	return ""
}

func (s *LedgerService) observe(op string, bookingID int64, err error) {
	r := reason(err)
	metrics.ObserveOperation(op, err, r)
	switch {
	case err == nil:
		s.logger.Debug().Str("op", op).Int64("booking_id", bookingID).Msg("ledger operation applied")
	case r != "":
		s.logger.Warn().Err(err).Str("op", op).Int64("booking_id", bookingID).Str("reason", r).Msg("ledger operation rejected")
	default:
		s.logger.Error().Err(err).Str("op", op).Int64("booking_id", bookingID).Msg("ledger operation failed")
	}
}

func (s *LedgerService) publish(eventType string, payload events.LedgerEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Int64("booking_id", payload.BookingID).Msg("failed to publish ledger event")
	}
}

func (s *LedgerService) invalidate(ctx context.Context, bookingID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, bookingID); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("failed to invalidate summary cache")
	}
}

// changed finishes a successful mutation of bookingID.
func (s *LedgerService) changed(ctx context.Context, eventType string, payload events.LedgerEventPayload) {
	s.invalidate(ctx, payload.BookingID)
	s.publish(eventType, payload)
}

func bookingPayload(b *models.Booking) events.LedgerEventPayload {
	return events.LedgerEventPayload{
		BookingID:     b.ID,
		RoomID:        b.RoomID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
	}
}

// Summary returns the booking's financial view, from cache when possible.
func (s *LedgerService) Summary(ctx context.Context, bookingID int64) (models.Summary, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, bookingID)
		switch {
		case err != nil:
			metrics.IncCache("error")
			s.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("summary cache lookup failed")
		case cached != nil:
			metrics.IncCache("hit")
			return *cached, nil
		default:
			metrics.IncCache("miss")
		}
	}

	sum, err := s.store.Summary(ctx, bookingID)
	if err != nil {
		return models.Summary{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, &sum); err != nil {
			s.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("failed to cache summary")
		}
	}
	return sum, nil
}

// CheckAvailability returns the booking that blocks the room for the stay, or nil.
func (s *LedgerService) CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (*models.Booking, error) {
	return s.store.FindRoomConflict(ctx, roomID, checkIn, checkOut, excludeBookingID)
}

func (s *LedgerService) CreateBooking(ctx context.Context, booking *models.Booking) error {
	err := s.store.CreateBooking(ctx, booking)
	s.observe("create_booking", booking.ID, err)
	if err != nil {
		return err
	}
	s.changed(ctx, events.EventBookingCreated, bookingPayload(booking))
	return nil
}

func (s *LedgerService) UpdateStay(ctx context.Context, bookingID, roomID int64, checkIn, checkOut time.Time) (*models.Booking, error) {
	b, err := s.store.UpdateStay(ctx, bookingID, roomID, checkIn, checkOut)
	s.observe("update_stay", bookingID, err)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, events.EventBookingStayChanged, bookingPayload(b))
	return b, nil
}

func (s *LedgerService) CheckIn(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.store.CheckIn(ctx, bookingID)
	s.observe("check_in", bookingID, err)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, events.EventBookingCheckedIn, bookingPayload(b))
	return b, nil
}

func (s *LedgerService) CheckOut(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.store.CheckOut(ctx, bookingID)
	s.observe("check_out", bookingID, err)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, events.EventBookingCheckedOut, bookingPayload(b))
	return b, nil
}

func (s *LedgerService) MarkNoShow(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.store.MarkNoShow(ctx, bookingID)
	s.observe("mark_no_show", bookingID, err)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, events.EventBookingNoShow, bookingPayload(b))
	return b, nil
}

func (s *LedgerService) DeleteBooking(ctx context.Context, bookingID int64) error {
	err := s.store.DeleteBooking(ctx, bookingID)
	s.observe("delete_booking", bookingID, err)
	if err != nil {
		return err
	}
	s.changed(ctx, events.EventBookingDeleted, events.LedgerEventPayload{BookingID: bookingID})
	return nil
}

func (s *LedgerService) ApplyPayment(ctx context.Context, bookingID int64, in models.PaymentInput) (*models.Payment, error) {
	p, err := s.store.ApplyPayment(ctx, bookingID, in)
	s.observe("apply_payment", bookingID, err)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, events.EventPaymentApplied, events.LedgerEventPayload{
		BookingID:     bookingID,
		Amount:        &p.Amount,
		LineID:        p.ID,
		TransactionID: p.TransactionID,
	})
	return p, nil
}

func (s *LedgerService) UpdatePayment(ctx context.Context, paymentID int64, in models.PaymentInput) (*models.Payment, error) {
	p, err := s.store.UpdatePayment(ctx, paymentID, in)
	if err != nil {
		s.observe("update_payment", 0, err)
		return nil, err
	}
	s.observe("update_payment", p.BookingID, nil)
	s.changed(ctx, events.EventPaymentUpdated, events.LedgerEventPayload{
		BookingID:     p.BookingID,
		Amount:        &p.Amount,
		LineID:        p.ID,
		TransactionID: p.TransactionID,
	})
	return p, nil
}

func (s *LedgerService) RetractPayment(ctx context.Context, paymentID int64) (models.Summary, error) {
	sum, err := s.store.RetractPayment(ctx, paymentID)
	s.observe("retract_payment", sum.BookingID, err)
	if err != nil {
		return models.Summary{}, err
	}
	s.changed(ctx, events.EventPaymentRetracted, events.LedgerEventPayload{
		BookingID:     sum.BookingID,
		PaymentStatus: sum.PaymentStatus,
		LineID:        paymentID,
	})
	return sum, nil
}

func (s *LedgerService) ApplyMealCharge(ctx context.Context, bookingID int64, in models.MealInput) (*models.MealCharge, error) {
	m, err := s.store.ApplyMealCharge(ctx, bookingID, in)
	s.observe("apply_meal_charge", bookingID, err)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, events.EventMealCharged, events.LedgerEventPayload{
		BookingID: bookingID,
		Amount:    &m.LineTotal,
		LineID:    m.ID,
	})
	return m, nil
}

func (s *LedgerService) UpdateMealCharge(ctx context.Context, chargeID int64, in models.MealInput) (*models.MealCharge, error) {
	m, err := s.store.UpdateMealCharge(ctx, chargeID, in)
	if err != nil {
		s.observe("update_meal_charge", 0, err)
		return nil, err
	}
	s.observe("update_meal_charge", m.BookingID, nil)
	s.changed(ctx, events.EventMealUpdated, events.LedgerEventPayload{
		BookingID: m.BookingID,
		Amount:    &m.LineTotal,
		LineID:    m.ID,
	})
	return m, nil
}

func (s *LedgerService) RetractMealCharge(ctx context.Context, chargeID int64) (models.Summary, error) {
	sum, err := s.store.RetractMealCharge(ctx, chargeID)
	s.observe("retract_meal_charge", sum.BookingID, err)
	if err != nil {
		return models.Summary{}, err
	}
	s.changed(ctx, events.EventMealRetracted, events.LedgerEventPayload{
		BookingID:     sum.BookingID,
		PaymentStatus: sum.PaymentStatus,
		LineID:        chargeID,
	})
	return sum, nil
}

// RecomputePaymentStatus previews (apply=false) or persists the derived status.
func (s *LedgerService) RecomputePaymentStatus(ctx context.Context, bookingID int64, apply bool) (string, bool, error) {
	status, changed, err := s.store.RecomputePaymentStatus(ctx, bookingID, apply)
	if err != nil {
		s.observe("recompute_status", bookingID, err)
		return "", false, err
	}
	if apply {
		s.observe("recompute_status", bookingID, nil)
		if changed {
			s.changed(ctx, events.EventStatusRecomputed, events.LedgerEventPayload{BookingID: bookingID, PaymentStatus: status})
		}
	}
	return status, changed, nil
}

func (s *LedgerService) RecalculateTotals(ctx context.Context, bookingID int64) (models.Summary, error) {
	sum, err := s.store.RecalculateTotals(ctx, bookingID)
	s.observe("recalculate_totals", bookingID, err)
	if err != nil {
		return models.Summary{}, err
	}
	s.changed(ctx, events.EventTotalsRecalculated, events.LedgerEventPayload{BookingID: bookingID, PaymentStatus: sum.PaymentStatus})
	return sum, nil
}
