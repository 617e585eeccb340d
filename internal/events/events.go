package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventBookingCreated     = "booking_created"
	EventBookingStayChanged = "booking_stay_changed"
	EventBookingCheckedIn   = "booking_checked_in"
	EventBookingCheckedOut  = "booking_checked_out"
	EventBookingNoShow      = "booking_no_show"
	EventBookingDeleted     = "booking_deleted"

	EventPaymentApplied   = "payment_applied"
	EventPaymentUpdated   = "payment_updated"
	EventPaymentRetracted = "payment_retracted"
	EventMealCharged      = "meal_charged"
	EventMealUpdated      = "meal_updated"
	EventMealRetracted    = "meal_retracted"

	EventTotalsRecalculated = "totals_recalculated"
	EventStatusRecomputed   = "status_recomputed"
	EventLedgerReconciled   = "ledger_reconciled"
)

// BookingEvents are the event types that change a booking's totals or status.
var BookingEvents = []string{
	EventBookingCreated, EventBookingStayChanged, EventBookingCheckedIn, EventBookingCheckedOut,
	EventBookingNoShow, EventBookingDeleted, EventPaymentApplied, EventPaymentUpdated,
	EventPaymentRetracted, EventMealCharged, EventMealUpdated, EventMealRetracted,
	EventTotalsRecalculated, EventStatusRecomputed,
}

// LedgerEventPayload is the booking snapshot carried by ledger events.
type LedgerEventPayload struct {
	BookingID     int64            `json:"booking_id"`
	RoomID        int64            `json:"room_id,omitempty"`
	Status        string           `json:"status,omitempty"`
	PaymentStatus string           `json:"payment_status,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	LineID        int64            `json:"line_id,omitempty"`
	TransactionID string           `json:"transaction_id,omitempty"`
}

// ReconcilePayload summarizes a bulk reconciliation pass.
type ReconcilePayload struct {
	StatusMismatches int  `json:"status_mismatches"`
	StatusUpdated    int  `json:"status_updated"`
	RoomDrift        int  `json:"room_drift"`
	ChargeDrift      int  `json:"charge_drift"`
	DryRun           bool `json:"dry_run"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for each of the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish runs every handler of the event type synchronously and joins their errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
}
