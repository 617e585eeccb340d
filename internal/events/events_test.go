package events

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(func(event *Event) error {
		received = event
		callCount++
		return nil
	}, EventPaymentApplied)

	amount := decimal.RequireFromString("150.25")
	err := bus.PublishJSON(EventPaymentApplied, LedgerEventPayload{BookingID: 7, PaymentStatus: "partial", Amount: &amount})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventPaymentApplied {
		t.Errorf("expected type %s, got %s", EventPaymentApplied, received.Type)
	}
	if received.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	var decoded LedgerEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.BookingID != 7 || decoded.Amount == nil || !decoded.Amount.Equal(amount) {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusMultipleTypes(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe(func(_ *Event) error { count1++; return nil }, BookingEvents...)
	bus.Subscribe(func(_ *Event) error { count2++; return nil }, EventMealCharged)

	_ = bus.Publish(&Event{Type: EventMealCharged})
	_ = bus.Publish(&Event{Type: EventBookingDeleted})

	if count1 != 2 || count2 != 1 {
		t.Errorf("expected counts 2 and 1, got %d and %d", count1, count2)
	}
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	errA := errors.New("a")
	errB := errors.New("b")
	var ran int

	bus.Subscribe(func(_ *Event) error { ran++; return errA }, "event")
	bus.Subscribe(func(_ *Event) error { ran++; return errB }, "event")

	err := bus.Publish(&Event{Type: "event"})
	if ran != 2 {
		t.Errorf("expected every handler to run, got %d", ran)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected joined errors, got %v", err)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	if err := bus.Publish(&Event{Type: "unknown"}); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON(EventBookingCreated, nil); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}
