package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"frontdesk/internal/config"
	"frontdesk/internal/events"
	"frontdesk/internal/models"
	"frontdesk/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func drift(ids ...int64) map[int64]models.StatusMismatch {
	out := make(map[int64]models.StatusMismatch, len(ids))
	for _, id := range ids {
		out[id] = models.StatusMismatch{BookingID: id, Current: models.PaymentPending, Expected: models.PaymentPaid}
	}
	return out
}

func TestReconciler_FixStatuses(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("NoDriftNoBackup", func(t *testing.T) {
		store := new(mockReconcileStore)
		snap := new(mockSnapshotter)
		r := NewReconciler(store, snap, nil, config.ReconcileConfig{}, &logger)
		store.On("ValidateAll", ctx).Return(drift(), nil).Once()

		res, backup, err := r.FixStatuses(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, res.Mismatches)
		assert.Empty(t, backup)
		snap.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "FixAll", mock.Anything, mock.Anything)
	})

	t.Run("BackupThenFix", func(t *testing.T) {
		store := new(mockReconcileStore)
		snap := new(mockSnapshotter)
		bus := events.NewEventBus()
		cache := repository.NewMemorySummaryCache(time.Hour)
		bus.Subscribe(NewCacheInvalidator(cache, &logger), events.BookingEvents...)
		require.NoError(t, cache.Set(ctx, &models.Summary{BookingID: 1, PaymentStatus: models.PaymentPending}))
		require.NoError(t, cache.Set(ctx, &models.Summary{BookingID: 3}))

		r := NewReconciler(store, snap, bus, config.ReconcileConfig{}, &logger)
		store.On("ValidateAll", ctx).Return(drift(1, 2), nil).Once()
		snap.On("Snapshot", ctx, "fix_statuses").Return("/backups/ledger_fix.db", nil).Once()
		store.On("FixAll", ctx, false).Return(models.FixResult{Mismatches: drift(1, 2), Updated: 2}, nil).Once()

		res, backup, err := r.FixStatuses(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Updated)
		assert.Equal(t, "/backups/ledger_fix.db", backup)
		store.AssertExpectations(t)
		snap.AssertExpectations(t)

		got, _ := cache.Get(ctx, 1)
		assert.Nil(t, got, "fixed bookings drop their cached summary")
		got, _ = cache.Get(ctx, 3)
		assert.NotNil(t, got, "untouched bookings keep theirs")
	})

	t.Run("BackupFailureAbortsFix", func(t *testing.T) {
		store := new(mockReconcileStore)
		snap := new(mockSnapshotter)
		r := NewReconciler(store, snap, nil, config.ReconcileConfig{}, &logger)
		store.On("ValidateAll", ctx).Return(drift(1), nil).Once()
		snap.On("Snapshot", ctx, "fix_statuses").Return("", errors.New("disk full")).Once()

		_, _, err := r.FixStatuses(ctx, false)
		assert.Error(t, err)
		store.AssertNotCalled(t, "FixAll", mock.Anything, mock.Anything)
	})

	t.Run("DryRun", func(t *testing.T) {
		store := new(mockReconcileStore)
		snap := new(mockSnapshotter)
		r := NewReconciler(store, snap, nil, config.ReconcileConfig{}, &logger)
		store.On("FixAll", ctx, true).Return(models.FixResult{Mismatches: drift(1), Updated: 1, DryRun: true}, nil).Once()

		res, backup, err := r.FixStatuses(ctx, true)
		require.NoError(t, err)
		assert.True(t, res.DryRun)
		assert.Empty(t, backup)
		snap.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
	})
}

func TestReconciler_FixCharges(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	store := new(mockReconcileStore)
	snap := new(mockSnapshotter)
	r := NewReconciler(store, snap, nil, config.ReconcileConfig{}, &logger)

	fixed := []models.ChargeMismatch{{BookingID: 1, Nights: 3, Stored: d("300"), Computed: d("450")}}
	store.On("FixRoomCharges", ctx, true).Return(fixed, nil).Once()
	store.On("FixRoomCharges", ctx, false).Return(fixed, nil).Once()
	snap.On("Snapshot", ctx, "fix_totals").Return("/backups/t.db", nil).Once()

	got, backup, err := r.FixCharges(ctx, true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Empty(t, backup)

	_, backup, err = r.FixCharges(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "/backups/t.db", backup)
	store.AssertExpectations(t)
	snap.AssertExpectations(t)
}

func TestReconciler_RunOnce(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	store := new(mockReconcileStore)
	captured := newCapture()
	r := NewReconciler(store, nil, captured.bus, config.ReconcileConfig{FixStatuses: true, SyncRooms: true}, &logger)

	rooms := []models.RoomDrift{{RoomID: 1, RoomNumber: "101", Cached: true, Expected: false}}
	store.On("SyncRoomAvailability", ctx, store.Now(), false).Return(rooms, nil).Once()
	store.On("ValidateAll", ctx).Return(drift(4), nil).Once()
	store.On("FixAll", ctx, false).Return(models.FixResult{Mismatches: drift(4), Updated: 1}, nil).Once()

	report, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Rooms, 1)
	require.NotNil(t, report.Statuses)
	assert.Equal(t, 1, report.Statuses.Updated)
	assert.Contains(t, captured.types, events.EventStatusRecomputed)
	assert.Equal(t, events.EventLedgerReconciled, captured.types[len(captured.types)-1])
	store.AssertExpectations(t)
}

func TestReconciler_RunOnceErrors(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	store := new(mockReconcileStore)
	r := NewReconciler(store, nil, nil, config.ReconcileConfig{SyncRooms: true, FixStatuses: true}, &logger)

	store.On("SyncRoomAvailability", ctx, store.Now(), false).Return(nil, errors.New("locked")).Once()

	_, err := r.RunOnce(ctx)
	assert.ErrorContains(t, err, "sync rooms")
	store.AssertNotCalled(t, "ValidateAll", mock.Anything)
}

func TestReconciler_StartStopsOnCancel(t *testing.T) {
	logger := zerolog.New(io.Discard)
	store := new(mockReconcileStore)
	r := NewReconciler(store, nil, nil, config.ReconcileConfig{}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestCacheInvalidator(t *testing.T) {
	logger := zerolog.New(io.Discard)
	cache := new(mockCache)
	handler := NewCacheInvalidator(cache, &logger)

	cache.On("Invalidate", context.Background(), int64(5)).Return(nil).Once()
	ev, err := jsonEvent(events.EventPaymentApplied, events.LedgerEventPayload{BookingID: 5})
	require.NoError(t, err)
	assert.NoError(t, handler(ev))

	ev, err = jsonEvent(events.EventPaymentApplied, events.LedgerEventPayload{})
	require.NoError(t, err)
	assert.NoError(t, handler(ev), "events without a booking are ignored")

	assert.Error(t, handler(&events.Event{Type: events.EventMealCharged, Payload: []byte("{")}))
	cache.AssertExpectations(t)
}

func jsonEvent(eventType string, payload events.LedgerEventPayload) (*events.Event, error) {
	var got *events.Event
	bus := events.NewEventBus()
	bus.Subscribe(func(e *events.Event) error { got = e; return nil }, eventType)
	if err := bus.PublishJSON(eventType, payload); err != nil {
		return nil, err
	}
	return got, nil
}
