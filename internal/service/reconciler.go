package service

import (
	"context"
	"fmt"
	"time"

	"frontdesk/internal/config"
	"frontdesk/internal/domain"
	"frontdesk/internal/events"
	"frontdesk/internal/metrics"
	"frontdesk/internal/models"

	"github.com/rs/zerolog"
)

// ReconcileReport collects what one reconciliation pass found and fixed.
type ReconcileReport struct {
	StartedAt time.Time
	DryRun    bool
	Backup    string
	Statuses  *models.FixResult
	Charges   []models.ChargeMismatch
	Rooms     []models.RoomDrift
}

// Reconciler runs the bulk repairs: payment-status drift, stored room charges and
// the cached room availability flag. Every non-dry-run fix is preceded by a
// database snapshot when a Snapshotter is configured.
type Reconciler struct {
	store    domain.Reconciler
	backup   domain.Snapshotter
	eventBus domain.EventPublisher
	cfg      config.ReconcileConfig
	logger   *zerolog.Logger
}

func NewReconciler(store domain.Reconciler, backup domain.Snapshotter, eventBus domain.EventPublisher, cfg config.ReconcileConfig, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		backup:   backup,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
	}
}

func (r *Reconciler) snapshot(ctx context.Context, label string) (string, error) {
	if r.backup == nil {
		return "", nil
	}
	path, err := r.backup.Snapshot(ctx, label)
	if err != nil {
		return "", fmt.Errorf("pre-fix backup: %w", err)
	}
	return path, nil
}

func (r *Reconciler) publish(eventType string, payload interface{}) {
	if r.eventBus == nil {
		return
	}
	if err := r.eventBus.PublishJSON(eventType, payload); err != nil {
		r.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish reconcile event")
	}
}

// FixStatuses rewrites stale payment statuses. Nothing is snapshotted or written
// when the scan finds no drift.
func (r *Reconciler) FixStatuses(ctx context.Context, dryRun bool) (models.FixResult, string, error) {
	if dryRun {
		res, err := r.store.FixAll(ctx, true)
		return res, "", err
	}

	found, err := r.store.ValidateAll(ctx)
	if err != nil {
		return models.FixResult{}, "", err
	}
	if len(found) == 0 {
		metrics.SetMismatches("payment_status", 0)
		return models.FixResult{Mismatches: found}, "", nil
	}

	backup, err := r.snapshot(ctx, "fix_statuses")
	if err != nil {
		return models.FixResult{}, "", err
	}
	res, err := r.store.FixAll(ctx, false)
	if err != nil {
		return models.FixResult{}, backup, err
	}
	metrics.SetMismatches("payment_status", len(res.Mismatches))

	for id, m := range res.Mismatches {
		r.logger.Info().
			Int64("booking_id", id).
			Str("old_status", m.Current).
			Str("new_status", m.Expected).
			Str("grand_total", m.Summary.GrandTotal.StringFixed(2)).
			Str("total_paid", m.Summary.TotalPaid.StringFixed(2)).
			Msg("payment status fixed")
		r.publish(events.EventStatusRecomputed, events.LedgerEventPayload{BookingID: id, PaymentStatus: m.Expected})
	}
	return res, backup, nil
}

// FixCharges re-derives stored room charges from the current rates.
func (r *Reconciler) FixCharges(ctx context.Context, dryRun bool) ([]models.ChargeMismatch, string, error) {
	var backup string
	if !dryRun {
		var err error
		if backup, err = r.snapshot(ctx, "fix_totals"); err != nil {
			return nil, "", err
		}
	}
	fixed, err := r.store.FixRoomCharges(ctx, dryRun)
	if err != nil {
		return nil, backup, err
	}
	metrics.SetMismatches("room_charge", len(fixed))
	if !dryRun {
		for _, c := range fixed {
			r.publish(events.EventTotalsRecalculated, events.LedgerEventPayload{BookingID: c.BookingID, RoomID: c.RoomID})
		}
	}
	return fixed, backup, nil
}

// SyncRooms recomputes every room's availability flag at the store's current time.
func (r *Reconciler) SyncRooms(ctx context.Context, dryRun bool) ([]models.RoomDrift, error) {
	drift, err := r.store.SyncRoomAvailability(ctx, r.store.Now(), dryRun)
	if err != nil {
		return nil, err
	}
	metrics.SetMismatches("room_availability", len(drift))
	for _, d := range drift {
		r.logger.Info().
			Int64("room_id", d.RoomID).
			Str("room", d.RoomNumber).
			Bool("cached", d.Cached).
			Bool("expected", d.Expected).
			Bool("dry_run", dryRun).
			Msg("room availability drift")
	}
	return drift, nil
}

// RunOnce performs the passes enabled in the reconcile config.
func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: r.store.Now()}

	if r.cfg.SyncRooms {
		drift, err := r.SyncRooms(ctx, false)
		if err != nil {
			return report, fmt.Errorf("sync rooms: %w", err)
		}
		report.Rooms = drift
	}

	if r.cfg.FixStatuses {
		res, backup, err := r.FixStatuses(ctx, false)
		if err != nil {
			return report, fmt.Errorf("fix statuses: %w", err)
		}
		report.Statuses = &res
		report.Backup = backup
	}

	payload := events.ReconcilePayload{RoomDrift: len(report.Rooms)}
	if report.Statuses != nil {
		payload.StatusMismatches = len(report.Statuses.Mismatches)
		payload.StatusUpdated = report.Statuses.Updated
	}
	r.publish(events.EventLedgerReconciled, payload)
	return report, nil
}

// Start runs RunOnce immediately and then every interval until ctx is done.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	r.logger.Info().Dur("interval", interval).Msg("Reconciler started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Reconciler stopped")
			return
		case <-ticker.C:
			r.runLogged(ctx)
		}
	}
}

func (r *Reconciler) runLogged(ctx context.Context) {
	report, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Reconciliation pass failed")
		return
	}
	ev := r.logger.Info().Int("room_drift", len(report.Rooms))
	if report.Statuses != nil {
		ev = ev.Int("status_mismatches", len(report.Statuses.Mismatches)).Int("status_updated", report.Statuses.Updated)
	}
	ev.Msg("Reconciliation pass completed")
}

// NewCacheInvalidator returns an event handler that drops the cached summary of
// the booking named in a ledger event.
func NewCacheInvalidator(cache domain.SummaryCache, logger *zerolog.Logger) events.EventHandler {
	return func(event *events.Event) error {
		var payload events.LedgerEventPayload
		if err := event.Decode(&payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		if payload.BookingID == 0 {
			return nil
		}
		if err := cache.Invalidate(context.Background(), payload.BookingID); err != nil {
			logger.Warn().Err(err).Int64("booking_id", payload.BookingID).Msg("failed to invalidate summary cache")
			return err
		}
		return nil
	}
}
