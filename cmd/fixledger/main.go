package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"frontdesk/internal/config"
	"frontdesk/internal/database"
	"frontdesk/internal/domain"
	"frontdesk/internal/logging"
	"frontdesk/internal/models"
	"frontdesk/internal/report"
	"frontdesk/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}

	configPath := flag.String("config", defaultConfig, "path to config file")
	mode := flag.String("mode", "statuses", "what to reconcile: statuses, totals, rooms or booking")
	bookingID := flag.Int64("booking", 0, "booking id for -mode booking")
	dryRun := flag.Bool("dry-run", false, "report and roll back without saving")
	xlsx := flag.Bool("xlsx", false, "also write an xlsx report to the exports directory")
	xlsxDir := flag.String("xlsx-dir", "", "directory for the xlsx report (defaults to exports.path)")
	flag.Parse()

	switch *mode {
	case "statuses", "totals", "rooms":
	case "booking":
		if *bookingID <= 0 {
			return fmt.Errorf("-mode booking needs -booking")
		}
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "fixledger")

	db, err := database.NewDB(cfg.Database.Path, cfg.Database.BusyTimeout, logger, database.WithRules(cfg.Ledger.Rules()))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	var snapshotter domain.Snapshotter
	if cfg.Backup.Enabled {
		snapshotter = database.NewBackupService(db, cfg.Database.Path, cfg.Backup, logging.Component(baseLogger, "backup"))
	}
	reconciler := service.NewReconciler(db, snapshotter, nil, cfg.Reconcile, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *mode == "booking" {
		ledgerService := service.NewLedgerService(db, nil, nil, logger)
		return reconcileBooking(ctx, ledgerService, *bookingID, *dryRun, cfg.Ledger.Currency)
	}

	rep, err := reconcile(ctx, reconciler, db, *mode, *dryRun)
	if err != nil {
		logger.Error().Err(err).Str("mode", *mode).Bool("dry_run", *dryRun).Msg("reconciliation failed")
		return err
	}

	if err := report.WriteText(os.Stdout, rep, cfg.Ledger.Currency); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if *xlsx || *xlsxDir != "" {
		dir := *xlsxDir
		if dir == "" {
			dir = cfg.Exports.Path
		}
		path, err := report.WriteWorkbook(dir, rep)
		if err != nil {
			return fmt.Errorf("write xlsx report: %w", err)
		}
		fmt.Printf("xlsx report: %s\n", path)
	}
	return nil
}

// reconcileBooking previews or persists one booking's totals and status.
func reconcileBooking(ctx context.Context, s *service.LedgerService, bookingID int64, dryRun bool, currency string) error {
	if dryRun {
		status, changed, err := s.RecomputePaymentStatus(ctx, bookingID, false)
		if err != nil {
			return err
		}
		fmt.Printf("computed payment status: %s (changed: %t, dry run, nothing saved)\n", status, changed)
	} else if _, err := s.RecalculateTotals(ctx, bookingID); err != nil {
		return err
	}

	sum, err := s.Summary(ctx, bookingID)
	if err != nil {
		return err
	}
	return report.WriteSummary(os.Stdout, sum, currency)
}

func reconcile(ctx context.Context, r *service.Reconciler, db *database.DB, mode string, dryRun bool) (*service.ReconcileReport, error) {
	rep := &service.ReconcileReport{StartedAt: db.Now(), DryRun: dryRun}

	switch mode {
	case "statuses":
		res, backup, err := r.FixStatuses(ctx, dryRun)
		if err != nil {
			return nil, err
		}
		rep.Statuses = &res
		rep.Backup = backup
	case "totals":
		fixed, backup, err := r.FixCharges(ctx, dryRun)
		if err != nil {
			return nil, err
		}
		if fixed == nil {
			fixed = []models.ChargeMismatch{}
		}
		rep.Charges = fixed
		rep.Backup = backup
	case "rooms":
		drift, err := r.SyncRooms(ctx, dryRun)
		if err != nil {
			return nil, err
		}
		if drift == nil {
			drift = []models.RoomDrift{}
		}
		rep.Rooms = drift
	}
	return rep, nil
}
