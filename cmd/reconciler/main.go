package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"frontdesk/internal/config"
	"frontdesk/internal/database"
	"frontdesk/internal/domain"
	"frontdesk/internal/events"
	"frontdesk/internal/logging"
	"frontdesk/internal/metrics"
	"frontdesk/internal/repository"
	"frontdesk/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, cfg.Database.BusyTimeout, &logger, database.WithRules(cfg.Ledger.Rules()))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := initCache(cfg, redisClient, &logger)

	bus := events.NewEventBus()
	bus.Subscribe(service.NewCacheInvalidator(cache, &logger), events.BookingEvents...)
	bus.Subscribe(auditLog(&logger), events.EventLedgerReconciled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snapshotter domain.Snapshotter
	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Database.Path, cfg.Backup, logging.Component(&logger, "backup"))
		snapshotter = backups
		go backups.Start(ctx)
	}

	startMetrics(ctx, cfg, db, &logger)

	reconciler := service.NewReconciler(db, snapshotter, bus, cfg.Reconcile, logging.Component(&logger, "reconciler"))
	go reconciler.Start(ctx, cfg.Reconcile.ReconcileInterval())

	logger.Info().
		Str("db_path", cfg.Database.Path).
		Dur("interval", cfg.Reconcile.ReconcileInterval()).
		Bool("fix_statuses", cfg.Reconcile.FixStatuses).
		Bool("sync_rooms", cfg.Reconcile.SyncRooms).
		Msg("reconciler daemon started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "reconciler-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory cache")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initCache puts redis in front of the in-memory cache when redis is reachable.
func initCache(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.SummaryCache {
	ttl := time.Duration(cfg.Redis.SummaryTTL) * time.Second
	memory := repository.NewMemorySummaryCache(ttl)
	if client == nil {
		return memory
	}
	return repository.NewFailoverSummaryCache(
		repository.NewRedisSummaryCache(client, ttl),
		memory,
		logging.Component(logger, "summary-cache"),
	)
}

func auditLog(logger *zerolog.Logger) events.EventHandler {
	return func(event *events.Event) error {
		var payload events.ReconcilePayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		logger.Debug().
			Str("event", event.Type).
			Int("status_mismatches", payload.StatusMismatches).
			Int("status_updated", payload.StatusUpdated).
			Int("room_drift", payload.RoomDrift).
			Time("at", event.CreatedAt).
			Msg("ledger reconciled")
		return nil
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, db, logger)
}

func startMetricsServer(ctx context.Context, port int, db *database.DB, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
