package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout_ms"`
}

// LedgerConfig holds the financial limits. Durations are Go duration strings.
type LedgerConfig struct {
	GracePeriod    string `yaml:"grace_period"`
	Tolerance      string `yaml:"tolerance"`
	MinNights      int64  `yaml:"min_nights"`
	MaxNights      int64  `yaml:"max_nights"`
	MaxAdvanceDays int    `yaml:"max_advance_days"`
	Currency       string `yaml:"currency"`
}

type ReconcileConfig struct {
	Interval    string `yaml:"interval"`
	FixStatuses bool   `yaml:"fix_statuses"`
	SyncRooms   bool   `yaml:"sync_rooms"`
}

type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	SummaryTTL int    `yaml:"summary_ttl"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен: переменные могут прийти из окружения
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if _, err := time.ParseDuration(c.Ledger.GracePeriod); err != nil {
		return fmt.Errorf("ledger.grace_period: %w", err)
	}
	if _, err := time.ParseDuration(c.Reconcile.Interval); err != nil {
		return fmt.Errorf("reconcile.interval: %w", err)
	}
	tol, err := decimal.NewFromString(c.Ledger.Tolerance)
	if err != nil {
		return fmt.Errorf("ledger.tolerance: %w", err)
	}
	if !tol.IsPositive() {
		return errors.New("ledger.tolerance must be positive")
	}
	if c.Ledger.MaxNights < c.Ledger.MinNights {
		return fmt.Errorf("ledger.max_nights %d is below min_nights %d", c.Ledger.MaxNights, c.Ledger.MinNights)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "frontdesk"
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = 5000
	}
	if c.Ledger.GracePeriod == "" {
		c.Ledger.GracePeriod = (models.DefaultGracePeriod * time.Second).String()
	}
	if c.Ledger.Tolerance == "" {
		c.Ledger.Tolerance = ledger.Tolerance.String()
	}
	if c.Ledger.MinNights == 0 {
		c.Ledger.MinNights = models.DefaultMinNights
	}
	if c.Ledger.MaxNights == 0 {
		c.Ledger.MaxNights = models.DefaultMaxNights
	}
	if c.Ledger.MaxAdvanceDays == 0 {
		c.Ledger.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if c.Ledger.Currency == "" {
		c.Ledger.Currency = "₱"
	}
	if c.Reconcile.Interval == "" {
		c.Reconcile.Interval = (models.DefaultReconcileInterval * time.Second).String()
	}
	if c.Redis.SummaryTTL == 0 {
		c.Redis.SummaryTTL = models.DefaultSummaryTTL
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "./data/backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "./data/exports"
	}
}

// Rules converts the validated ledger section into ledger limits.
func (c LedgerConfig) Rules() ledger.Rules {
	rules := ledger.DefaultRules()
	if d, err := time.ParseDuration(c.GracePeriod); err == nil {
		rules.GracePeriod = d
	}
	if tol, err := decimal.NewFromString(c.Tolerance); err == nil && tol.IsPositive() {
		rules.Tolerance = tol
	}
	if c.MinNights > 0 {
		rules.MinNights = c.MinNights
	}
	if c.MaxNights > 0 {
		rules.MaxNights = c.MaxNights
	}
	if c.MaxAdvanceDays > 0 {
		rules.MaxAdvanceDays = c.MaxAdvanceDays
	}
	return rules
}

// ReconcileInterval returns the parsed interval of the background pass.
func (c ReconcileConfig) ReconcileInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return models.DefaultReconcileInterval * time.Second
	}
	return d
}
