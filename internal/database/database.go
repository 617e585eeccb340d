package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"frontdesk/internal/ledger"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("booking status does not allow this action")

	// errDryRun rolls a transaction back after its full code path ran.
	errDryRun = errors.New("dry run")
)

const timeLayout = "2006-01-02 15:04:05"

// DB is the sqlite-backed booking ledger store.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
	rules  ledger.Rules
	now    func() time.Time
}

type Option func(*DB)

// WithRules overrides the ledger limits.
func WithRules(rules ledger.Rules) Option {
	return func(db *DB) { db.rules = rules }
}

// WithClock replaces the UTC wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewDB(path string, busyTimeoutMS int, logger *zerolog.Logger, opts ...Option) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 5000
	}

	// BEGIN IMMEDIATE takes the write lock up front, so ledger transactions
	// that read totals and then write serialize instead of racing.
	dsn := fmt.Sprintf("%s?_txlock=immediate&_busy_timeout=%d&_foreign_keys=on", path, busyTimeoutMS)
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		logger: logger,
		rules:  ledger.DefaultRules(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(db)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            number TEXT UNIQUE NOT NULL,
            room_type TEXT NOT NULL DEFAULT 'single',
            capacity INTEGER NOT NULL DEFAULT 1,
            rate TEXT NOT NULL,
            is_available BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS guests (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT,
            phone TEXT,
            address TEXT,
            notes TEXT,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room_id INTEGER NOT NULL REFERENCES rooms(id),
            guest_id INTEGER NOT NULL REFERENCES guests(id),
            check_in DATETIME NOT NULL,
            check_out DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'Pending',
            is_checked_in BOOLEAN NOT NULL DEFAULT 0,
            checked_out_at DATETIME,
            room_charge TEXT NOT NULL DEFAULT '0',
            payment_status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            CHECK (check_out > check_in)
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
            amount TEXT NOT NULL,
            method TEXT NOT NULL,
            transaction_id TEXT UNIQUE NOT NULL,
            paid_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS meal_charges (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
            item TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT 'Breakfast',
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price TEXT NOT NULL,
            line_total TEXT NOT NULL,
            charged_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_room_stay ON bookings(room_id, check_in, check_out)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_booking_id ON payments(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_meal_charges_booking_id ON meal_charges(booking_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Rules returns the ledger limits this store enforces.
func (db *DB) Rules() ledger.Rules {
	return db.rules
}

// Now returns the store's current time.
func (db *DB) Now() time.Time {
	return db.now()
}

// inTx runs fn in one transaction. A busy or locked database gets exactly one
// immediate re-run, which re-reads and re-validates everything.
func (db *DB) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	err := db.runTx(ctx, fn)
	if isBusy(err) {
		db.logger.Warn().Err(err).Str("op", op).Msg("database busy, retrying transaction once")
		err = db.runTx(ctx, fn)
	}
	return err
}

func (db *DB) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func ts(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// stamp is t as it reads back from a DATETIME column.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %d: %w", what, id, err)
}
