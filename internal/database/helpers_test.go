package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"frontdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func setupTestDB(t *testing.T) *DB {
	db, _ := setupTestDBWithClock(t)
	return db
}

func setupTestDBWithClock(t *testing.T) (*DB, *testClock) {
	t.Helper()
	clock := &testClock{t: testNow}
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), 5000, &logger, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, clock
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(offset int) time.Time {
	return time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func seedRoom(t *testing.T, db *DB, number, rate string) *models.Room {
	t.Helper()
	room := &models.Room{Number: number, Type: models.RoomDouble, Capacity: 2, Rate: d(rate)}
	require.NoError(t, db.CreateRoom(context.Background(), room))
	return room
}

func seedGuest(t *testing.T, db *DB) *models.Guest {
	t.Helper()
	guest := &models.Guest{Name: "Maria Santos", Email: "maria@example.com", Phone: "+63 917 000 0000"}
	require.NoError(t, db.CreateGuest(context.Background(), guest))
	return guest
}

// seedBooking books room for [day(from), day(to)).
func seedBooking(t *testing.T, db *DB, room *models.Room, guest *models.Guest, from, to int) *models.Booking {
	t.Helper()
	b := &models.Booking{RoomID: room.ID, GuestID: guest.ID, CheckIn: day(from), CheckOut: day(to)}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func pay(amount string) models.PaymentInput {
	return models.PaymentInput{Amount: d(amount), Method: "cash"}
}
