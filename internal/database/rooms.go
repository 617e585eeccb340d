package database

import (
	"context"
	"fmt"
	"time"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"

	"github.com/shopspring/decimal"
)

const roomColumns = `id, number, room_type, capacity, rate, is_available, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }, r *models.Room) error {
	return row.Scan(&r.ID, &r.Number, &r.Type, &r.Capacity, &r.Rate, &r.IsAvailable, &r.CreatedAt, &r.UpdatedAt)
}

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.Type == "" {
		room.Type = models.RoomSingle
	}
	if room.Capacity <= 0 {
		room.Capacity = 1
	}
	if err := ledger.CheckRate(room.Rate); err != nil {
		return fmt.Errorf("room %s rate %s: %w", room.Number, room.Rate, err)
	}

	n := db.now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO rooms (number, room_type, capacity, rate, is_available, created_at, updated_at)
        VALUES (?, ?, ?, ?, 1, ?, ?)`,
		room.Number, room.Type, room.Capacity, room.Rate.String(), ts(n), ts(n))
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get room id: %w", err)
	}
	room.ID = id
	room.IsAvailable = true
	room.CreatedAt = stamp(n)
	room.UpdatedAt = room.CreatedAt
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	return getRoom(ctx, db, id)
}

func getRoom(ctx context.Context, q querier, id int64) (*models.Room, error) {
	var r models.Room
	row := q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	if err := scanRoom(row, &r); err != nil {
		return nil, notFound(err, "room", id)
	}
	return &r, nil
}

func (db *DB) ListRooms(ctx context.Context) ([]models.Room, error) {
	return listRooms(ctx, db)
}

func listRooms(ctx context.Context, q querier) ([]models.Room, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var r models.Room
		if err := scanRoom(rows, &r); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// UpdateRoomRate changes the nightly rate. Existing bookings keep their stored
// charge until RecalculateTotals or FixRoomCharges runs.
func (db *DB) UpdateRoomRate(ctx context.Context, id int64, rate decimal.Decimal) error {
	if err := ledger.CheckRate(rate); err != nil {
		return fmt.Errorf("room %d rate %s: %w", id, rate, err)
	}
	res, err := db.ExecContext(ctx, `UPDATE rooms SET rate = ?, updated_at = ? WHERE id = ?`,
		rate.String(), ts(db.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update room rate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("room %d: %w", id, ErrNotFound)
	}
	return nil
}

func setRoomAvailable(ctx context.Context, q querier, roomID int64, available bool, at string) error {
	_, err := q.ExecContext(ctx, `UPDATE rooms SET is_available = ?, updated_at = ? WHERE id = ?`,
		available, at, roomID)
	if err != nil {
		return fmt.Errorf("failed to update room %d availability: %w", roomID, err)
	}
	return nil
}

// releaseRoom marks the room available unless a Pending or Checked In booking
// covers at.
func releaseRoom(ctx context.Context, q querier, roomID int64, at time.Time) error {
	var holding int
	err := q.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM bookings
        WHERE room_id = ? AND status IN (?, ?) AND check_in <= ? AND check_out > ?`,
		roomID, models.StatusPending, models.StatusCheckedIn, ts(at), ts(at)).Scan(&holding)
	if err != nil {
		return fmt.Errorf("failed to check room %d occupancy: %w", roomID, err)
	}
	if holding > 0 {
		return nil
	}
	return setRoomAvailable(ctx, q, roomID, true, ts(at))
}
