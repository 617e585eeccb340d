package database

import (
	"context"
	"database/sql"
	"fmt"

	"frontdesk/internal/models"
)

func (db *DB) CreateGuest(ctx context.Context, guest *models.Guest) error {
	if guest.Name == "" {
		return fmt.Errorf("guest name is required")
	}

	n := db.now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO guests (name, email, phone, address, notes, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		guest.Name, guest.Email, guest.Phone, guest.Address, guest.Notes, ts(n))
	if err != nil {
		return fmt.Errorf("failed to create guest: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get guest id: %w", err)
	}
	guest.ID = id
	guest.CreatedAt = stamp(n)
	return nil
}

func (db *DB) GetGuest(ctx context.Context, id int64) (*models.Guest, error) {
	var (
		g                            models.Guest
		email, phone, address, notes sql.NullString
	)
	err := db.QueryRowContext(ctx, `
        SELECT id, name, email, phone, address, notes, created_at
        FROM guests WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &email, &phone, &address, &notes, &g.CreatedAt)
	if err != nil {
		return nil, notFound(err, "guest", id)
	}
	g.Email = email.String
	g.Phone = phone.String
	g.Address = address.String
	g.Notes = notes.String
	return &g, nil
}
