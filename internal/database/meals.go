package database

import (
	"context"
	"database/sql"
	"fmt"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"
)

const mealColumns = `id, booking_id, item, category, quantity, unit_price, line_total, charged_at`

func scanMeal(row interface{ Scan(...any) error }, m *models.MealCharge) error {
	return row.Scan(&m.ID, &m.BookingID, &m.Item, &m.Category, &m.Quantity, &m.UnitPrice, &m.LineTotal, &m.ChargedAt)
}

func getMealCharge(ctx context.Context, q querier, id int64) (*models.MealCharge, error) {
	var m models.MealCharge
	row := q.QueryRowContext(ctx, `SELECT `+mealColumns+` FROM meal_charges WHERE id = ?`, id)
	if err := scanMeal(row, &m); err != nil {
		return nil, notFound(err, "meal charge", id)
	}
	return &m, nil
}

func (db *DB) GetMealCharge(ctx context.Context, id int64) (*models.MealCharge, error) {
	return getMealCharge(ctx, db, id)
}

func (db *DB) ListMealCharges(ctx context.Context, bookingID int64) ([]models.MealCharge, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+mealColumns+` FROM meal_charges WHERE booking_id = ? ORDER BY charged_at, id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal charges: %w", err)
	}
	defer rows.Close()

	var meals []models.MealCharge
	for rows.Next() {
		var m models.MealCharge
		if err := scanMeal(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan meal charge: %w", err)
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

func normalizeMeal(in *models.MealInput) error {
	if in.Category == "" {
		in.Category = models.MealBreakfast
	}
	if !models.IsMealCategory(in.Category) {
		return fmt.Errorf("unknown meal category %q", in.Category)
	}
	if in.Item == "" {
		return fmt.Errorf("meal item is required")
	}
	return nil
}

// ApplyMealCharge adds a meal line to an open booking. A new charge can move a
// paid booking back to partial.
func (db *DB) ApplyMealCharge(ctx context.Context, bookingID int64, in models.MealInput) (*models.MealCharge, error) {
	total, err := ledger.CheckMealCharge(in)
	if err != nil {
		return nil, err
	}
	if err := normalizeMeal(&in); err != nil {
		return nil, err
	}

	var meal *models.MealCharge
	err = db.inTx(ctx, "apply_meal_charge", func(tx *sql.Tx) error {
		at := db.now()
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !ledger.CanAcceptCharges(b, at, db.rules) {
			return fmt.Errorf("booking %d: %w", bookingID, ledger.ErrBookingClosed)
		}

		res, err := tx.ExecContext(ctx, `
            INSERT INTO meal_charges (booking_id, item, category, quantity, unit_price, line_total, charged_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
			bookingID, in.Item, in.Category, in.Quantity, in.UnitPrice.String(), total.String(), ts(at))
		if err != nil {
			return fmt.Errorf("failed to insert meal charge: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get meal charge id: %w", err)
		}

		if _, err := db.applyStatus(ctx, tx, b, at); err != nil {
			return err
		}
		meal = &models.MealCharge{
			ID:        id,
			BookingID: bookingID,
			Item:      in.Item,
			Category:  in.Category,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			LineTotal: total,
			ChargedAt: stamp(at),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meal, nil
}

func (db *DB) UpdateMealCharge(ctx context.Context, chargeID int64, in models.MealInput) (*models.MealCharge, error) {
	total, err := ledger.CheckMealCharge(in)
	if err != nil {
		return nil, err
	}

	var meal *models.MealCharge
	err = db.inTx(ctx, "update_meal_charge", func(tx *sql.Tx) error {
		at := db.now()
		m, err := getMealCharge(ctx, tx, chargeID)
		if err != nil {
			return err
		}
		if in.Item == "" {
			in.Item = m.Item
		}
		if in.Category == "" {
			in.Category = m.Category
		}
		if err := normalizeMeal(&in); err != nil {
			return err
		}
		b, err := getBooking(ctx, tx, m.BookingID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE meal_charges SET item = ?, category = ?, quantity = ?, unit_price = ?, line_total = ?
            WHERE id = ?`,
			in.Item, in.Category, in.Quantity, in.UnitPrice.String(), total.String(), m.ID)
		if err != nil {
			return fmt.Errorf("failed to update meal charge: %w", err)
		}
		if _, err := db.applyStatus(ctx, tx, b, at); err != nil {
			return err
		}

		m.Item, m.Category, m.Quantity = in.Item, in.Category, in.Quantity
		m.UnitPrice, m.LineTotal = in.UnitPrice, total
		meal = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meal, nil
}

// RetractMealCharge deletes a meal line and recomputes the booking status.
func (db *DB) RetractMealCharge(ctx context.Context, chargeID int64) (models.Summary, error) {
	var sum models.Summary
	err := db.inTx(ctx, "retract_meal_charge", func(tx *sql.Tx) error {
		at := db.now()
		m, err := getMealCharge(ctx, tx, chargeID)
		if err != nil {
			return err
		}
		b, err := getBooking(ctx, tx, m.BookingID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_charges WHERE id = ?`, m.ID); err != nil {
			return fmt.Errorf("failed to delete meal charge: %w", err)
		}
		sum, err = db.applyStatus(ctx, tx, b, at)
		return err
	})
	return sum, err
}
