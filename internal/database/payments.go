package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"frontdesk/internal/ledger"
	"frontdesk/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultPaymentMethod = "cash"

const paymentColumns = `id, booking_id, amount, method, transaction_id, paid_at`

func scanPayment(row interface{ Scan(...any) error }, p *models.Payment) error {
	return row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.TransactionID, &p.PaidAt)
}

func getPayment(ctx context.Context, q querier, id int64) (*models.Payment, error) {
	var p models.Payment
	row := q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	if err := scanPayment(row, &p); err != nil {
		return nil, notFound(err, "payment", id)
	}
	return &p, nil
}

func (db *DB) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return getPayment(ctx, db, id)
}

func (db *DB) ListPayments(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = ? ORDER BY paid_at, id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// transactionTaken reports whether another payment already uses txID.
func transactionTaken(ctx context.Context, q querier, txID string, excludeID int64) (bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM payments WHERE transaction_id = ? AND id != ?`, txID, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check transaction id: %w", err)
	}
	return true, nil
}

// ApplyPayment records a payment against the booking. The balance is read and
// checked inside the same write transaction as the insert.
func (db *DB) ApplyPayment(ctx context.Context, bookingID int64, in models.PaymentInput) (*models.Payment, error) {
	if err := ledger.CheckAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.TransactionID == "" {
		in.TransactionID = uuid.NewString()
	}
	if in.Method == "" {
		in.Method = defaultPaymentMethod
	}

	var payment *models.Payment
	err := db.inTx(ctx, "apply_payment", func(tx *sql.Tx) error {
		at := db.now()
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !ledger.CanAcceptCharges(b, at, db.rules) {
			return fmt.Errorf("booking %d: %w", bookingID, ledger.ErrBookingClosed)
		}

		taken, err := transactionTaken(ctx, tx, in.TransactionID, 0)
		if err != nil {
			return err
		}
		if taken {
			return &ledger.DuplicateTransactionError{TransactionID: in.TransactionID}
		}

		sum, err := db.summarize(ctx, tx, b, at)
		if err != nil {
			return err
		}
		if err := ledger.CheckPayment(sum, in.Amount, decimal.Zero, db.rules); err != nil {
			return err
		}

		paidAt := in.PaidAt
		if paidAt.IsZero() {
			paidAt = at
		}
		res, err := tx.ExecContext(ctx, `
            INSERT INTO payments (booking_id, amount, method, transaction_id, paid_at)
            VALUES (?, ?, ?, ?, ?)`,
			bookingID, in.Amount.String(), in.Method, in.TransactionID, ts(paidAt))
		if err != nil {
			if isUniqueViolation(err) {
				return &ledger.DuplicateTransactionError{TransactionID: in.TransactionID}
			}
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get payment id: %w", err)
		}

		if _, err := db.applyStatus(ctx, tx, b, at); err != nil {
			return err
		}
		payment = &models.Payment{
			ID:            id,
			BookingID:     bookingID,
			Amount:        in.Amount,
			Method:        in.Method,
			TransactionID: in.TransactionID,
			PaidAt:        stamp(paidAt),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdatePayment edits an existing payment. The payment's old amount no longer
// counts toward the balance it is checked against.
func (db *DB) UpdatePayment(ctx context.Context, paymentID int64, in models.PaymentInput) (*models.Payment, error) {
	if err := ledger.CheckAmount(in.Amount); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := db.inTx(ctx, "update_payment", func(tx *sql.Tx) error {
		at := db.now()
		p, err := getPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		b, err := getBooking(ctx, tx, p.BookingID)
		if err != nil {
			return err
		}

		if in.TransactionID == "" {
			in.TransactionID = p.TransactionID
		}
		if in.Method == "" {
			in.Method = p.Method
		}
		if in.PaidAt.IsZero() {
			in.PaidAt = p.PaidAt
		}
		taken, err := transactionTaken(ctx, tx, in.TransactionID, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return &ledger.DuplicateTransactionError{TransactionID: in.TransactionID}
		}

		sum, err := db.summarize(ctx, tx, b, at)
		if err != nil {
			return err
		}
		if err := ledger.CheckPayment(sum, in.Amount, p.Amount, db.rules); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE payments SET amount = ?, method = ?, transaction_id = ?, paid_at = ?
            WHERE id = ?`,
			in.Amount.String(), in.Method, in.TransactionID, ts(in.PaidAt), p.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return &ledger.DuplicateTransactionError{TransactionID: in.TransactionID}
			}
			return fmt.Errorf("failed to update payment: %w", err)
		}

		if _, err := db.applyStatus(ctx, tx, b, at); err != nil {
			return err
		}
		p.Amount = in.Amount
		p.Method = in.Method
		p.TransactionID = in.TransactionID
		p.PaidAt = stamp(in.PaidAt)
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// RetractPayment deletes a payment and recomputes the booking status. It is
// always permitted.
func (db *DB) RetractPayment(ctx context.Context, paymentID int64) (models.Summary, error) {
	var sum models.Summary
	err := db.inTx(ctx, "retract_payment", func(tx *sql.Tx) error {
		at := db.now()
		p, err := getPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		b, err := getBooking(ctx, tx, p.BookingID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, p.ID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		sum, err = db.applyStatus(ctx, tx, b, at)
		return err
	})
	return sum, err
}
