package payments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leostore/storefront/internal/database"
	"github.com/leostore/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// RecordParams captures a payment as an opaque external fact. The service
// does not talk to any gateway; whatever reference the gateway produced is
// stored verbatim.
type RecordParams struct {
	OrderID   int64
	Amount    decimal.Decimal
	Method    string
	Reference string
}

func Record(ctx context.Context, db *sql.DB, p RecordParams) (*models.Payment, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, p.OrderID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return nil, database.ErrOrderNotFound
	}

	payment := &models.Payment{}
	query := `
		INSERT INTO payments (order_id, amount, method, status, reference, paid_at)
		VALUES ($1, $2, $3, 'recorded', $4, NOW())
		RETURNING id, order_id, amount, method, status, reference, paid_at`

	err = db.QueryRowContext(ctx, query, p.OrderID, p.Amount, p.Method, p.Reference).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&payment.Reference,
		&payment.PaidAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	return payment, nil
}

func ListByOrder(ctx context.Context, db *sql.DB, orderID int64) ([]models.Payment, error) {
	query := `
		SELECT id, order_id, amount, method, status, reference, paid_at
		FROM payments
		WHERE order_id = $1
		ORDER BY paid_at DESC, id DESC`

	return list(ctx, db, query, orderID)
}

// ListByCustomer is the payment-history view: every payment against any of
// the customer's orders, newest first.
func ListByCustomer(ctx context.Context, db *sql.DB, customerID int64) ([]models.Payment, error) {
	query := `
		SELECT p.id, p.order_id, p.amount, p.method, p.status, p.reference, p.paid_at
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE o.customer_id = $1
		ORDER BY p.paid_at DESC, p.id DESC`

	return list(ctx, db, query, customerID)
}

func list(ctx context.Context, db *sql.DB, query string, arg interface{}) ([]models.Payment, error) {
	rows, err := db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var items []models.Payment
	for rows.Next() {
		var payment models.Payment
		err := rows.Scan(
			&payment.ID,
			&payment.OrderID,
			&payment.Amount,
			&payment.Method,
			&payment.Status,
			&payment.Reference,
			&payment.PaidAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		items = append(items, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}
