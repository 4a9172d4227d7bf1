package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/leostore/storefront/internal/models"
)

// Runner is satisfied by *sql.Tx (the normal case: checkout passes its
// placement transaction) and by *sql.DB.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Writer struct {
	run Runner
}

func NewWriter(run Runner) *Writer {
	return &Writer{run: run}
}

// NewOrderNumber builds the public order reference. The numeric id stays a
// database concern; this is what customers and events see.
func NewOrderNumber() string {
	return "ORD-" + uuid.NewString()
}

// Write persists the order header and all its items. Within a transaction
// the rows become visible together or not at all; the order id is assigned
// by the insert and filled into o.
func (w *Writer) Write(ctx context.Context, o *models.Order) error {
	if o.OrderNumber == "" {
		o.OrderNumber = NewOrderNumber()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}

	err := w.run.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, customer_id, status, total_amount, shipping_address, phone, payment_method, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		 RETURNING id, created_at, updated_at, version`,
		o.OrderNumber, o.CustomerID, o.Status, o.TotalAmount, o.ShippingAddress, o.Phone, o.PaymentMethod).Scan(
		&o.ID,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Version,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID

		err := w.run.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING id, created_at`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal).Scan(
			&item.ID,
			&item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}
