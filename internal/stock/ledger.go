package stock

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leostore/storefront/internal/database"
)

// Execer is satisfied by both *sql.DB and *sql.Tx. Checkout binds the ledger
// to its placement transaction; standalone callers may bind it to the pool.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Reservation is a claim of Quantity units of one product, taken by Reserve
// and either made permanent by the surrounding order commit or handed back
// via Release. The released flag makes Release a no-op the second time.
type Reservation struct {
	ProductID int64
	Quantity  int
	released  bool
}

// Released reports whether this reservation has already been handed back.
func (r *Reservation) Released() bool {
	return r == nil || r.released
}

// Ledger owns every mutation of products.stock_quantity. Nothing else in the
// service writes that column, which is what keeps it non-negative under
// concurrent checkouts.
type Ledger struct {
	ex Execer
}

func NewLedger(ex Execer) *Ledger {
	return &Ledger{ex: ex}
}

// Reserve claims quantity units of a product or fails with
// ErrInsufficientStock. The conditional decrement is a single statement, so
// two concurrent reservations that together exceed stock resolve to exactly
// one winner without any locking on our side.
func (l *Ledger) Reserve(ctx context.Context, productID int64, quantity int) (*Reservation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reserve %d units of product %d: quantity must be positive", quantity, productID)
	}

	result, err := l.ex.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return nil, fmt.Errorf("reserve stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("product %d: %w", productID, database.ErrInsufficientStock)
	}

	return &Reservation{ProductID: productID, Quantity: quantity}, nil
}

// Release credits back exactly the reserved quantity. Calling it on a nil or
// already-released reservation does nothing, so a failure path may release
// unconditionally without double-crediting stock.
func (l *Ledger) Release(ctx context.Context, r *Reservation) error {
	if r.Released() {
		return nil
	}

	_, err := l.ex.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		r.Quantity, r.ProductID)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	r.released = true
	return nil
}
