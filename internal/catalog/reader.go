package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/leostore/storefront/internal/database"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so the same lookup serves
// storefront browsing and the placement transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NotFoundError identifies which product in a multi-id lookup was missing or
// off sale. It unwraps to database.ErrProductNotFound.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %d: %v", e.ID, database.ErrProductNotFound)
}

func (e *NotFoundError) Unwrap() error {
	return database.ErrProductNotFound
}

// ProductInfo is the authoritative price/stock snapshot for one product.
// Checkout discards whatever the client claims and uses these values.
type ProductInfo struct {
	ID            int64
	Price         decimal.Decimal
	StockQuantity int
}

type Reader struct {
	q Querier
}

func NewReader(q Querier) *Reader {
	return &Reader{q: q}
}

// ProductsForSale returns the current price and stock-on-hand for every
// requested id. Any id that does not exist, or that refers to an inactive
// product, fails the whole lookup with ErrProductNotFound.
func (r *Reader) ProductsForSale(ctx context.Context, ids []int64) (map[int64]ProductInfo, error) {
	if len(ids) == 0 {
		return map[int64]ProductInfo{}, nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, price, stock_quantity
		 FROM products
		 WHERE id = ANY($1) AND active`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query products for sale: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]ProductInfo, len(ids))
	for rows.Next() {
		var info ProductInfo
		if err := rows.Scan(&info.ID, &info.Price, &info.StockQuantity); err != nil {
			return nil, fmt.Errorf("scan product info: %w", err)
		}
		found[info.ID] = info
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, &NotFoundError{ID: id}
		}
	}

	return found, nil
}
