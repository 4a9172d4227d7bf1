package checkout

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"

	"github.com/leostore/storefront/internal/catalog"
	"github.com/leostore/storefront/internal/database"
	"github.com/leostore/storefront/internal/models"
	"github.com/leostore/storefront/internal/orders"
	"github.com/leostore/storefront/internal/stock"
	"github.com/shopspring/decimal"
)

// CartLine is the client-supplied quantity request for one product. There is
// deliberately no price field: quantities are trusted, prices never are.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlacementRequest struct {
	CustomerID      int64
	Lines           []CartLine
	ShippingAddress string
	Phone           string
	PaymentMethod   string
}

// Catalog, Ledger and Writer are the three collaborators of a placement
// attempt. Production binds all of them to one database transaction; tests
// substitute fakes.
type Catalog interface {
	ProductsForSale(ctx context.Context, ids []int64) (map[int64]catalog.ProductInfo, error)
}

type Ledger interface {
	Reserve(ctx context.Context, productID int64, quantity int) (*stock.Reservation, error)
	Release(ctx context.Context, r *stock.Reservation) error
}

type Writer interface {
	Write(ctx context.Context, o *models.Order) error
}

// Events receives a notification after an order has durably committed.
// Publishing is fire-and-forget; it can never fail a placement.
type Events interface {
	OrderCreated(o *models.Order)
}

type Service struct {
	db     *sql.DB
	events Events
	logger *slog.Logger
}

func NewService(db *sql.DB, events Events, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, events: events, logger: logger}
}

// PlaceOrder validates the cart, re-prices it from the catalog, reserves
// stock for every line and persists the order, all inside one transaction.
// On success the assigned order is returned; on any failure nothing is
// persisted, no reservation survives, and the error is a *PlacementError.
func (s *Service) PlaceOrder(ctx context.Context, req PlacementRequest) (*models.Order, error) {
	lines, perr := normalizeLines(req.Lines)
	if perr != nil {
		return nil, perr
	}
	req.Lines = lines

	var order *models.Order
	err := database.WithRetry(ctx, s.db, database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		o, placeErr := place(ctx, catalog.NewReader(tx), stock.NewLedger(tx), orders.NewWriter(tx), req)
		if placeErr != nil {
			return placeErr
		}
		order = o
		return nil
	})
	if err != nil {
		if pe, ok := AsPlacementError(err); ok {
			return nil, pe
		}
		return nil, &PlacementError{Kind: KindPersistence, Err: err}
	}

	s.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"customer_id", order.CustomerID,
		"total", order.TotalAmount.String(),
		"lines", len(order.Items),
	)

	if s.events != nil {
		s.events.OrderCreated(order)
	}

	return order, nil
}

// place runs one placement attempt against the given collaborators. Every
// exit path with a non-nil error releases all reservations taken so far,
// including exits caused by caller cancellation.
func place(ctx context.Context, cat Catalog, led Ledger, w Writer, req PlacementRequest) (o *models.Order, err error) {
	ids := make([]int64, len(req.Lines))
	for i, line := range req.Lines {
		ids[i] = line.ProductID
	}

	infos, err := cat.ProductsForSale(ctx, ids)
	if err != nil {
		var nf *catalog.NotFoundError
		if errors.As(err, &nf) {
			return nil, &PlacementError{Kind: KindProductNotFound, ProductID: nf.ID, Err: err}
		}
		return nil, &PlacementError{Kind: KindPersistence, Err: err}
	}

	var taken []*stock.Reservation
	defer func() {
		if err == nil {
			return
		}
		// The release context must outlive the caller's: reservations are
		// scoped to this call, not to the request that started it.
		rctx := context.WithoutCancel(ctx)
		for i := len(taken) - 1; i >= 0; i-- {
			_ = led.Release(rctx, taken[i])
		}
	}()

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Lines))

	// Lines arrive sorted by ascending product id, which gives a total order
	// across concurrent placements over overlapping product sets.
	for _, line := range req.Lines {
		res, rerr := led.Reserve(ctx, line.ProductID, line.Quantity)
		if rerr != nil {
			if errors.Is(rerr, database.ErrInsufficientStock) {
				return nil, &PlacementError{Kind: KindInsufficientStock, ProductID: line.ProductID, Err: rerr}
			}
			return nil, &PlacementError{Kind: KindPersistence, Err: rerr}
		}
		taken = append(taken, res)

		info := infos[line.ProductID]
		subtotal := info.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: info.Price,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}

	order := &models.Order{
		CustomerID:      req.CustomerID,
		Status:          models.OrderStatusPending,
		TotalAmount:     total,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
	}

	if werr := w.Write(ctx, order); werr != nil {
		return nil, &PlacementError{Kind: KindPersistence, Err: werr}
	}

	return order, nil
}

// normalizeLines rejects empty carts and non-positive quantities before any
// I/O happens, merges duplicate product lines and sorts by product id.
func normalizeLines(lines []CartLine) ([]CartLine, *PlacementError) {
	if len(lines) == 0 {
		return nil, &PlacementError{Kind: KindEmptyCart}
	}

	merged := make(map[int64]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &PlacementError{Kind: KindInvalidQuantity, ProductID: line.ProductID}
		}
		merged[line.ProductID] += line.Quantity
	}

	out := make([]CartLine, 0, len(merged))
	for id, qty := range merged {
		out = append(out, CartLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })

	return out, nil
}
