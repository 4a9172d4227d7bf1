package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/leostore/storefront/internal/catalog"
	"github.com/leostore/storefront/internal/database"
	"github.com/leostore/storefront/internal/models"
	"github.com/leostore/storefront/internal/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products map[int64]catalog.ProductInfo
	calls    int
}

func (f *fakeCatalog) ProductsForSale(ctx context.Context, ids []int64) (map[int64]catalog.ProductInfo, error) {
	f.calls++
	out := make(map[int64]catalog.ProductInfo, len(ids))
	for _, id := range ids {
		info, ok := f.products[id]
		if !ok {
			return nil, &catalog.NotFoundError{ID: id}
		}
		out[id] = info
	}
	return out, nil
}

type fakeLedger struct {
	stock    map[int64]int
	reserved []int64
	released []int64
}

func (f *fakeLedger) Reserve(ctx context.Context, productID int64, quantity int) (*stock.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.stock[productID] < quantity {
		return nil, database.ErrInsufficientStock
	}
	f.stock[productID] -= quantity
	f.reserved = append(f.reserved, productID)
	return &stock.Reservation{ProductID: productID, Quantity: quantity}, nil
}

func (f *fakeLedger) Release(ctx context.Context, r *stock.Reservation) error {
	f.stock[r.ProductID] += r.Quantity
	f.released = append(f.released, r.ProductID)
	return nil
}

type fakeWriter struct {
	fail   error
	orders []*models.Order
}

func (f *fakeWriter) Write(ctx context.Context, o *models.Order) error {
	if f.fail != nil {
		return f.fail
	}
	o.ID = int64(len(f.orders) + 1)
	f.orders = append(f.orders, o)
	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func twoProductFixture() (*fakeCatalog, *fakeLedger, *fakeWriter) {
	cat := &fakeCatalog{products: map[int64]catalog.ProductInfo{
		1: {ID: 1, Price: price("9.99"), StockQuantity: 10},
		2: {ID: 2, Price: price("25.00"), StockQuantity: 5},
	}}
	led := &fakeLedger{stock: map[int64]int{1: 10, 2: 5}}
	return cat, led, &fakeWriter{}
}

func TestPlaceEmptyCart(t *testing.T) {
	// normalizeLines runs before PlaceOrder opens a transaction, so an empty
	// cart is rejected without touching storage.
	lines, perr := normalizeLines(nil)
	require.Nil(t, lines)
	require.NotNil(t, perr)
	assert.Equal(t, KindEmptyCart, perr.Kind)
}

func TestPlaceInvalidQuantity(t *testing.T) {
	_, perr := normalizeLines([]CartLine{{ProductID: 7, Quantity: 0}})
	require.NotNil(t, perr)
	assert.Equal(t, KindInvalidQuantity, perr.Kind)
	assert.Equal(t, int64(7), perr.ProductID)
}

func TestNormalizeMergesAndSorts(t *testing.T) {
	lines, perr := normalizeLines([]CartLine{
		{ProductID: 9, Quantity: 1},
		{ProductID: 3, Quantity: 2},
		{ProductID: 9, Quantity: 4},
	})
	require.Nil(t, perr)
	require.Equal(t, []CartLine{{ProductID: 3, Quantity: 2}, {ProductID: 9, Quantity: 5}}, lines)
}

func TestPlaceHappyPath(t *testing.T) {
	cat, led, w := twoProductFixture()

	order, err := place(context.Background(), cat, led, w, PlacementRequest{
		CustomerID:      42,
		Lines:           []CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(price("44.98")), "total %s", order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].UnitPrice.Equal(price("9.99")))
	assert.True(t, order.Items[0].Subtotal.Equal(price("19.98")))

	assert.Equal(t, []int64{1, 2}, led.reserved, "reservations must be taken in ascending product id order")
	assert.Empty(t, led.released)
	assert.Equal(t, 8, led.stock[1])
	assert.Equal(t, 4, led.stock[2])
}

func TestPlaceUsesCatalogPriceNotClientPrice(t *testing.T) {
	// The request shape has no price field at all; the persisted prices can
	// only come from the catalog.
	cat, led, w := twoProductFixture()
	cat.products[1] = catalog.ProductInfo{ID: 1, Price: price("100.00"), StockQuantity: 10}

	order, err := place(context.Background(), cat, led, w, PlacementRequest{
		CustomerID: 1,
		Lines:      []CartLine{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(price("300.00")))
	assert.True(t, order.Items[0].UnitPrice.Equal(price("100.00")))
}

func TestPlaceProductNotFoundBeforeAnyReservation(t *testing.T) {
	cat, led, w := twoProductFixture()

	_, err := place(context.Background(), cat, led, w, PlacementRequest{
		CustomerID: 1,
		Lines:      []CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 99, Quantity: 1}},
	})

	pe, ok := AsPlacementError(err)
	require.True(t, ok)
	assert.Equal(t, KindProductNotFound, pe.Kind)
	assert.Equal(t, int64(99), pe.ProductID)
	assert.Empty(t, led.reserved, "lookup failure must precede any reservation")
	assert.Equal(t, 10, led.stock[1])
	assert.Empty(t, w.orders)
}

func TestPlaceInsufficientStockReleasesPriorReservations(t *testing.T) {
	cat, led, w := twoProductFixture()

	_, err := place(context.Background(), cat, led, w, PlacementRequest{
		CustomerID: 1,
		Lines:      []CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 50}},
	})

	pe, ok := AsPlacementError(err)
	require.True(t, ok)
	assert.Equal(t, KindInsufficientStock, pe.Kind)
	assert.Equal(t, int64(2), pe.ProductID)

	assert.Equal(t, []int64{1}, led.reserved)
	assert.Equal(t, []int64{1}, led.released, "the prior reservation must be handed back")
	assert.Equal(t, 10, led.stock[1])
	assert.Equal(t, 5, led.stock[2])
	assert.Empty(t, w.orders)
}

func TestPlaceWriterFailureReleasesEverything(t *testing.T) {
	cat, led, w := twoProductFixture()
	w.fail = errors.New("disk on fire")

	_, err := place(context.Background(), cat, led, w, PlacementRequest{
		CustomerID: 1,
		Lines:      []CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
	})

	pe, ok := AsPlacementError(err)
	require.True(t, ok)
	assert.Equal(t, KindPersistence, pe.Kind)

	assert.ElementsMatch(t, []int64{1, 2}, led.released)
	assert.Equal(t, 10, led.stock[1])
	assert.Equal(t, 5, led.stock[2])
}

func TestPlaceCancelledContextStillReleases(t *testing.T) {
	cat, led, w := twoProductFixture()

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel after the first reservation succeeds.
	led.stock[1] = 10
	first := true
	wrapped := &cancellingLedger{inner: led, onFirst: func() {
		if first {
			first = false
			cancel()
		}
	}}

	_, err := place(ctx, cat, wrapped, w, PlacementRequest{
		CustomerID: 1,
		Lines:      []CartLine{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Equal(t, []int64{1}, led.released, "cancellation must still release taken reservations")
	assert.Equal(t, 10, led.stock[1])
	assert.Empty(t, w.orders)
}

type cancellingLedger struct {
	inner   *fakeLedger
	onFirst func()
}

func (c *cancellingLedger) Reserve(ctx context.Context, productID int64, quantity int) (*stock.Reservation, error) {
	r, err := c.inner.Reserve(ctx, productID, quantity)
	c.onFirst()
	return r, err
}

func (c *cancellingLedger) Release(ctx context.Context, r *stock.Reservation) error {
	return c.inner.Release(ctx, r)
}

func TestPlaceReleasesExactlyOncePerReservation(t *testing.T) {
	cat, led, w := twoProductFixture()
	w.fail = errors.New("storage fault")

	_, err := place(context.Background(), cat, led, w, PlacementRequest{
		CustomerID: 1,
		Lines:      []CartLine{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}},
	})
	require.Error(t, err)

	assert.Len(t, led.released, 2)
	assert.ElementsMatch(t, []int64{1, 2}, led.released)
}
