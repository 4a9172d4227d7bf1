package checkout

import (
	"errors"
	"fmt"
)

// Kind is the set of terminal failure modes of a placement attempt. Every
// kind means nothing was persisted and no reservation is left behind.
type Kind string

const (
	KindEmptyCart         Kind = "EMPTY_CART"
	KindInvalidQuantity   Kind = "INVALID_QUANTITY"
	KindProductNotFound   Kind = "PRODUCT_NOT_FOUND"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindPersistence       Kind = "PERSISTENCE_ERROR"
)

// PlacementError is the typed result of a failed PlaceOrder call. ProductID
// names the offending product for the kinds that have one.
type PlacementError struct {
	Kind      Kind
	ProductID int64
	Err       error
}

func (e *PlacementError) Error() string {
	switch e.Kind {
	case KindEmptyCart:
		return "cart is empty"
	case KindInvalidQuantity:
		return fmt.Sprintf("invalid quantity for product %d", e.ProductID)
	case KindProductNotFound:
		return fmt.Sprintf("product %d not found", e.ProductID)
	case KindInsufficientStock:
		return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
	default:
		if e.Err != nil {
			return fmt.Sprintf("order could not be persisted: %v", e.Err)
		}
		return "order could not be persisted"
	}
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}

// AsPlacementError extracts the typed error from an error chain.
func AsPlacementError(err error) (*PlacementError, bool) {
	var pe *PlacementError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
