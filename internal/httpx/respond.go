package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leostore/storefront/internal/checkout"
	"github.com/leostore/storefront/internal/database"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the storage sentinels onto HTTP statuses. Unknown
// errors become a 500 without leaking internals.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrCategoryNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrCustomerNotFound),
		errors.Is(err, database.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrCategoryNotEmpty),
		errors.Is(err, database.ErrOrderHasPayments),
		errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case database.IsUniqueViolation(err):
		writeError(w, http.StatusConflict, "already exists")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type placementFailure struct {
	ErrorKind          checkout.Kind `json:"error_kind"`
	Message            string        `json:"message"`
	OffendingProductID int64         `json:"offending_product_id,omitempty"`
}

// writePlacementError presents the typed checkout error verbatim; it already
// carries the actionable detail.
func writePlacementError(w http.ResponseWriter, pe *checkout.PlacementError) {
	status := http.StatusUnprocessableEntity
	switch pe.Kind {
	case checkout.KindEmptyCart, checkout.KindInvalidQuantity:
		status = http.StatusBadRequest
	case checkout.KindProductNotFound:
		status = http.StatusNotFound
	case checkout.KindInsufficientStock:
		status = http.StatusConflict
	case checkout.KindPersistence:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, placementFailure{
		ErrorKind:          pe.Kind,
		Message:            pe.Error(),
		OffendingProductID: pe.ProductID,
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// customerID resolves the caller. A real deployment puts an auth middleware
// in front that sets this header from a session or token.
func customerID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-Customer-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
