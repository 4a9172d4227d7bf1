package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/leostore/storefront/internal/catalog"
	"github.com/leostore/storefront/internal/checkout"
	"github.com/leostore/storefront/internal/orders"
	"github.com/leostore/storefront/internal/payments"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	if catStr := r.URL.Query().Get("category_id"); catStr != "" {
		catID, err := strconv.ParseInt(catStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		result, err := catalog.ListProductsByCategory(r.Context(), h.DB, catID, page, pageSize)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	result, err := catalog.ListProducts(r.Context(), h.DB, page, pageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := catalog.GetProduct(r.Context(), h.DB, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := catalog.ListCategories(r.Context(), h.DB)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := catalog.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing customer identity")
		return
	}

	lines, err := h.Cart.Get(r.Context(), custID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": lines})
}

func (h *Handler) setCartLine(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing customer identity")
		return
	}

	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product_id")
		return
	}

	// Reject ids that are not on sale so carts cannot accumulate junk.
	if _, err := catalog.GetProduct(r.Context(), h.DB, req.ProductID); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Cart.SetLine(r.Context(), custID, req.ProductID, req.Quantity); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing customer identity")
		return
	}

	productID, err := pathID(r, "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.Cart.RemoveLine(r.Context(), custID, productID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing customer identity")
		return
	}

	if err := h.Cart.Clear(r.Context(), custID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutRequest struct {
	Items           []checkout.CartLine `json:"items"`
	ShippingAddress string              `json:"shipping_address"`
	Phone           string              `json:"phone"`
	PaymentMethod   string              `json:"payment_method"`
}

type checkoutResponse struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing customer identity")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShippingAddress == "" {
		writeError(w, http.StatusBadRequest, "shipping_address is required")
		return
	}

	// An empty items list falls back to the server-side cart.
	items := req.Items
	if len(items) == 0 {
		lines, err := h.Cart.Get(r.Context(), custID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		for _, line := range lines {
			items = append(items, checkout.CartLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}
	}

	order, err := h.Checkout.PlaceOrder(r.Context(), checkout.PlacementRequest{
		CustomerID:      custID,
		Lines:           items,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		if pe, ok := checkout.AsPlacementError(err); ok {
			writePlacementError(w, pe)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Best effort: a stale cart must not undo a committed order.
	_ = h.Cart.Clear(r.Context(), custID)

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount.String(),
		Status:      order.Status,
	})
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing customer identity")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	page, err := orders.ListOrdersCursor(r.Context(), h.DB, custID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := orders.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) listMyPayments(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing customer identity")
		return
	}

	items, err := payments.ListByCustomer(r.Context(), h.DB, custID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": items})
}
