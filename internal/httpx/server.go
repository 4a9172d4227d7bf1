package httpx

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leostore/storefront/internal/cart"
	"github.com/leostore/storefront/internal/checkout"
	"github.com/leostore/storefront/internal/events"
)

// Handler bundles the dependencies of every route. Auth is out of scope:
// the customer identity arrives pre-resolved in the X-Customer-ID header,
// standing in for whatever authentication layer fronts this service.
type Handler struct {
	DB       *sql.DB
	Cart     *cart.Store
	Checkout *checkout.Service
	Events   *events.Publisher
	Logger   *slog.Logger
}

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Storefront.
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/categories", h.listCategories)
	r.Get("/categories/{id}", h.getCategory)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Put("/items", h.setCartLine)
		r.Delete("/items/{productID}", h.removeCartLine)
		r.Delete("/", h.clearCart)
	})

	r.Post("/checkout", h.placeOrder)
	r.Get("/orders", h.listMyOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/payments/history", h.listMyPayments)

	// Back-office.
	r.Route("/admin", func(r chi.Router) {
		r.Post("/products", h.adminCreateProduct)
		r.Put("/products/{id}", h.adminUpdateProduct)
		r.Delete("/products/{id}", h.adminDeactivateProduct)

		r.Post("/categories", h.adminCreateCategory)
		r.Put("/categories/{id}", h.adminRenameCategory)
		r.Delete("/categories/{id}", h.adminDeleteCategory)

		r.Get("/orders", h.adminListOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Patch("/orders/{id}/status", h.adminUpdateOrderStatus)
		r.Delete("/orders/{id}", h.adminDeleteOrder)

		r.Post("/customers", h.adminCreateCustomer)
		r.Get("/customers", h.adminListCustomers)
		r.Get("/customers/{id}", h.adminGetCustomer)
		r.Put("/customers/{id}", h.adminUpdateCustomer)
		r.Delete("/customers/{id}", h.adminDeleteCustomer)

		r.Post("/payments", h.adminRecordPayment)
		r.Get("/orders/{id}/payments", h.adminListOrderPayments)
	})

	return r
}
