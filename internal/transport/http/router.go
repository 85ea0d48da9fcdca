package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BuseglY/order-management-api/internal/metrics"
)

// NewRouter assembles the API surface.
func NewRouter(logger *slog.Logger, products ProductCatalog, orders OrderManager, stock StockChecker) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Metrics)
	r.Use(middleware.Recoverer)

	r.Get("/health", HealthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/products", func(r chi.Router) {
		r.Get("/", HandleListProducts(products))
		r.Post("/", HandleCreateProduct(products))
		r.Get("/{id}", HandleGetProduct(products))
		r.Put("/{id}", HandleUpdateProduct(products))
		r.Delete("/{id}", HandleDeleteProduct(products))
		r.Put("/{id}/stock", HandleUpdateProductStock(products))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", HandleListOrders(orders))
		r.Post("/", HandleCreateOrder(orders))
		r.Get("/{id}", HandleGetOrder(orders))
		r.Delete("/{id}", HandleDeleteOrder(orders))
		r.Put("/{id}/status", HandleUpdateOrderStatus(orders))
	})

	r.Route("/stock", func(r chi.Router) {
		r.Post("/validate", HandleValidateStock(stock))
		r.Get("/check-availability/{id}", HandleCheckAvailability(stock))
		r.Get("/low-stock-alerts", HandleLowStockAlerts(stock))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}
