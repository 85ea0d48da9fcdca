package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BuseglY/order-management-api/internal/app"
	"github.com/BuseglY/order-management-api/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Function-field fakes so each test wires only the calls it expects.

type fakeCatalog struct {
	getProducts    func(ctx context.Context) ([]domain.Product, error)
	getProductByID func(ctx context.Context, id int64) (domain.Product, error)
	createProduct  func(ctx context.Context, p domain.Product) (domain.Product, error)
	updateProduct  func(ctx context.Context, p domain.Product) (domain.Product, error)
	deleteProduct  func(ctx context.Context, id int64) error
	updateStock    func(ctx context.Context, id int64, stock int) (domain.Product, error)
}

func (f *fakeCatalog) GetProducts(ctx context.Context) ([]domain.Product, error) {
	return f.getProducts(ctx)
}

func (f *fakeCatalog) GetProductByID(ctx context.Context, id int64) (domain.Product, error) {
	return f.getProductByID(ctx, id)
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	return f.createProduct(ctx, p)
}

func (f *fakeCatalog) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	return f.updateProduct(ctx, p)
}

func (f *fakeCatalog) DeleteProduct(ctx context.Context, id int64) error {
	return f.deleteProduct(ctx, id)
}

func (f *fakeCatalog) UpdateStock(ctx context.Context, id int64, stock int) (domain.Product, error) {
	return f.updateStock(ctx, id, stock)
}

type fakeOrderManager struct {
	createOrder       func(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	getOrders         func(ctx context.Context) ([]domain.Order, error)
	getOrderByID      func(ctx context.Context, id int64) (domain.Order, error)
	deleteOrder       func(ctx context.Context, id int64) error
	updateOrderStatus func(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error)
}

func (f *fakeOrderManager) CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error) {
	return f.createOrder(ctx, in)
}

func (f *fakeOrderManager) GetOrders(ctx context.Context) ([]domain.Order, error) {
	return f.getOrders(ctx)
}

func (f *fakeOrderManager) GetOrderByID(ctx context.Context, id int64) (domain.Order, error) {
	return f.getOrderByID(ctx, id)
}

func (f *fakeOrderManager) DeleteOrder(ctx context.Context, id int64) error {
	return f.deleteOrder(ctx, id)
}

func (f *fakeOrderManager) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	return f.updateOrderStatus(ctx, id, status)
}

type fakeStockChecker struct {
	validate       func(ctx context.Context, items []domain.ReservationItem) (domain.StockValidationResult, error)
	isAvailable    func(ctx context.Context, productID int64, quantity int) (bool, error)
	lowStockAlerts func(ctx context.Context, threshold int) ([]domain.LowStockAlert, error)
}

func (f *fakeStockChecker) Validate(ctx context.Context, items []domain.ReservationItem) (domain.StockValidationResult, error) {
	return f.validate(ctx, items)
}

func (f *fakeStockChecker) IsAvailable(ctx context.Context, productID int64, quantity int) (bool, error) {
	return f.isAvailable(ctx, productID, quantity)
}

func (f *fakeStockChecker) LowStockAlerts(ctx context.Context, threshold int) ([]domain.LowStockAlert, error) {
	return f.lowStockAlerts(ctx, threshold)
}

func testRouter(catalog ProductCatalog, orders OrderManager, stock StockChecker) http.Handler {
	if catalog == nil {
		catalog = &fakeCatalog{}
	}
	if orders == nil {
		orders = &fakeOrderManager{}
	}
	if stock == nil {
		stock = &fakeStockChecker{}
	}
	return NewRouter(discardLogger(), catalog, orders, stock)
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	decodeResponse(t, rec, &resp)
	return resp.Code
}
