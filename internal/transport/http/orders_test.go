package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BuseglY/order-management-api/internal/app"
	"github.com/BuseglY/order-management-api/internal/domain"
)

func orderFixture() domain.Order {
	return domain.Order{
		ID:              7,
		CustomerName:    "Ada Lovelace",
		CustomerEmail:   "ada@example.com",
		ShippingAddress: "12 Analytical Row",
		TotalAmount:     decimal.RequireFromString("35.00"),
		Status:          domain.OrderStatusPending,
		CreatedAt:       time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Items: []domain.OrderItem{
			{ID: 1, OrderID: 7, ProductID: 1, ProductName: "Widget", Quantity: 3, UnitPrice: decimal.RequireFromString("5.00")},
			{ID: 2, OrderID: 7, ProductID: 2, ProductName: "Gadget", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
	}
}

func TestHandleCreateOrder(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		orders := &fakeOrderManager{
			createOrder: func(_ context.Context, in app.CreateOrderInput) (domain.Order, error) {
				if in.CustomerEmail != "ada@example.com" {
					t.Errorf("email = %q", in.CustomerEmail)
				}
				if len(in.Items) != 2 {
					t.Errorf("got %d items, want 2", len(in.Items))
				}
				return orderFixture(), nil
			},
		}
		body := `{
			"customer_name": "Ada Lovelace",
			"customer_email": "ada@example.com",
			"shipping_address": "12 Analytical Row",
			"items": [
				{"product_id": 1, "quantity": 3},
				{"product_id": 2, "quantity": 2}
			]
		}`
		rec := doRequest(t, testRouter(nil, orders, nil), http.MethodPost, "/orders", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}
		var resp orderResponse
		decodeResponse(t, rec, &resp)
		if resp.ID != 7 || resp.Status != "pending" {
			t.Errorf("unexpected order: %+v", resp)
		}
		if len(resp.Items) != 2 {
			t.Fatalf("got %d items, want 2", len(resp.Items))
		}
		if got := resp.Items[0].TotalPrice.String(); got != "15" {
			t.Errorf("line total = %s, want 15", got)
		}
	})

	t.Run("stock validation failure returns every line", func(t *testing.T) {
		t.Parallel()
		orders := &fakeOrderManager{
			createOrder: func(context.Context, app.CreateOrderInput) (domain.Order, error) {
				return domain.Order{}, &app.StockValidationFailedError{Result: domain.StockValidationResult{
					Errors: []domain.StockValidationError{
						{ProductID: 1, ProductName: "Widget", RequestedQuantity: 6, AvailableStock: 3, Reason: domain.StockErrorInsufficientStock},
						{ProductID: 9, RequestedQuantity: 1, Reason: domain.StockErrorProductNotFound},
					},
				}}
			},
		}
		body := `{"customer_name":"Ada","customer_email":"ada@example.com","items":[{"product_id":1,"quantity":6}]}`
		rec := doRequest(t, testRouter(nil, orders, nil), http.MethodPost, "/orders", body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
		}
		var resp errorResponse
		decodeResponse(t, rec, &resp)
		if resp.Code != codeInsufficientStock {
			t.Errorf("code = %s, want %s", resp.Code, codeInsufficientStock)
		}
		if len(resp.Details) != 2 {
			t.Fatalf("got %d details, want 2", len(resp.Details))
		}
		if resp.Details[0].AvailableStock != 3 || resp.Details[0].RequestedQuantity != 6 {
			t.Errorf("unexpected detail: %+v", resp.Details[0])
		}
	})

	t.Run("lock timeout maps to service unavailable", func(t *testing.T) {
		t.Parallel()
		orders := &fakeOrderManager{
			createOrder: func(context.Context, app.CreateOrderInput) (domain.Order, error) {
				return domain.Order{}, domain.ErrStockLockTimeout
			},
		}
		body := `{"customer_name":"Ada","customer_email":"ada@example.com","items":[{"product_id":1,"quantity":1}]}`
		rec := doRequest(t, testRouter(nil, orders, nil), http.MethodPost, "/orders", body)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		if code := errorCode(t, rec); code != codeStockLockTimeout {
			t.Errorf("code = %s, want %s", code, codeStockLockTimeout)
		}
	})

	t.Run("missing items", func(t *testing.T) {
		t.Parallel()
		body := `{"customer_name":"Ada","customer_email":"ada@example.com","items":[]}`
		rec := doRequest(t, testRouter(nil, nil, nil), http.MethodPost, "/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()
		body := `{"customer_name":"Ada","customer_email":"not-an-email","items":[{"product_id":1,"quantity":1}]}`
		rec := doRequest(t, testRouter(nil, nil, nil), http.MethodPost, "/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if code := errorCode(t, rec); code != codeValidationFailed {
			t.Errorf("code = %s, want %s", code, codeValidationFailed)
		}
	})
}

func TestHandleGetOrder(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		orders := &fakeOrderManager{
			getOrderByID: func(_ context.Context, id int64) (domain.Order, error) {
				if id != 7 {
					t.Errorf("id = %d, want 7", id)
				}
				return orderFixture(), nil
			},
		}
		rec := doRequest(t, testRouter(nil, orders, nil), http.MethodGet, "/orders/7", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp orderResponse
		decodeResponse(t, rec, &resp)
		if got := resp.TotalAmount.String(); got != "35" {
			t.Errorf("total = %s, want 35", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		orders := &fakeOrderManager{
			getOrderByID: func(context.Context, int64) (domain.Order, error) {
				return domain.Order{}, domain.ErrOrderNotFound
			},
		}
		rec := doRequest(t, testRouter(nil, orders, nil), http.MethodGet, "/orders/99", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if code := errorCode(t, rec); code != codeOrderNotFound {
			t.Errorf("code = %s, want %s", code, codeOrderNotFound)
		}
	})
}

func TestHandleDeleteOrder(t *testing.T) {
	t.Parallel()
	orders := &fakeOrderManager{
		deleteOrder: func(_ context.Context, id int64) error {
			if id != 7 {
				t.Errorf("id = %d, want 7", id)
			}
			return nil
		},
	}
	rec := doRequest(t, testRouter(nil, orders, nil), http.MethodDelete, "/orders/7", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestHandleUpdateOrderStatus(t *testing.T) {
	t.Parallel()

	t.Run("updated", func(t *testing.T) {
		t.Parallel()
		orders := &fakeOrderManager{
			updateOrderStatus: func(_ context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
				if status != domain.OrderStatusConfirmed {
					t.Errorf("status = %s, want confirmed", status)
				}
				o := orderFixture()
				o.Status = status
				return o, nil
			},
		}
		rec := doRequest(t, testRouter(nil, orders, nil), http.MethodPut, "/orders/7/status", `{"status":"confirmed"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown status value", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, testRouter(nil, nil, nil), http.MethodPut, "/orders/7/status", `{"status":"teleported"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if code := errorCode(t, rec); code != codeInvalidStatus {
			t.Errorf("code = %s, want %s", code, codeInvalidStatus)
		}
	})

	t.Run("illegal transition", func(t *testing.T) {
		t.Parallel()
		orders := &fakeOrderManager{
			updateOrderStatus: func(context.Context, int64, domain.OrderStatus) (domain.Order, error) {
				return domain.Order{}, domain.ErrInvalidStatusTransition
			},
		}
		rec := doRequest(t, testRouter(nil, orders, nil), http.MethodPut, "/orders/7/status", `{"status":"delivered"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		if code := errorCode(t, rec); code != codeInvalidTransition {
			t.Errorf("code = %s, want %s", code, codeInvalidTransition)
		}
	})
}
