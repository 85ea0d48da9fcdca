package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BuseglY/order-management-api/internal/app"
	"github.com/BuseglY/order-management-api/internal/domain"
)

// OrderManager is the slice of the order service the order handlers need.
type OrderManager interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	GetOrders(ctx context.Context) ([]domain.Order, error)
	GetOrderByID(ctx context.Context, id int64) (domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error)
}

type createOrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"required,max=100"`
	CustomerEmail   string             `json:"customer_email" validate:"required,email"`
	ShippingAddress string             `json:"shipping_address" validate:"max=500"`
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderItemResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	ShippingAddress string              `json:"shipping_address"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       *time.Time          `json:"updated_at,omitempty"`
	Items           []orderItemResponse `json:"items"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice(),
		})
	}
	return orderResponse{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		ShippingAddress: o.ShippingAddress,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           items,
	}
}

func HandleCreateOrder(svc OrderManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if !decodeBody(w, r, &req) {
			return
		}

		items := make([]domain.ReservationItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, domain.ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		order, err := svc.CreateOrder(r.Context(), app.CreateOrderInput{
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			ShippingAddress: req.ShippingAddress,
			Items:           items,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toOrderResponse(order))
	}
}

func HandleListOrders(svc OrderManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.GetOrders(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]orderResponse, 0, len(orders))
		for _, o := range orders {
			out = append(out, toOrderResponse(o))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func HandleGetOrder(svc OrderManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		order, err := svc.GetOrderByID(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}

func HandleDeleteOrder(svc OrderManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := svc.DeleteOrder(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleUpdateOrderStatus(svc OrderManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req updateStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}
		status, err := domain.ParseOrderStatus(req.Status)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		order, err := svc.UpdateOrderStatus(r.Context(), id, status)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}
