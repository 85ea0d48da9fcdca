package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/BuseglY/order-management-api/internal/domain"
)

// StockChecker exposes the coordinator's advisory read-side operations.
// Mutating operations (reserve/release) are only reachable through the order
// lifecycle.
type StockChecker interface {
	Validate(ctx context.Context, items []domain.ReservationItem) (domain.StockValidationResult, error)
	IsAvailable(ctx context.Context, productID int64, quantity int) (bool, error)
	LowStockAlerts(ctx context.Context, threshold int) ([]domain.LowStockAlert, error)
}

type validateStockRequest struct {
	Items []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type validateStockResponse struct {
	IsValid    bool                 `json:"is_valid"`
	TotalValue decimal.Decimal      `json:"total_value"`
	Errors     []stockErrorResponse `json:"errors,omitempty"`
}

type availabilityResponse struct {
	ProductID         int64 `json:"product_id"`
	RequestedQuantity int   `json:"requested_quantity"`
	IsAvailable       bool  `json:"is_available"`
}

// HandleValidateStock runs a snapshot validation. The verdict is advisory:
// only order creation validates authoritatively, under the stock lock.
func HandleValidateStock(svc StockChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateStockRequest
		if !decodeBody(w, r, &req) {
			return
		}
		items := make([]domain.ReservationItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, domain.ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		result, err := svc.Validate(r.Context(), items)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, validateStockResponse{
			IsValid:    result.Valid,
			TotalValue: result.TotalValue,
			Errors:     stockErrorDetails(result.Errors),
		})
	}
}

func HandleCheckAvailability(svc StockChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		quantity := 1
		if raw := r.URL.Query().Get("quantity"); raw != "" {
			q, err := strconv.Atoi(raw)
			if err != nil || q <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, "quantity must be a positive integer")
				return
			}
			quantity = q
		}

		available, err := svc.IsAvailable(r.Context(), id, quantity)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{
			ProductID:         id,
			RequestedQuantity: quantity,
			IsAvailable:       available,
		})
	}
}

func HandleLowStockAlerts(svc StockChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold := 0
		if raw := r.URL.Query().Get("threshold"); raw != "" {
			t, err := strconv.Atoi(raw)
			if err != nil || t < 0 {
				writeError(w, http.StatusBadRequest, codeValidationFailed, "threshold must be a non-negative integer")
				return
			}
			threshold = t
		}

		alerts, err := svc.LowStockAlerts(r.Context(), threshold)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, alerts)
	}
}
