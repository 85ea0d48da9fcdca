package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BuseglY/order-management-api/internal/app"
	"github.com/BuseglY/order-management-api/internal/domain"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeValidationFailed   = "validation_failed"
	codeInvalidID          = "invalid_id"
	codeInvalidQuantity    = "invalid_quantity"
	codeEmptyOrder         = "empty_order"
	codeInvalidPrice       = "invalid_price"
	codeInvalidStock       = "invalid_stock"
	codeInvalidStatus      = "invalid_status"
	codeProductNotFound    = "product_not_found"
	codeProductInUse       = "product_in_use"
	codeOrderNotFound      = "order_not_found"
	codeInsufficientStock  = "insufficient_stock"
	codeReservationFailed  = "reservation_failed"
	codeInvalidTransition = "invalid_status_transition"
	codeStockLockTimeout  = "stock_lock_timeout"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Error   string               `json:"error"`
	Code    string               `json:"code"`
	Details []stockErrorResponse `json:"details,omitempty"`
}

type stockErrorResponse struct {
	ProductID         int64  `json:"product_id"`
	ProductName       string `json:"product_name"`
	RequestedQuantity int    `json:"requested_quantity"`
	AvailableStock    int    `json:"available_stock"`
	Reason            string `json:"reason"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorDetails(w, status, code, msg, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, msg string, details []stockErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{Error: msg, Code: code, Details: details})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps domain errors onto stable HTTP codes. Stock
// validation failures carry every failing line in the details list.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *app.StockValidationFailedError
	if errors.As(err, &validationErr) {
		writeErrorDetails(w, http.StatusConflict, codeInsufficientStock,
			validationErr.Result.ErrorMessage(), stockErrorDetails(validationErr.Result.Errors))
		return
	}

	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, codeEmptyOrder, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
	case errors.Is(err, domain.ErrInvalidStock):
		writeError(w, http.StatusBadRequest, codeInvalidStock, err.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, codeInvalidStatus, err.Error())
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrProductInUse):
		writeError(w, http.StatusConflict, codeProductInUse, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrReservationFailed):
		writeError(w, http.StatusConflict, codeReservationFailed, err.Error())
	case errors.Is(err, domain.ErrStockLockTimeout):
		writeError(w, http.StatusServiceUnavailable, codeStockLockTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func stockErrorDetails(errs []domain.StockValidationError) []stockErrorResponse {
	details := make([]stockErrorResponse, 0, len(errs))
	for _, e := range errs {
		details = append(details, stockErrorResponse{
			ProductID:         e.ProductID,
			ProductName:       e.ProductName,
			RequestedQuantity: e.RequestedQuantity,
			AvailableStock:    e.AvailableStock,
			Reason:            string(e.Reason),
		})
	}
	return details
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
