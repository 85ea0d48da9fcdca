package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReservationItem is one requested (product, quantity) pair in a stock
// validation, reservation or release.
type ReservationItem struct {
	ProductID int64
	Quantity  int
}

type StockErrorReason string

const (
	StockErrorProductNotFound   StockErrorReason = "product_not_found"
	StockErrorInsufficientStock StockErrorReason = "insufficient_stock"
)

// StockValidationError describes a single failing line. Errors are collected
// per line, not short-circuited, so callers see every problem at once.
type StockValidationError struct {
	ProductID         int64
	ProductName       string
	RequestedQuantity int
	AvailableStock    int
	Reason            StockErrorReason
}

func (e StockValidationError) String() string {
	if e.Reason == StockErrorProductNotFound {
		return fmt.Sprintf("product %d not found", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.ProductName, e.AvailableStock, e.RequestedQuantity)
}

// StockValidationResult is the coordinator's verdict on a batch of items.
// TotalValue is only meaningful when Valid is true.
type StockValidationResult struct {
	Valid      bool
	TotalValue decimal.Decimal
	Errors     []StockValidationError
}

// ErrorMessage joins all line errors into a single human-readable string.
func (r StockValidationResult) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

// LowStockAlert reports a product at or below the alert threshold.
type LowStockAlert struct {
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name"`
	CurrentStock int       `json:"current_stock"`
	Threshold    int       `json:"threshold"`
	AlertAt      time.Time `json:"alert_at"`
}
