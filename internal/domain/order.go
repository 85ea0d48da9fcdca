package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:    {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed:  {OrderStatusProcessing: true, OrderStatusCancelled: true},
	OrderStatusProcessing: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:    {OrderStatusDelivered: true, OrderStatusCancelled: true},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus maps a wire value onto a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validNext[status]; !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// CanTransition reports whether the status graph allows moving from one
// status to another. Terminal statuses allow no further moves.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return len(validNext[s]) == 0
}

// Order is a customer purchase. TotalAmount is fixed at creation time as the
// sum of line totals and is never recomputed from the catalog afterwards.
type Order struct {
	ID              int64
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	Items           []OrderItem
}

// OrderItem is one line of an order. UnitPrice is the catalog price captured
// when the order was created; later price changes do not affect it.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// TotalPrice is the line total at the captured unit price.
func (i OrderItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
