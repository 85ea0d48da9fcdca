// Package events publishes order and stock lifecycle events as JSON
// envelopes on Kafka. Publishing is best-effort: the surrounding business
// transaction never fails because an event could not be written.
package events

import (
	"context"
	"time"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderDeleted       = "order.deleted"
	TypeStockReleaseFailed = "stock.release_failed"
)

const (
	TopicOrders      = "orders.events"
	TopicStockAlerts = "stock.alerts"
)

// TopicFor routes an event type to its topic.
func TopicFor(eventType string) string {
	if eventType == TypeStockReleaseFailed {
		return TopicStockAlerts
	}
	return TopicOrders
}

// Envelope wraps every published payload with routing metadata.
type Envelope struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Producer   string    `json:"producer"`
	Payload    any       `json:"payload"`
}

// Publisher emits a domain event keyed for partition ordering.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// OrderLine is one order line as carried in event payloads. Prices are
// strings to keep fixed-point values exact on the wire.
type OrderLine struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price,omitempty"`
}

type OrderCreated struct {
	OrderID       int64       `json:"order_id"`
	CustomerEmail string      `json:"customer_email"`
	TotalAmount   string      `json:"total_amount"`
	Items         []OrderLine `json:"items"`
}

type OrderStatusChanged struct {
	OrderID int64  `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type OrderDeleted struct {
	OrderID       int64 `json:"order_id"`
	StockReleased bool  `json:"stock_released"`
}

// StockReleaseFailed is a reconciliation alert: the quantities listed were
// reserved but could not be returned to inventory.
type StockReleaseFailed struct {
	Items []OrderLine `json:"items"`
	Error string      `json:"error"`
}

// Nop discards all events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
