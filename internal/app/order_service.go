package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BuseglY/order-management-api/internal/clock"
	"github.com/BuseglY/order-management-api/internal/domain"
	"github.com/BuseglY/order-management-api/internal/events"
	"github.com/BuseglY/order-management-api/internal/metrics"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order *domain.Order) error
	CreateOrderItems(ctx context.Context, items []domain.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus, updatedAt time.Time) error
	GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
}

// StockCoordinator is the slice of the stock service the order manager
// needs: the combined check-and-decrement for creation and the compensating
// release for deletion. Its verdict is authoritative.
type StockCoordinator interface {
	ValidateAndReserve(ctx context.Context, items []domain.ReservationItem) (domain.StockValidationResult, error)
	Release(ctx context.Context, items []domain.ReservationItem) error
}

// StockValidationFailedError aborts order creation and carries every failing
// line so the caller can report them all at once.
type StockValidationFailedError struct {
	Result domain.StockValidationResult
}

func (e *StockValidationFailedError) Error() string {
	return "stock validation failed: " + e.Result.ErrorMessage()
}

type OrderService struct {
	repo      OrderRepository
	stock     StockCoordinator
	clock     clock.Clock
	logger    *slog.Logger
	publisher events.Publisher
}

func NewOrderService(repo OrderRepository, stock StockCoordinator, clk clock.Clock, logger *slog.Logger, publisher events.Publisher) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{
		repo:      repo,
		stock:     stock,
		clock:     clk,
		logger:    logger,
		publisher: publisher,
	}
}

type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	Items           []domain.ReservationItem
}

// CreateOrder runs the whole order creation inside a single transaction:
// reserve stock under the coordinator lock, persist the order with the
// validated total, then persist the lines with the unit prices captured from
// the same locked product rows. Any failure rolls the transaction back,
// which also undoes the stock decrement.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := checkItems(in.Items); err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	var orderID int64

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		result, err := s.stock.ValidateAndReserve(txCtx, in.Items)
		if err != nil {
			return err
		}
		if !result.Valid {
			return &StockValidationFailedError{Result: result}
		}

		order := domain.Order{
			CustomerName:    in.CustomerName,
			CustomerEmail:   in.CustomerEmail,
			ShippingAddress: in.ShippingAddress,
			TotalAmount:     result.TotalValue,
			Status:          domain.OrderStatusPending,
			CreatedAt:       now,
		}
		if err := s.repo.CreateOrder(txCtx, &order); err != nil {
			return err
		}

		products, err := s.repo.GetProductsByIDs(txCtx, productIDs(in.Items))
		if err != nil {
			return fmt.Errorf("load products for order lines: %w", err)
		}
		prices := make(map[int64]domain.Product, len(products))
		for _, p := range products {
			prices[p.ID] = p
		}

		lines := make([]domain.OrderItem, 0, len(in.Items))
		for _, item := range in.Items {
			product, ok := prices[item.ProductID]
			if !ok {
				return fmt.Errorf("%w: product %d", domain.ErrProductNotFound, item.ProductID)
			}
			lines = append(lines, domain.OrderItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			})
		}
		if err := s.repo.CreateOrderItems(txCtx, lines); err != nil {
			return err
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	created, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load created order: %w", err)
	}

	metrics.OrdersCreated.Inc()
	s.logger.InfoContext(ctx, "order created",
		"order_id", created.ID,
		"customer_email", created.CustomerEmail,
		"total", created.TotalAmount.String(),
	)
	s.publishOrderCreated(ctx, created)

	return created, nil
}

// GetOrders returns every order with its lines, newest first.
func (s *OrderService) GetOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *OrderService) GetOrderByID(ctx context.Context, id int64) (domain.Order, error) {
	if id <= 0 {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.repo.GetOrderByID(ctx, id)
}

// DeleteOrder removes an order and cascades its lines. Unless the order was
// delivered, reserved stock is released first, inside the same transaction:
// if the delete fails afterwards the rollback undoes the release too.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidID
	}

	var released bool
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderByID(txCtx, id)
		if err != nil {
			return err
		}

		if order.Status != domain.OrderStatusDelivered {
			items := make([]domain.ReservationItem, 0, len(order.Items))
			for _, line := range order.Items {
				items = append(items, domain.ReservationItem{ProductID: line.ProductID, Quantity: line.Quantity})
			}
			if len(items) > 0 {
				if err := s.stock.Release(txCtx, items); err != nil {
					return fmt.Errorf("release stock for order %d: %w", id, err)
				}
				released = true
			}
		}

		return s.repo.DeleteOrder(txCtx, id)
	})
	if err != nil {
		return err
	}

	metrics.OrdersDeleted.Inc()
	s.logger.InfoContext(ctx, "order deleted", "order_id", id, "stock_released", released)
	s.publish(ctx, events.TypeOrderDeleted, id, events.OrderDeleted{OrderID: id, StockReleased: released})

	return nil
}

// UpdateOrderStatus moves an order along the status graph. Illegal
// transitions are rejected rather than overwritten.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	if id <= 0 {
		return domain.Order{}, domain.ErrInvalidID
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !domain.CanTransition(order.Status, status) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, order.Status, status)
	}

	now := s.clock.Now()
	if err := s.repo.UpdateOrderStatus(ctx, id, status, now); err != nil {
		return domain.Order{}, err
	}

	updated, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load updated order: %w", err)
	}

	s.logger.InfoContext(ctx, "order status updated", "order_id", id, "from", order.Status, "to", status)
	s.publish(ctx, events.TypeOrderStatusChanged, id, events.OrderStatusChanged{
		OrderID: id,
		From:    string(order.Status),
		To:      string(status),
	})

	return updated, nil
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order domain.Order) {
	lines := make([]events.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, events.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
		})
	}
	s.publish(ctx, events.TypeOrderCreated, order.ID, events.OrderCreated{
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount.String(),
		Items:         lines,
	})
}

func (s *OrderService) publish(ctx context.Context, eventType string, orderID int64, payload any) {
	if err := s.publisher.Publish(ctx, eventType, strconv.FormatInt(orderID, 10), payload); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "event_type", eventType, "error", err)
	}
}
