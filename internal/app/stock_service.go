package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BuseglY/order-management-api/internal/clock"
	"github.com/BuseglY/order-management-api/internal/domain"
	"github.com/BuseglY/order-management-api/internal/events"
	"github.com/BuseglY/order-management-api/internal/metrics"
)

// StockRepository is the inventory store as seen by the coordinator.
// GetProductsForUpdate must return rows locked and ordered by ascending id;
// AdjustStock must refuse to take stock below zero.
type StockRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	GetProductsForUpdate(ctx context.Context, ids []int64) ([]domain.Product, error)
	AdjustStock(ctx context.Context, productID int64, delta int) error
	ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error)
}

// LowStockCache serves advisory low-stock reads. A nil cache disables it.
type LowStockCache interface {
	GetLowStock(ctx context.Context, threshold int) ([]domain.LowStockAlert, bool)
	SetLowStock(ctx context.Context, threshold int, alerts []domain.LowStockAlert) error
}

const (
	// DefaultLowStockThreshold applies when a caller passes no threshold.
	DefaultLowStockThreshold = 5

	defaultLockTimeout = 5 * time.Second
)

// StockService serializes every stock-mutating operation behind one global
// lock. Coarse by design: at most one validate/reserve/release runs at a
// time, regardless of which products it touches. Within the lock, products
// are always processed in ascending id order so row locks taken inside a
// transaction can never form a cycle across concurrent requests.
type StockService struct {
	repo        StockRepository
	clock       clock.Clock
	logger      *slog.Logger
	publisher   events.Publisher
	cache       LowStockCache
	lock        chan struct{}
	lockTimeout time.Duration
}

type StockServiceOption func(*StockService)

// WithLockTimeout bounds how long callers wait for the stock lock.
func WithLockTimeout(d time.Duration) StockServiceOption {
	return func(s *StockService) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithLowStockCache enables the advisory low-stock alert cache.
func WithLowStockCache(c LowStockCache) StockServiceOption {
	return func(s *StockService) {
		s.cache = c
	}
}

func NewStockService(repo StockRepository, clk clock.Clock, logger *slog.Logger, publisher events.Publisher, opts ...StockServiceOption) *StockService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	svc := &StockService{
		repo:        repo,
		clock:       clk,
		logger:      logger,
		publisher:   publisher,
		lock:        make(chan struct{}, 1),
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// acquire takes the global stock lock, bounded by the configured timeout so
// a stalled holder surfaces an error instead of blocking every stock
// operation forever.
func (s *StockService) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		metrics.StockLockTimeouts.Inc()
		return domain.ErrStockLockTimeout
	}
}

func (s *StockService) release() {
	<-s.lock
}

// Validate checks requested quantities against a snapshot of current stock.
// All failing lines are reported, and the total order value is computed from
// current prices. The snapshot is not authoritative under concurrency; use
// ValidateWithLock before acting on the verdict.
func (s *StockService) Validate(ctx context.Context, items []domain.ReservationItem) (domain.StockValidationResult, error) {
	if err := checkItems(items); err != nil {
		return domain.StockValidationResult{}, err
	}
	products, err := s.repo.GetProductsByIDs(ctx, productIDs(items))
	if err != nil {
		return domain.StockValidationResult{}, fmt.Errorf("load products: %w", err)
	}
	return evaluate(items, products), nil
}

// ValidateWithLock validates under the global stock lock, re-reading stock
// immediately before the check. Inside a transaction the read also takes row
// locks (ascending id order), which keeps the verdict authoritative until
// that transaction commits.
func (s *StockService) ValidateWithLock(ctx context.Context, items []domain.ReservationItem) (domain.StockValidationResult, error) {
	if err := checkItems(items); err != nil {
		return domain.StockValidationResult{}, err
	}
	if err := s.acquire(ctx); err != nil {
		return domain.StockValidationResult{}, err
	}
	defer s.release()

	return s.validateFresh(ctx, items)
}

func (s *StockService) validateFresh(ctx context.Context, items []domain.ReservationItem) (domain.StockValidationResult, error) {
	products, err := s.repo.GetProductsForUpdate(ctx, productIDs(items))
	if err != nil {
		return domain.StockValidationResult{}, fmt.Errorf("load products for update: %w", err)
	}
	return evaluate(items, products), nil
}

// Reserve re-validates and, only when every line passes, decrements stock
// for the whole batch. Runs in its own transaction when the context carries
// none, so a partial decrement can never survive a failure.
func (s *StockService) Reserve(ctx context.Context, items []domain.ReservationItem) error {
	if err := checkItems(items); err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		return s.reserveLocked(txCtx, items)
	})
}

func (s *StockService) reserveLocked(ctx context.Context, items []domain.ReservationItem) error {
	result, err := s.validateFresh(ctx, items)
	if err != nil {
		return err
	}
	if !result.Valid {
		metrics.ReservationConflicts.Inc()
		return fmt.Errorf("%w: %s", domain.ErrReservationFailed, result.ErrorMessage())
	}
	for _, item := range sortedByProduct(items) {
		if err := s.repo.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			return fmt.Errorf("reserve product %d: %w", item.ProductID, err)
		}
	}
	s.logger.InfoContext(ctx, "stock reserved", "items", len(items))
	return nil
}

// ValidateAndReserve is the order-creation path: one lock acquisition covers
// the fresh validation and the decrement, so no other reservation can slip
// between check and act. An invalid result is returned with a nil error; the
// caller aborts its transaction.
func (s *StockService) ValidateAndReserve(ctx context.Context, items []domain.ReservationItem) (domain.StockValidationResult, error) {
	if err := checkItems(items); err != nil {
		return domain.StockValidationResult{}, err
	}
	if err := s.acquire(ctx); err != nil {
		return domain.StockValidationResult{}, err
	}
	defer s.release()

	result, err := s.validateFresh(ctx, items)
	if err != nil {
		return domain.StockValidationResult{}, err
	}
	if !result.Valid {
		metrics.ReservationConflicts.Inc()
		return result, nil
	}
	for _, item := range sortedByProduct(items) {
		if err := s.repo.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			return domain.StockValidationResult{}, fmt.Errorf("reserve product %d: %w", item.ProductID, err)
		}
	}
	return result, nil
}

// Release returns reserved quantities to inventory. Compensating action for
// cancellations and deletions; the caller must invoke it at most once per
// reservation. A failed release is never swallowed: it is logged, counted
// and published as a reconciliation alert, because it represents stock
// permanently lost to the inventory count.
func (s *StockService) Release(ctx context.Context, items []domain.ReservationItem) error {
	if err := checkItems(items); err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		for _, item := range sortedByProduct(items) {
			if err := s.repo.AdjustStock(txCtx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("release product %d: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.StockReleaseFailures.Inc()
		s.logger.ErrorContext(ctx, "stock release failed", "error", err, "items", len(items))
		s.alertReleaseFailure(ctx, items, err)
		return err
	}

	metrics.StockReleased.Inc()
	s.logger.InfoContext(ctx, "stock released", "items", len(items))
	return nil
}

func (s *StockService) alertReleaseFailure(ctx context.Context, items []domain.ReservationItem, cause error) {
	lines := make([]events.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, events.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	payload := events.StockReleaseFailed{Items: lines, Error: cause.Error()}
	if err := s.publisher.Publish(ctx, events.TypeStockReleaseFailed, "stock-release", payload); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish release alert", "error", err)
	}
}

// IsAvailable is a best-effort point-in-time check with no side effects and
// no locking. Callers must not treat a true result as a guarantee.
func (s *StockService) IsAvailable(ctx context.Context, productID int64, quantity int) (bool, error) {
	if productID <= 0 {
		return false, domain.ErrInvalidID
	}
	if quantity <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	products, err := s.repo.GetProductsByIDs(ctx, []int64{productID})
	if err != nil {
		return false, fmt.Errorf("load product: %w", err)
	}
	if len(products) == 0 {
		return false, nil
	}
	return products[0].Stock >= quantity, nil
}

// LowStockAlerts reports every product with stock at or below the threshold.
// Advisory and unlocked; served through a short-TTL cache when one is
// configured.
func (s *StockService) LowStockAlerts(ctx context.Context, threshold int) ([]domain.LowStockAlert, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	if s.cache != nil {
		if alerts, ok := s.cache.GetLowStock(ctx, threshold); ok {
			return alerts, nil
		}
	}

	products, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}

	now := s.clock.Now()
	alerts := make([]domain.LowStockAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, domain.LowStockAlert{
			ProductID:    p.ID,
			ProductName:  p.Name,
			CurrentStock: p.Stock,
			Threshold:    threshold,
			AlertAt:      now,
		})
	}

	if s.cache != nil {
		if err := s.cache.SetLowStock(ctx, threshold, alerts); err != nil {
			s.logger.WarnContext(ctx, "low-stock cache write failed", "error", err)
		}
	}
	return alerts, nil
}

// checkItems rejects malformed batches before any stock is touched.
func checkItems(items []domain.ReservationItem) error {
	if len(items) == 0 {
		return domain.ErrEmptyOrder
	}
	for _, item := range items {
		if item.ProductID <= 0 {
			return domain.ErrInvalidID
		}
		if item.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	return nil
}

func productIDs(items []domain.ReservationItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// sortedByProduct returns a copy ordered by ascending product id, keeping
// mutation order consistent across concurrent multi-item requests.
func sortedByProduct(items []domain.ReservationItem) []domain.ReservationItem {
	sorted := append([]domain.ReservationItem{}, items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}

// evaluate applies the stock checks to a loaded product set, collecting an
// error per failing line and accumulating the total over passing ones.
func evaluate(items []domain.ReservationItem, products []domain.Product) domain.StockValidationResult {
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	result := domain.StockValidationResult{Valid: true, TotalValue: decimal.Zero}
	for _, item := range sortedByProduct(items) {
		product, ok := byID[item.ProductID]
		if !ok {
			result.Valid = false
			result.Errors = append(result.Errors, domain.StockValidationError{
				ProductID:         item.ProductID,
				ProductName:       "Unknown Product",
				RequestedQuantity: item.Quantity,
				Reason:            domain.StockErrorProductNotFound,
			})
			continue
		}
		if product.Stock < item.Quantity {
			result.Valid = false
			result.Errors = append(result.Errors, domain.StockValidationError{
				ProductID:         item.ProductID,
				ProductName:       product.Name,
				RequestedQuantity: item.Quantity,
				AvailableStock:    product.Stock,
				Reason:            domain.StockErrorInsufficientStock,
			})
			continue
		}
		result.TotalValue = result.TotalValue.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !result.Valid {
		result.TotalValue = decimal.Zero
	}
	return result
}
