package app

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BuseglY/order-management-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTxKey struct{}

// fakeStore is an in-memory stand-in for the Postgres repositories. WithTx
// snapshots the data and restores it when the callback fails, matching the
// rollback behavior the services rely on. Nested WithTx calls join the outer
// transaction.
type fakeStore struct {
	mu          sync.Mutex
	products    map[int64]domain.Product
	orders      map[int64]domain.Order
	orderItems  map[int64][]domain.OrderItem
	nextProduct int64
	nextOrder   int64
	nextItem    int64

	adjustErr error
	holdTx    chan struct{}
}

func newFakeStore(products ...domain.Product) *fakeStore {
	f := &fakeStore{
		products:   make(map[int64]domain.Product),
		orders:     make(map[int64]domain.Order),
		orderItems: make(map[int64][]domain.OrderItem),
	}
	for _, p := range products {
		f.products[p.ID] = p
		if p.ID > f.nextProduct {
			f.nextProduct = p.ID
		}
	}
	return f
}

type storeSnapshot struct {
	products   map[int64]domain.Product
	orders     map[int64]domain.Order
	orderItems map[int64][]domain.OrderItem
	nextOrder  int64
	nextItem   int64
}

func (f *fakeStore) snapshot() storeSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := storeSnapshot{
		products:   make(map[int64]domain.Product, len(f.products)),
		orders:     make(map[int64]domain.Order, len(f.orders)),
		orderItems: make(map[int64][]domain.OrderItem, len(f.orderItems)),
		nextOrder:  f.nextOrder,
		nextItem:   f.nextItem,
	}
	for id, p := range f.products {
		s.products[id] = p
	}
	for id, o := range f.orders {
		s.orders[id] = o
	}
	for id, items := range f.orderItems {
		s.orderItems[id] = append([]domain.OrderItem{}, items...)
	}
	return s
}

func (f *fakeStore) restore(s storeSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = s.products
	f.orders = s.orders
	f.orderItems = s.orderItems
	f.nextOrder = s.nextOrder
	f.nextItem = s.nextItem
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	if f.holdTx != nil {
		<-f.holdTx
	}
	snap := f.snapshot()
	err := fn(context.WithValue(ctx, fakeTxKey{}, true))
	if err != nil {
		f.restore(snap)
	}
	return err
}

func (f *fakeStore) GetProductsByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (f *fakeStore) GetProductsForUpdate(ctx context.Context, ids []int64) ([]domain.Product, error) {
	return f.GetProductsByIDs(ctx, ids)
}

func (f *fakeStore) AdjustStock(_ context.Context, productID int64, delta int) error {
	if f.adjustErr != nil {
		return f.adjustErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return domain.ErrInsufficientStock
	}
	p.Stock += delta
	f.products[productID] = p
	return nil
}

func (f *fakeStore) ListLowStock(_ context.Context, threshold int) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var low []domain.Product
	for _, p := range f.products {
		if p.Stock <= threshold {
			low = append(low, p)
		}
	}
	sort.Slice(low, func(i, j int) bool {
		if low[i].Stock != low[j].Stock {
			return low[i].Stock < low[j].Stock
		}
		return low[i].ID < low[j].ID
	})
	return low, nil
}

func (f *fakeStore) stock(productID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].Stock
}

func (f *fakeStore) CreateOrder(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextOrder++
	order.ID = f.nextOrder
	f.orders[order.ID] = *order
	return nil
}

func (f *fakeStore) CreateOrderItems(_ context.Context, items []domain.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.nextItem++
		item.ID = f.nextItem
		if p, ok := f.products[item.ProductID]; ok {
			item.ProductName = p.Name
		}
		f.orderItems[item.OrderID] = append(f.orderItems[item.OrderID], item)
	}
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Items = append([]domain.OrderItem{}, f.orderItems[id]...)
	return order, nil
}

func (f *fakeStore) ListOrders(_ context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	orders := make([]domain.Order, 0, len(f.orders))
	for id, o := range f.orders {
		o.Items = append([]domain.OrderItem{}, f.orderItems[id]...)
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (f *fakeStore) DeleteOrder(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(f.orders, id)
	delete(f.orderItems, id)
	return nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, id int64, status domain.OrderStatus, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = &updatedAt
	f.orders[id] = order
	return nil
}

func (f *fakeStore) ListProducts(_ context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	products := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (f *fakeStore) GetProductByID(_ context.Context, id int64) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeStore) CreateProduct(_ context.Context, product *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextProduct++
	product.ID = f.nextProduct
	f.products[product.ID] = *product
	return nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, product domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeStore) HasOrderReferences(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, items := range f.orderItems {
		for _, item := range items {
			if item.ProductID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) UpdateStock(_ context.Context, id int64, stock int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock = stock
	f.products[id] = p
	return nil
}

type publishedEvent struct {
	eventType string
	key       string
	payload   any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, payload: payload})
	return nil
}

func (p *fakePublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent{}, p.events...)
}

type fakeLowStockCache struct {
	mu      sync.Mutex
	entries map[int][]domain.LowStockAlert
	hits    int
	sets    int
}

func newFakeLowStockCache() *fakeLowStockCache {
	return &fakeLowStockCache{entries: make(map[int][]domain.LowStockAlert)}
}

func (c *fakeLowStockCache) GetLowStock(_ context.Context, threshold int) ([]domain.LowStockAlert, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	alerts, ok := c.entries[threshold]
	if ok {
		c.hits++
	}
	return alerts, ok
}

func (c *fakeLowStockCache) SetLowStock(_ context.Context, threshold int, alerts []domain.LowStockAlert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[threshold] = alerts
	c.sets++
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func product(id int64, name, price string, stock int) domain.Product {
	return domain.Product{
		ID:    id,
		Name:  name,
		Price: mustDecimal(price),
		Stock: stock,
	}
}
