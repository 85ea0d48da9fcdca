package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuseglY/order-management-api/internal/domain"
)

// ProductRepository backs both the catalog CRUD and the stock coordinator.
type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const query = `
SELECT id, name, description, price, stock, created_at
FROM products
ORDER BY name`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *ProductRepository) GetProductByID(ctx context.Context, id int64) (domain.Product, error) {
	const query = `
SELECT id, name, description, price, stock, created_at
FROM products
WHERE id = $1`

	var p domain.Product
	err := r.queryRow(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetProductsByIDs is a snapshot read: no locks, missing ids are simply
// absent from the result.
func (r *ProductRepository) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	const query = `
SELECT id, name, description, price, stock, created_at
FROM products
WHERE id = ANY($1)
ORDER BY id`

	rows, err := r.query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// GetProductsForUpdate reads the same rows with FOR UPDATE. The ORDER BY id
// keeps lock acquisition order identical for every caller, so concurrent
// multi-row reservations cannot deadlock. Row locks are held until the
// surrounding transaction ends.
func (r *ProductRepository) GetProductsForUpdate(ctx context.Context, ids []int64) ([]domain.Product, error) {
	const query = `
SELECT id, name, description, price, stock, created_at
FROM products
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`

	rows, err := r.query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products for update: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *ProductRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	const stmt = `
INSERT INTO products (name, description, price, stock, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

	err := r.queryRow(ctx, stmt,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.CreatedAt,
	).Scan(&product.ID)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidStock
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, product domain.Product) error {
	const stmt = `
UPDATE products
SET name = $2, description = $3, price = $4, stock = $5
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, product.ID, product.Name, product.Description, product.Price, product.Stock)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidStock
		}
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	const stmt = `DELETE FROM products WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) HasOrderReferences(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`

	var referenced bool
	if err := r.queryRow(ctx, query, id).Scan(&referenced); err != nil {
		return false, fmt.Errorf("check order references: %w", err)
	}
	return referenced, nil
}

// UpdateStock overwrites the stock counter directly (admin path).
func (r *ProductRepository) UpdateStock(ctx context.Context, id int64, stock int) error {
	const stmt = `UPDATE products SET stock = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, stock)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidStock
		}
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// AdjustStock applies a relative stock change, refusing to go negative. The
// WHERE guard plus the table CHECK constraint make a lost decrement
// impossible even if a caller bypasses the coordinator lock.
func (r *ProductRepository) AdjustStock(ctx context.Context, productID int64, delta int) error {
	const stmt = `
UPDATE products
SET stock = stock + $2
WHERE id = $1 AND stock + $2 >= 0`

	tag, err := r.exec(ctx, stmt, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := r.productExists(ctx, productID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrProductNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *ProductRepository) ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	const query = `
SELECT id, name, description, price, stock, created_at
FROM products
WHERE stock <= $1
ORDER BY stock, id`

	rows, err := r.query(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *ProductRepository) productExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product exists: %w", err)
	}
	return exists, nil
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ProductRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ProductRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
