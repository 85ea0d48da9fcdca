package app

import (
	"context"
	"log/slog"

	"github.com/BuseglY/order-management-api/internal/clock"
	"github.com/BuseglY/order-management-api/internal/domain"
)

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	HasOrderReferences(ctx context.Context, id int64) (bool, error)
	UpdateStock(ctx context.Context, id int64, stock int) error
}

// ProductService is plain catalog CRUD. Stock mutations that belong to
// reservations go through the stock coordinator, not here; UpdateStock is a
// direct administrative overwrite.
type ProductService struct {
	repo   ProductRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewProductService(repo ProductRepository, clk clock.Clock, logger *slog.Logger) *ProductService {
	return &ProductService{repo: repo, clock: clk, logger: logger}
}

func (s *ProductService) GetProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *ProductService) GetProductByID(ctx context.Context, id int64) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, domain.ErrInvalidID
	}
	return s.repo.GetProductByID(ctx, id)
}

func (s *ProductService) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	product.CreatedAt = s.clock.Now()
	if err := s.repo.CreateProduct(ctx, &product); err != nil {
		return domain.Product{}, err
	}
	s.logger.InfoContext(ctx, "product created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if product.ID <= 0 {
		return domain.Product{}, domain.ErrInvalidID
	}
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	s.logger.InfoContext(ctx, "product updated", "product_id", product.ID)
	return s.repo.GetProductByID(ctx, product.ID)
}

// DeleteProduct hard-deletes a catalog entry. Products referenced by any
// order line are protected, both here and by the restrict foreign key.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidID
	}
	if _, err := s.repo.GetProductByID(ctx, id); err != nil {
		return err
	}
	referenced, err := s.repo.HasOrderReferences(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return domain.ErrProductInUse
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "product deleted", "product_id", id)
	return nil
}

// UpdateStock overwrites the stock count outside the reservation flow.
func (s *ProductService) UpdateStock(ctx context.Context, id int64, stock int) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, domain.ErrInvalidID
	}
	if stock < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}
	if err := s.repo.UpdateStock(ctx, id, stock); err != nil {
		return domain.Product{}, err
	}
	s.logger.InfoContext(ctx, "stock overwritten", "product_id", id, "stock", stock)
	return s.repo.GetProductByID(ctx, id)
}
