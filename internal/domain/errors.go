package domain

import "errors"

var (
	ErrProductNotFound         = errors.New("product not found")
	ErrProductInUse            = errors.New("product is referenced by existing orders")
	ErrInvalidPrice            = errors.New("price must be greater than zero")
	ErrInvalidStock            = errors.New("stock cannot be negative")
	ErrOrderNotFound           = errors.New("order not found")
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrInvalidQuantity         = errors.New("quantity must be greater than zero")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrReservationFailed       = errors.New("stock reservation failed")
	ErrStockLockTimeout        = errors.New("timed out waiting for stock lock")
	ErrInvalidStatus           = errors.New("unknown order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrInvalidID               = errors.New("invalid id")
)
