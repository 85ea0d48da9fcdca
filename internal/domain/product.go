package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry with a finite stock count. Stock is the only
// cross-request mutable state in the system and must never go negative.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
}

// Validate checks the catalog invariants: price strictly positive,
// stock non-negative.
func (p Product) Validate() error {
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}
