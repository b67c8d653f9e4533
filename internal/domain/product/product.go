package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. The checkout core only reads it: the price is
// captured into the cart at add time, and Active is re-checked during order
// finalization.
type Product struct {
	ID     string
	Name   string
	SKU    string
	Price  decimal.Decimal
	Image  string
	Active bool
}

// Repository defines the read operations the checkout core needs from the
// catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
