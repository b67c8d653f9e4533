package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/heliokart/heliokart/internal/domain/coupon"
)

var (
	// ErrEmpty is returned when an operation requires a cart with items.
	ErrEmpty = errors.New("cart is empty")
	// ErrItemNotFound is returned when a cart item does not exist or belongs
	// to another user's cart.
	ErrItemNotFound = errors.New("cart item not found")
)

// MinPurchaseError is returned by ApplyCoupon when the cart subtotal is below
// the coupon's minimum purchase amount.
type MinPurchaseError struct {
	Required decimal.Decimal
}

func (e *MinPurchaseError) Error() string {
	return "minimum purchase amount of " + e.Required.StringFixed(2) + " required"
}

// Cart is a user's mutable pre-checkout selection. One cart exists per user;
// an empty cart is a valid persistent record, not an absent one.
type Cart struct {
	ID     string
	UserID string
	Items  []Item
	// Coupon is the attached coupon, loaded with the cart, or nil.
	Coupon *coupon.Coupon
}

// Item is a cart line. Price is the product price captured at add time and is
// what checkout charges, regardless of later catalog edits.
type Item struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Totals is the aggregate view of a cart at read time. Discount is evaluated
// against the current subtotal, so item mutations after a coupon was applied
// change the discount on the next read.
type Totals struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	ItemCount int
}

// ComputeTotals derives the cart's subtotal, discount, total, and item count
// at the given instant. Tax and shipping do not exist at cart stage; they are
// introduced only at order finalization.
func ComputeTotals(c *Cart, now time.Time) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, item := range c.Items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		count += item.Quantity
	}

	discount := decimal.Zero
	if c.Coupon != nil {
		discount = c.Coupon.Discount(subtotal, now)
	}

	return Totals{
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     subtotal.Sub(discount),
		ItemCount: count,
	}
}

// Repository defines cart persistence. Mutations are independent, last-write-
// wins operations; only order finalization touches carts transactionally.
type Repository interface {
	// GetOrCreate returns the user's cart with items and coupon loaded,
	// creating an empty cart row on first access.
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	// UpsertItem adds a product line or, when the product is already present,
	// increments its quantity. The price is stored only on insert.
	UpsertItem(ctx context.Context, cartID, productID string, quantity int, price decimal.Decimal) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (bool, error)
	DeleteItem(ctx context.Context, cartID, itemID string) (bool, error)
	ClearItems(ctx context.Context, cartID string) error
	// SetCoupon attaches a coupon to the cart, or detaches with nil.
	SetCoupon(ctx context.Context, cartID string, couponID *string) error
}
