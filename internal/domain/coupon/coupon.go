package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the purchase amount,
	// optionally capped by MaxDiscountAmount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed subtracts a fixed amount, capped at the purchase amount.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when no coupon exists for a given code or id.
	ErrNotFound = errors.New("coupon not found")
	// ErrInvalid is returned when a coupon is inactive, outside its validity
	// window, or has exhausted its usage limit.
	ErrInvalid = errors.New("coupon is invalid or expired")
	// ErrCodeTaken is returned on create/update when the code already exists.
	ErrCodeTaken = errors.New("coupon code already exists")
)

// Coupon is a discount rule keyed by a unique, upper-cased code.
//
// ApplicableCategories and ApplicableProducts are stored but not consulted by
// Discount; they are inert scoping fields carried in the schema.
type Coupon struct {
	ID                string
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MinPurchaseAmount decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	UsageLimit        *int
	UsedCount         int
	Active            bool

	ApplicableCategories []string
	ApplicableProducts   []string
}

// IsValid reports whether the coupon can be applied at the given instant:
// active, within [StartDate, EndDate], and under its usage limit.
func (c *Coupon) IsValid(now time.Time) bool {
	if !c.Active {
		return false
	}
	if now.Before(c.StartDate) || now.After(c.EndDate) {
		return false
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false
	}
	return true
}

// Discount computes the discount for a purchase of the given amount at the
// given instant. It returns zero for an invalid coupon or an amount below the
// minimum purchase requirement, and never exceeds the amount itself.
//
// Discount has no side effects: usage is consumed exactly once, at order
// commit, never here.
func (c *Coupon) Discount(amount decimal.Decimal, now time.Time) decimal.Decimal {
	if !c.IsValid(now) || amount.LessThan(c.MinPurchaseAmount) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = amount.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscountAmount != nil {
			discount = decimal.Min(discount, *c.MaxDiscountAmount)
		}
	case DiscountFixed:
		discount = c.DiscountValue
	default:
		// Unknown types are rejected at write time; nothing to apply here.
		return decimal.Zero
	}

	return decimal.Min(discount, amount).Round(2)
}

var hundred = decimal.NewFromInt(100)

// Repository provides lookup and mutation of coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindByID(ctx context.Context, id string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
}
