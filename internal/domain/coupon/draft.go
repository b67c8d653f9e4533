package coupon

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Draft is the validated input for creating or updating a coupon. Every field
// is enumerated here; request bodies with unknown keys are rejected at the
// HTTP layer before a Draft is ever built.
type Draft struct {
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MinPurchaseAmount decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	UsageLimit        *int
	Active            bool

	ApplicableCategories []string
	ApplicableProducts   []string
}

// ValidationError reports a client-fixable problem with a Draft field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Validate checks the draft and normalizes the code to upper case. An unknown
// discount type is a configuration error and is rejected here, at write time,
// so evaluation can assume a valid enum.
func (d *Draft) Validate() error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	if d.Code == "" {
		return &ValidationError{Field: "code", Reason: "required"}
	}

	switch d.DiscountType {
	case DiscountPercentage, DiscountFixed:
	default:
		return &ValidationError{Field: "discountType", Reason: "must be percentage or fixed"}
	}

	if d.DiscountValue.IsNegative() {
		return &ValidationError{Field: "discountValue", Reason: "must not be negative"}
	}
	if d.MinPurchaseAmount.IsNegative() {
		return &ValidationError{Field: "minPurchaseAmount", Reason: "must not be negative"}
	}
	if d.MaxDiscountAmount != nil {
		if d.DiscountType != DiscountPercentage {
			return &ValidationError{Field: "maxDiscountAmount", Reason: "only valid for percentage coupons"}
		}
		if d.MaxDiscountAmount.IsNegative() {
			return &ValidationError{Field: "maxDiscountAmount", Reason: "must not be negative"}
		}
	}

	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return &ValidationError{Field: "startDate", Reason: "start and end dates are required"}
	}
	if d.EndDate.Before(d.StartDate) {
		return &ValidationError{Field: "endDate", Reason: "must not be before startDate"}
	}

	if d.UsageLimit != nil && *d.UsageLimit < 0 {
		return &ValidationError{Field: "usageLimit", Reason: "must not be negative"}
	}

	return nil
}

// NewCoupon materializes a validated draft into a Coupon with a fresh ID and
// zero usage.
func (d *Draft) NewCoupon() *Coupon {
	return &Coupon{
		ID:                   uuid.New().String(),
		Code:                 d.Code,
		Description:          d.Description,
		DiscountType:         d.DiscountType,
		DiscountValue:        d.DiscountValue,
		MinPurchaseAmount:    d.MinPurchaseAmount,
		MaxDiscountAmount:    d.MaxDiscountAmount,
		StartDate:            d.StartDate,
		EndDate:              d.EndDate,
		UsageLimit:           d.UsageLimit,
		Active:               d.Active,
		ApplicableCategories: d.ApplicableCategories,
		ApplicableProducts:   d.ApplicableProducts,
	}
}

// ApplyTo overwrites an existing coupon's rule fields with the draft, keeping
// its identity and usage accounting intact.
func (d *Draft) ApplyTo(c *Coupon) {
	c.Code = d.Code
	c.Description = d.Description
	c.DiscountType = d.DiscountType
	c.DiscountValue = d.DiscountValue
	c.MinPurchaseAmount = d.MinPurchaseAmount
	c.MaxDiscountAmount = d.MaxDiscountAmount
	c.StartDate = d.StartDate
	c.EndDate = d.EndDate
	c.UsageLimit = d.UsageLimit
	c.Active = d.Active
	c.ApplicableCategories = d.ApplicableCategories
	c.ApplicableProducts = d.ApplicableProducts
}
