package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/heliokart/heliokart/internal/domain/coupon"
)

// couponDraftRequest enumerates every accepted coupon field. Bodies are
// decoded strictly: an unknown key is rejected rather than ignored, so a
// typoed field name fails loudly at write time.
type couponDraftRequest struct {
	Code                 string           `json:"code"`
	Description          string           `json:"description"`
	DiscountType         string           `json:"discountType"`
	DiscountValue        decimal.Decimal  `json:"discountValue"`
	MinPurchaseAmount    decimal.Decimal  `json:"minPurchaseAmount"`
	MaxDiscountAmount    *decimal.Decimal `json:"maxDiscountAmount"`
	StartDate            time.Time        `json:"startDate"`
	EndDate              time.Time        `json:"endDate"`
	UsageLimit           *int             `json:"usageLimit"`
	Active               *bool            `json:"active"`
	ApplicableCategories []string         `json:"applicableCategories"`
	ApplicableProducts   []string         `json:"applicableProducts"`
}

func (req *couponDraftRequest) toDraft() coupon.Draft {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return coupon.Draft{
		Code:                 req.Code,
		Description:          req.Description,
		DiscountType:         coupon.DiscountType(req.DiscountType),
		DiscountValue:        req.DiscountValue,
		MinPurchaseAmount:    req.MinPurchaseAmount,
		MaxDiscountAmount:    req.MaxDiscountAmount,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		UsageLimit:           req.UsageLimit,
		Active:               active,
		ApplicableCategories: req.ApplicableCategories,
		ApplicableProducts:   req.ApplicableProducts,
	}
}

type couponResponse struct {
	ID                string           `json:"id"`
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discountType"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MinPurchaseAmount decimal.Decimal  `json:"minPurchaseAmount"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	StartDate         time.Time        `json:"startDate"`
	EndDate           time.Time        `json:"endDate"`
	UsageLimit        *int             `json:"usageLimit,omitempty"`
	UsedCount         int              `json:"usedCount"`
	Active            bool             `json:"active"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		DiscountType:      string(c.DiscountType),
		DiscountValue:     c.DiscountValue,
		MinPurchaseAmount: c.MinPurchaseAmount,
		MaxDiscountAmount: c.MaxDiscountAmount,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		UsageLimit:        c.UsageLimit,
		UsedCount:         c.UsedCount,
		Active:            c.Active,
	}
}

type validateCouponRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// ValidateCoupon is a public dry-run: it reports whether the code would apply
// to the given amount and what the discount would be, without touching any
// cart or usage counter.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		respondError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	cp, err := h.coupons.FindByCode(r.Context(), req.Code)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	now := time.Now()
	if !cp.IsValid(now) {
		respondOK(w, r, http.StatusOK, envelope{
			"valid":    false,
			"discount": decimal.Zero,
		})
		return
	}

	discount := cp.Discount(req.Amount, now)
	respondOK(w, r, http.StatusOK, envelope{
		"valid":    discount.IsPositive(),
		"discount": discount,
	})
}

// CreateCoupon creates a coupon from a strictly decoded, validated draft.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponDraftRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	draft := req.toDraft()
	if err := draft.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	c := draft.NewCoupon()
	if err := h.coupons.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusCreated, envelope{"coupon": toCouponResponse(c)})
}

// UpdateCoupon overwrites a coupon's rule fields, keeping its identity and
// usage accounting.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponDraftRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	draft := req.toDraft()
	if err := draft.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	c, err := h.coupons.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	draft.ApplyTo(c)
	if err := h.coupons.Update(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{"coupon": toCouponResponse(c)})
}
