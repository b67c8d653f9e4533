package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/heliokart/heliokart/internal/domain/cart"
)

type cartItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type cartCouponResponse struct {
	Code         string          `json:"code"`
	DiscountType string          `json:"discountType"`
	Value        decimal.Decimal `json:"discountValue"`
}

type cartResponse struct {
	ID        string              `json:"id"`
	Items     []cartItemResponse  `json:"items"`
	Coupon    *cartCouponResponse `json:"coupon,omitempty"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Discount  decimal.Decimal     `json:"discount"`
	Total     decimal.Decimal     `json:"total"`
	ItemCount int                 `json:"itemCount"`
}

func toCartResponse(v *cart.View) cartResponse {
	items := make([]cartItemResponse, len(v.Cart.Items))
	for i, it := range v.Cart.Items {
		items[i] = cartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}

	resp := cartResponse{
		ID:        v.Cart.ID,
		Items:     items,
		Subtotal:  v.Totals.Subtotal,
		Discount:  v.Totals.Discount,
		Total:     v.Totals.Total,
		ItemCount: v.Totals.ItemCount,
	}
	if v.Cart.Coupon != nil {
		resp.Coupon = &cartCouponResponse{
			Code:         v.Cart.Coupon.Code,
			DiscountType: string(v.Cart.Coupon.DiscountType),
			Value:        v.Cart.Coupon.DiscountValue,
		}
	}
	return resp
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, v *cart.View, err error) {
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{"cart": toCartResponse(v)})
}

// GetCart returns the user's cart, creating an empty one on first access.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.Get(r.Context(), userID(r.Context()))
	h.respondCart(w, r, v, err)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddCartItem adds a product to the cart, merging quantities when the product
// is already present.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProductID == "" {
		respondError(w, r, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	v, err := h.carts.AddItem(r.Context(), userID(r.Context()), req.ProductID, req.Quantity)
	h.respondCart(w, r, v, err)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem sets a cart line's quantity.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	itemID := chi.URLParam(r, "itemID")
	v, err := h.carts.UpdateItem(r.Context(), userID(r.Context()), itemID, req.Quantity)
	h.respondCart(w, r, v, err)
}

// RemoveCartItem deletes a cart line.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	v, err := h.carts.RemoveItem(r.Context(), userID(r.Context()), itemID)
	h.respondCart(w, r, v, err)
}

// ClearCart removes all items and detaches any coupon.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), userID(r.Context())); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{"message": "Cart cleared"})
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon attaches a coupon to the cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		respondError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	v, err := h.carts.ApplyCoupon(r.Context(), userID(r.Context()), req.Code)
	h.respondCart(w, r, v, err)
}

// RemoveCoupon detaches the cart's coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.RemoveCoupon(r.Context(), userID(r.Context()))
	h.respondCart(w, r, v, err)
}
