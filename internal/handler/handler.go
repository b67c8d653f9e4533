// Package handler exposes the storefront checkout API over HTTP. All
// responses use a JSON envelope: {"success": true, ...} on success and
// {"success": false, "message": ...} on failure.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heliokart/heliokart/internal/domain/cart"
	"github.com/heliokart/heliokart/internal/domain/coupon"
	"github.com/heliokart/heliokart/internal/domain/order"
	"github.com/heliokart/heliokart/internal/domain/payment"
)

// Handler holds the domain services behind the API routes.
type Handler struct {
	carts      *cart.Service
	coupons    coupon.Repository
	orders     *order.Service
	reconciler *payment.Reconciler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	carts *cart.Service,
	coupons coupon.Repository,
	orders *order.Service,
	reconciler *payment.Reconciler,
) *Handler {
	return &Handler{
		carts:      carts,
		coupons:    coupons,
		orders:     orders,
		reconciler: reconciler,
	}
}

// Routes builds the API router. Every route requires an authenticated user
// injected via the X-User-ID header, except the public coupon dry-run; admin
// routes additionally require the admin guard.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/coupons/validate", h.ValidateCoupon)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/", h.AddCartItem)
			r.Delete("/", h.ClearCart)
			r.Put("/items/{itemID}", h.UpdateCartItem)
			r.Delete("/items/{itemID}", h.RemoveCartItem)
			r.Post("/coupon", h.ApplyCoupon)
			r.Delete("/coupon", h.RemoveCoupon)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.With(RequireAdmin).Put("/{id}/status", h.UpdateOrderStatus)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/stripe/create-intent", h.CreateStripeIntent)
			r.Post("/stripe/confirm", h.ConfirmStripeIntent)
			r.Post("/razorpay/create-order", h.CreateRazorpayOrder)
			r.Post("/razorpay/verify", h.VerifyRazorpayPayment)
			r.Post("/paypal/create", h.CreatePayPalPayment)
			r.Post("/paypal/execute", h.ExecutePayPalPayment)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireUser, RequireAdmin)
		r.Post("/coupons/admin", h.CreateCoupon)
		r.Put("/coupons/admin/{id}", h.UpdateCoupon)
	})

	return r
}
