package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/heliokart/heliokart/internal/domain/cart"
	"github.com/heliokart/heliokart/internal/domain/coupon"
	"github.com/heliokart/heliokart/internal/domain/order"
	"github.com/heliokart/heliokart/internal/domain/payment"
	"github.com/heliokart/heliokart/internal/domain/product"
)

// envelope is the uniform response body shape. Payload keys are merged in
// beside the success flag.
type envelope map[string]any

func respond(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

// respondOK writes a success envelope with the given payload keys.
func respondOK(w http.ResponseWriter, r *http.Request, status int, payload envelope) {
	body := envelope{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	respond(w, r, status, body)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respond(w, r, status, envelope{"success": false, "message": message})
}

// respondDomainError maps a domain error onto an HTTP status and message.
// Unrecognized errors are logged and reported as a generic 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		minPurchase *cart.MinPurchaseError
		validation  *coupon.ValidationError
		unavailable *order.ProductUnavailableError
		transition  *order.StatusTransitionError
	)

	switch {
	case errors.Is(err, product.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "Product not found")
	case errors.Is(err, coupon.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "Invalid coupon code")
	case errors.Is(err, coupon.ErrInvalid):
		respondError(w, r, http.StatusBadRequest, "Coupon is not valid")
	case errors.Is(err, coupon.ErrCodeTaken):
		respondError(w, r, http.StatusConflict, "Coupon code already exists")
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, r, http.StatusNotFound, "Cart item not found")
	case errors.Is(err, cart.ErrEmpty), errors.Is(err, order.ErrCartEmpty):
		respondError(w, r, http.StatusBadRequest, "Cart is empty")
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrMissingAddress),
		errors.Is(err, order.ErrMissingMethod):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "Order not found")
	case errors.As(err, &minPurchase),
		errors.As(err, &validation),
		errors.As(err, &unavailable),
		errors.As(err, &transition):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrNotConfigured):
		respondError(w, r, http.StatusServiceUnavailable, "Payment method not configured")
	case errors.Is(err, payment.ErrWrongMethod):
		respondError(w, r, http.StatusBadRequest, "Order uses a different payment method")
	case errors.Is(err, payment.ErrNotCompleted):
		respondError(w, r, http.StatusBadRequest, "Payment not completed")
	case errors.Is(err, payment.ErrSignatureMismatch):
		respondError(w, r, http.StatusBadRequest, "Payment signature verification failed")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON decodes a request body into dst. When strict is set, unknown
// keys in the body are an error.
func decodeJSON(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
