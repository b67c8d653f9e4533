package handler

import (
	"net/http"
)

type paymentOrderRequest struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) decodePaymentOrder(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req paymentOrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	if req.OrderID == "" {
		respondError(w, r, http.StatusBadRequest, "orderId is required")
		return "", false
	}
	return req.OrderID, true
}

// CreateStripeIntent opens a payment intent for the order's total.
func (h *Handler) CreateStripeIntent(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.decodePaymentOrder(w, r)
	if !ok {
		return
	}

	ref, err := h.reconciler.CreateIntent(r.Context(), orderID, userID(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{
		"intentId":     ref.ID,
		"clientSecret": ref.ClientSecret,
	})
}

type confirmIntentRequest struct {
	OrderID  string `json:"orderId"`
	IntentID string `json:"intentId"`
}

// ConfirmStripeIntent checks the intent's state with the gateway and completes
// the order on success. Re-confirming a completed order is a no-op.
func (h *Handler) ConfirmStripeIntent(w http.ResponseWriter, r *http.Request) {
	var req confirmIntentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" || req.IntentID == "" {
		respondError(w, r, http.StatusBadRequest, "orderId and intentId are required")
		return
	}

	o, err := h.reconciler.ConfirmIntent(r.Context(), req.OrderID, userID(r.Context()), req.IntentID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{"order": toOrderResponse(o)})
}

// CreateRazorpayOrder opens a gateway-side order for the signature-verified
// flow.
func (h *Handler) CreateRazorpayOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.decodePaymentOrder(w, r)
	if !ok {
		return
	}

	ref, err := h.reconciler.CreateCheckout(r.Context(), orderID, userID(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{
		"gatewayOrderId": ref.ID,
		"amount":         ref.AmountMinor,
		"currency":       ref.Currency,
	})
}

type verifyPaymentRequest struct {
	OrderID          string `json:"orderId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

// VerifyRazorpayPayment verifies the client-supplied payment signature and
// completes the order on an exact match.
func (h *Handler) VerifyRazorpayPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" || req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		respondError(w, r, http.StatusBadRequest, "orderId, gatewayOrderId, gatewayPaymentId, and signature are required")
		return
	}

	o, err := h.reconciler.VerifyCheckout(r.Context(), req.OrderID, userID(r.Context()),
		req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{"order": toOrderResponse(o)})
}

// CreatePayPalPayment opens a redirect-based payment and returns the approval
// URL the client should send the buyer to.
func (h *Handler) CreatePayPalPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.decodePaymentOrder(w, r)
	if !ok {
		return
	}

	redirect, err := h.reconciler.CreateRedirect(r.Context(), orderID, userID(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{
		"paymentId":   redirect.PaymentID,
		"approvalUrl": redirect.ApprovalURL,
	})
}

type executePaymentRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	PayerID   string `json:"payerId"`
}

// ExecutePayPalPayment executes an approved redirect payment and completes
// the order.
func (h *Handler) ExecutePayPalPayment(w http.ResponseWriter, r *http.Request) {
	var req executePaymentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.PayerID == "" {
		respondError(w, r, http.StatusBadRequest, "orderId, paymentId, and payerId are required")
		return
	}

	o, err := h.reconciler.ExecuteRedirect(r.Context(), req.OrderID, userID(r.Context()), req.PaymentID, req.PayerID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{"order": toOrderResponse(o)})
}
