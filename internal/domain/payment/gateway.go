// Package payment reconciles heterogeneous gateway outcomes onto the order's
// single (status, paymentStatus) pair.
package payment

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotConfigured is returned when the gateway capability for the
	// order's payment method was not injected.
	ErrNotConfigured = errors.New("payment gateway is not configured")
	// ErrWrongMethod is returned when a confirmation endpoint is invoked for
	// an order paid through a different method.
	ErrWrongMethod = errors.New("order uses a different payment method")
	// ErrNotCompleted is returned when the gateway reports the payment as not
	// (or not yet) successful. The order state is left untouched.
	ErrNotCompleted = errors.New("payment not completed")
	// ErrSignatureMismatch is returned when the client-supplied signature
	// does not match the server-side HMAC. Never retried automatically.
	ErrSignatureMismatch = errors.New("payment verification failed")
)

// IntentRef identifies a gateway payment intent handed to the client for
// completion (card/UPI flows).
type IntentRef struct {
	ID           string
	ClientSecret string
}

// IntentState is the gateway's current view of an intent.
type IntentState struct {
	ID        string
	Succeeded bool
}

// IntentGateway is the intent-create/confirm capability shape.
type IntentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, orderID string) (*IntentRef, error)
	RetrieveIntent(ctx context.Context, id string) (*IntentState, error)
}

// CheckoutRef identifies a gateway-side order for signature-verified flows.
type CheckoutRef struct {
	ID          string
	AmountMinor int64
	Currency    string
}

// CheckoutGateway is the order-create half of the signature-verified shape;
// verification itself happens locally against the shared secret.
type CheckoutGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*CheckoutRef, error)
}

// Redirect carries the approval URL the client is sent to in redirect flows.
type Redirect struct {
	PaymentID   string
	ApprovalURL string
}

// Execution is the outcome of executing an approved redirect payment.
type Execution struct {
	PaymentID string
	Approved  bool
}

// RedirectGateway is the redirect-create/execute capability shape.
type RedirectGateway interface {
	CreatePayment(ctx context.Context, amountMinor int64, currency, orderNumber string) (*Redirect, error)
	ExecutePayment(ctx context.Context, paymentID, payerID string) (*Execution, error)
}
